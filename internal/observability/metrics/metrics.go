package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the gifting domain instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	checkouts         metric.Int64Counter
	checkoutPoints    metric.Int64Counter
	ledgerMutations   metric.Int64Counter
	orderTransitions  metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
	notificationsSent metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New creates the domain instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "giftflow"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.checkouts, err = meter.Int64Counter("giftflow_checkouts_total"); err != nil {
		return nil, err
	}
	if m.checkoutPoints, err = meter.Int64Counter("giftflow_checkout_points_total"); err != nil {
		return nil, err
	}
	if m.ledgerMutations, err = meter.Int64Counter("giftflow_ledger_mutations_total"); err != nil {
		return nil, err
	}
	if m.orderTransitions, err = meter.Int64Counter("giftflow_order_transitions_total"); err != nil {
		return nil, err
	}
	if m.rateLimitDenied, err = meter.Int64Counter("giftflow_rate_limit_denied_total"); err != nil {
		return nil, err
	}
	if m.notificationsSent, err = meter.Int64Counter("giftflow_notifications_total"); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordCheckout counts a checkout attempt by outcome.
func (m *Metrics) RecordCheckout(ctx context.Context, outcome string, points int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.checkouts.Add(ctx, 1, metric.WithAttributes(attrs...))
	if points > 0 {
		m.checkoutPoints.Add(ctx, points, metric.WithAttributes(attrs...))
	}
}

// RecordLedgerMutation counts committed balance changes.
func (m *Metrics) RecordLedgerMutation(ctx context.Context, direction, sourceType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("direction", strings.TrimSpace(direction)),
		attribute.String("source_type", strings.TrimSpace(sourceType)),
	)
	m.ledgerMutations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOrderTransition counts order status changes.
func (m *Metrics) RecordOrderTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from", strings.TrimSpace(from)),
		attribute.String("to", strings.TrimSpace(to)),
	)
	m.orderTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied counts throttled requests.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotification counts outbound emails by template and outcome.
func (m *Metrics) RecordNotification(ctx context.Context, template, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("template", strings.TrimSpace(template)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.notificationsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Tenant and employee identifiers never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":     {},
	"direction":   {},
	"source_type": {},
	"from":        {},
	"to":          {},
	"endpoint":    {},
	"template":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
