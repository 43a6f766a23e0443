package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/giftflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyCountry         = "giftflow:geoip:%s"
	defaultTimeout     = 2 * time.Second
	defaultCacheTTL    = 24 * time.Hour
	maxResponseBytes   = 64 << 10
	unknownCountryMark = "-"
)

var Module = fx.Module("geoip",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	Redis  *redis.Client `optional:"true"`
	Client *http.Client  `optional:"true"`
}

// Client suggests a shipping country from the caller's IP address using an
// ipapi-compatible endpoint.
type Client struct {
	endpoint string
	ttl      time.Duration
	timeout  time.Duration
	http     *http.Client
	redis    *redis.Client
	log      *zap.Logger
}

type lookupResponse struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

func New(p Params) *Client {
	timeout := p.Cfg.GeoIP.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ttl := p.Cfg.GeoIP.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	httpClient := p.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(p.Cfg.GeoIP.Endpoint), "/"),
		ttl:      ttl,
		timeout:  timeout,
		http:     httpClient,
		redis:    p.Redis,
		log:      log.Named("geoip"),
	}
}

// SuggestCountry returns the ISO alpha-2 country for ip. Every failure is
// reported as ok=false.
func (c *Client) SuggestCountry(ctx context.Context, ip string) (string, bool) {
	if c == nil || c.endpoint == "" {
		return "", false
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return "", false
	}
	addr := parsed.String()

	if code, hit := c.cached(ctx, addr); hit {
		return code, code != unknownCountryMark
	}

	code, err := c.lookup(ctx, addr)
	if err != nil {
		c.log.Debug("geoip lookup failed", zap.String("ip", addr), zap.Error(err))
		return "", false
	}
	c.store(ctx, addr, code)
	if code == unknownCountryMark {
		return "", false
	}
	return code, true
}

func (c *Client) lookup(ctx context.Context, ip string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.endpoint, ip), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geoip status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return "", err
	}
	if body.Error {
		return "", fmt.Errorf("geoip: %s", body.Reason)
	}
	code := strings.ToUpper(strings.TrimSpace(body.CountryCode))
	if len(code) != 2 {
		return unknownCountryMark, nil
	}
	return code, nil
}

func (c *Client) cached(ctx context.Context, ip string) (string, bool) {
	if c.redis == nil {
		return "", false
	}
	code, err := c.redis.Get(ctx, fmt.Sprintf(keyCountry, ip)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("geoip cache read failed", zap.Error(err))
		}
		return "", false
	}
	return code, true
}

func (c *Client) store(ctx context.Context, ip, code string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, fmt.Sprintf(keyCountry, ip), code, c.ttl).Err(); err != nil {
		c.log.Debug("geoip cache write failed", zap.Error(err))
	}
}
