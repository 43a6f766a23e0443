package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
)

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error
}

const (
	TemplateTenantApproved     = "tenant_approved"
	TemplateTenantRejected     = "tenant_rejected"
	TemplateOrderPlaced        = "order_placed"
	TemplateOrderStatusChanged = "order_status_changed"
)

var defaultSubjects = map[string]string{
	TemplateTenantApproved:     "Your gift store is live",
	TemplateTenantRejected:     "Update on your gift store registration",
	TemplateOrderPlaced:        "We received your gift order",
	TemplateOrderStatusChanged: "Your gift order has an update",
}

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Render executes a named template and resolves its subject. A "subject" key
// in data overrides the default.
func Render(templateName string, data map[string]any) (subject string, body string, err error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, templateName+".html", data); err != nil {
		return "", "", fmt.Errorf("render template %s: %w", templateName, err)
	}

	subject = defaultSubjects[templateName]
	if override, ok := data["subject"].(string); ok && override != "" {
		subject = override
	}
	if subject == "" {
		subject = "Notification from GiftFlow"
	}
	return subject, buf.String(), nil
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	_, _, err := Render(templateName, data)
	return err
}
