package channel

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/conveyor/internal/pkg/notify/auth"
	"github.com/go-arcade/conveyor/pkg/id"
	"github.com/go-resty/resty/v2"
)

// DeliveryHeader carries a per-attempt id receivers can use to spot duplicates
const DeliveryHeader = "X-Conveyor-Delivery"

// WebhookChannel implements generic webhook notification channel
type WebhookChannel struct {
	webhookURL   string
	method       string
	headers      map[string]string
	authProvider auth.IAuthProvider
	client       *resty.Client
}

// NewWebhookChannel creates a new generic webhook notification channel
func NewWebhookChannel(webhookURL, method string, headers map[string]string) *WebhookChannel {
	method = strings.ToUpper(method)
	if method == "" {
		method = http.MethodPost
	}
	return &WebhookChannel{
		webhookURL: webhookURL,
		method:     method,
		headers:    headers,
		client:     resty.New().SetJSONMarshaler(sonic.Marshal),
	}
}

func (c *WebhookChannel) Type() string {
	return "webhook"
}

// SetAuth sets authentication provider
func (c *WebhookChannel) SetAuth(provider auth.IAuthProvider) error {
	if provider == nil {
		return nil
	}
	c.authProvider = provider
	return provider.Validate()
}

// Send posts the message as JSON
func (c *WebhookChannel) Send(ctx context.Context, msg *Message) error {
	if err := c.Validate(); err != nil {
		return err
	}

	req := c.client.R().SetContext(ctx)
	req.SetHeaders(c.headers)
	if c.authProvider != nil {
		key, value := c.authProvider.GetAuthHeader()
		if key != "" && value != "" {
			req.SetHeader(key, value)
		}
	}
	req.SetHeader("Content-Type", "application/json")
	req.SetHeader(DeliveryHeader, id.ShortId())
	req.SetBody(msg)

	resp, err := req.Execute(c.method, c.webhookURL)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode())
	}
	return nil
}

// Validate validates the configuration
func (c *WebhookChannel) Validate() error {
	if c.webhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	switch c.method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return fmt.Errorf("unsupported webhook method: %s", c.method)
	}
	if c.authProvider != nil {
		return c.authProvider.Validate()
	}
	return nil
}
