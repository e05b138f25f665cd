package channel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// SlackChannel posts to a Slack incoming webhook
type SlackChannel struct {
	webhookURL string
	channel    string
	username   string
	client     *resty.Client
}

// NewSlackChannel creates a new Slack notification channel
func NewSlackChannel(webhookURL, channel, username string) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		channel:    channel,
		username:   username,
		client:     resty.New(),
	}
}

func (c *SlackChannel) Type() string {
	return "slack"
}

var slackColors = map[string]string{
	"succeeded":        "#2eb67d",
	"failed":           "#e01e5a",
	"canceled":         "#9e9e9e",
	"waiting_approval": "#ecb22e",
}

// Send sends message to Slack
func (c *SlackChannel) Send(ctx context.Context, msg *Message) error {
	if err := c.Validate(); err != nil {
		return err
	}

	payload := map[string]any{
		"text": msg.Title,
		"attachments": []map[string]any{{
			"color":     slackColors[msg.Status],
			"mrkdwn_in": []string{"text"},
			"text":      msg.Text,
		}},
	}
	if c.channel != "" {
		payload["channel"] = c.channel
	}
	if c.username != "" {
		payload["username"] = c.username
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.webhookURL)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("slack request failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	if body := resp.String(); body != "ok" {
		return fmt.Errorf("slack API error: %s", body)
	}
	return nil
}

// Validate validates the configuration
func (c *SlackChannel) Validate() error {
	if c.webhookURL == "" {
		return fmt.Errorf("slack webhook URL is required")
	}
	return nil
}
