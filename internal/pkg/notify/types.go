// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package notify

import (
	"time"

	"github.com/go-arcade/conveyor/internal/pkg/notify/auth"
)

// ChannelType represents the notification channel type
type ChannelType string

const (
	ChannelTypeSlack   ChannelType = "slack"
	ChannelTypeWebhook ChannelType = "webhook"
)

// Kind of notification
type Kind string

const (
	KindStageFinished     Kind = "stage_finished"
	KindRunFinished       Kind = "run_finished"
	KindApprovalRequested Kind = "approval_requested"
)

// Notification is the event handed to channels
type Notification struct {
	Kind        Kind
	Pipeline    string
	RunID       string
	Event       string
	Actor       string
	Branch      string
	SHA         string
	Stage       string
	Environment string
	URL         string
	Status      string
	Error       string
	Duration    time.Duration
	// Channels restricts delivery, all registered channels when empty
	Channels []string

	ApprovalID string
	Approvers  []string
	ExpiresAt  time.Time
}

// Conf 通知配置
type Conf struct {
	// Timeout bounds one delivery attempt
	Timeout time.Duration `mapstructure:"timeout"`
	// Attempts per channel
	Attempts     int           `mapstructure:"attempts"`
	RetryBackoff time.Duration `mapstructure:"retryBackoff"`
	Slack        SlackConf     `mapstructure:"slack"`
	Webhook      WebhookConf   `mapstructure:"webhook"`
}

// SlackConf configures the slack channel; WebhookURL falls back to the
// SLACK_WEBHOOK_URL secret
type SlackConf struct {
	WebhookURL string `mapstructure:"webhookURL"`
	Channel    string `mapstructure:"channel"`
	Username   string `mapstructure:"username"`
}

// WebhookConf configures the generic webhook channel
type WebhookConf struct {
	URL     string            `mapstructure:"url"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
	Auth    auth.Config       `mapstructure:"auth"`
}

func (c *Conf) SetDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	if c.Slack.Username == "" {
		c.Slack.Username = "conveyor"
	}
}
