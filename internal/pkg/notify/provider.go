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
	"github.com/go-arcade/conveyor/internal/pkg/notify/auth"
	"github.com/go-arcade/conveyor/internal/pkg/notify/channel"
	"github.com/go-arcade/conveyor/internal/pkg/secrets"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/metrics"
	"github.com/google/wire"
)

// ProviderSet provides notify layer related dependencies
var ProviderSet = wire.NewSet(
	ProvideNotifyManager,
)

// SlackWebhookSecret is the secret holding the slack incoming webhook
const SlackWebhookSecret = "SLACK_WEBHOOK_URL"

// ProvideNotifyManager registers the configured channels. The slack webhook
// comes from config or, failing that, the SLACK_WEBHOOK_URL secret.
func ProvideNotifyManager(conf Conf, store *secrets.Store, m *metrics.PipelineMetrics, logger *log.Logger) (*NotifyManager, error) {
	manager := NewNotifyManager(conf, m, *logger)

	slackURL := conf.Slack.WebhookURL
	if slackURL == "" && store != nil {
		slackURL = store.ForEnvironment(nil).Values[SlackWebhookSecret]
	}
	if slackURL != "" {
		ch := channel.NewSlackChannel(slackURL, conf.Slack.Channel, manager.conf.Slack.Username)
		if err := manager.RegisterChannel(string(ChannelTypeSlack), ch); err != nil {
			return nil, err
		}
	}

	if conf.Webhook.URL != "" {
		ch := channel.NewWebhookChannel(conf.Webhook.URL, conf.Webhook.Method, conf.Webhook.Headers)
		provider, err := auth.NewAuthProvider(conf.Webhook.Auth)
		if err != nil {
			return nil, err
		}
		if err := ch.SetAuth(provider); err != nil {
			return nil, err
		}
		if err := manager.RegisterChannel(string(ChannelTypeWebhook), ch); err != nil {
			return nil, err
		}
	}

	if logger.Log != nil {
		logger.Log.Infow("notify manager initialized", "channels", manager.ListChannels())
	}
	return manager, nil
}
