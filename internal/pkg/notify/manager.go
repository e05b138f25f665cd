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
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/go-arcade/conveyor/internal/pkg/notify/channel"
	"github.com/go-arcade/conveyor/internal/pkg/notify/template"
	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/metrics"
	"github.com/go-arcade/conveyor/pkg/retry"
	"golang.org/x/sync/errgroup"
)

// NotifyManager manages multiple notification channels
type NotifyManager struct {
	channels map[string]channel.INotifyChannel
	mu       sync.RWMutex

	conf    Conf
	engine  *template.TemplateEngine
	metrics *metrics.PipelineMetrics
	logger  log.Logger
}

// NewNotifyManager creates a new notification manager
func NewNotifyManager(conf Conf, m *metrics.PipelineMetrics, logger log.Logger) *NotifyManager {
	conf.SetDefaults()
	return &NotifyManager{
		channels: make(map[string]channel.INotifyChannel),
		conf:     conf,
		engine:   template.NewTemplateEngine(),
		metrics:  m,
		logger:   logger,
	}
}

// RegisterChannel registers a notification channel
func (nm *NotifyManager) RegisterChannel(name string, ch channel.INotifyChannel) error {
	if name == "" {
		return fmt.Errorf("channel name cannot be empty")
	}
	if ch == nil {
		return fmt.Errorf("channel cannot be nil")
	}
	if err := ch.Validate(); err != nil {
		return fmt.Errorf("channel validation failed: %w", err)
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.channels[name] = ch
	return nil
}

// GetChannel gets a notification channel by name
func (nm *NotifyManager) GetChannel(name string) (channel.INotifyChannel, error) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	ch, exists := nm.channels[name]
	if !exists {
		return nil, fmt.Errorf("channel %s not found", name)
	}
	return ch, nil
}

// ListChannels lists all registered channel names
func (nm *NotifyManager) ListChannels() []string {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	names := make([]string, 0, len(nm.channels))
	for name := range nm.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ShouldNotify applies a pipeline's notification filter. Without a filter,
// failed stages and every finished run notify. Approval requests notify
// unless a filter exists and leaves them off.
func ShouldNotify(cfg *pipeline.Notifications, kind Kind, status string) bool {
	switch kind {
	case KindApprovalRequested:
		return cfg == nil || cfg.Approvals
	case KindStageFinished:
		if cfg == nil {
			return status == "failed"
		}
		return slices.Contains(cfg.Stages, status)
	case KindRunFinished:
		if cfg == nil {
			return true
		}
		return slices.Contains(cfg.Runs, status)
	}
	return false
}

// Notify renders n and delivers it to its channels concurrently. Delivery
// uses a context detached from ctx's cancellation, so a canceled run still
// reports. Failures are logged, counted and returned joined; they never
// affect the caller's state.
func (nm *NotifyManager) Notify(ctx context.Context, n Notification) error {
	title, text, err := nm.engine.RenderType(template.TemplateType(n.Kind), n)
	if err != nil {
		return fmt.Errorf("render %s: %w", n.Kind, err)
	}
	msg := &channel.Message{
		Kind:   string(n.Kind),
		Title:  title,
		Text:   text,
		Status: n.Status,
		Fields: fields(n),
		SentAt: time.Now(),
	}

	targets := nm.targets(n.Channels)
	if len(targets) == 0 {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	// each channel reports into its own slot so every failure is returned
	errs := make([]error, len(targets))
	var g errgroup.Group
	for i, name := range targets {
		g.Go(func() error {
			ch, err := nm.GetChannel(name)
			if err != nil {
				errs[i] = err
				return err
			}
			err = nm.deliver(ctx, name, ch, msg)
			nm.metrics.ObserveNotification(name, err)
			if err != nil {
				if nm.logger.Log != nil {
					nm.logger.Log.Errorw("notification failed", "channel", name, "kind", n.Kind,
						"run_id", n.RunID, "stage", n.Stage, "error", err)
				}
				errs[i] = fmt.Errorf("channel %s: %w", name, err)
			}
			return errs[i]
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}
	return errors.Join(errs...)
}

func (nm *NotifyManager) deliver(ctx context.Context, name string, ch channel.INotifyChannel, msg *channel.Message) error {
	return retry.Do(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, nm.conf.Timeout)
		defer cancel()
		return ch.Send(attemptCtx, msg)
	},
		retry.WithMaxAttempts(nm.conf.Attempts),
		retry.WithBackoff(retry.Exponential(nm.conf.RetryBackoff, 30*time.Second)),
		retry.WithJitter(retry.FullJitter),
		// a timed out attempt is worth another try
		retry.WithRetryIf(func(err error) bool { return err != nil }),
		retry.WithOnRetry(func(attempt int, err error) {
			if nm.logger.Log != nil {
				nm.logger.Log.Warnw("notification attempt failed", "channel", name, "attempt", attempt, "error", err)
			}
		}),
	)
}

// targets returns the requested channels that exist, or all when none requested
func (nm *NotifyManager) targets(requested []string) []string {
	if len(requested) == 0 {
		return nm.ListChannels()
	}
	return requested
}

func fields(n Notification) map[string]any {
	f := map[string]any{
		"pipeline": n.Pipeline,
		"run_id":   n.RunID,
		"event":    n.Event,
		"branch":   n.Branch,
		"sha":      n.SHA,
		"status":   n.Status,
	}
	for k, v := range map[string]string{
		"stage":       n.Stage,
		"environment": n.Environment,
		"actor":       n.Actor,
		"url":         n.URL,
		"error":       n.Error,
		"approval_id": n.ApprovalID,
	} {
		if v != "" {
			f[k] = v
		}
	}
	if n.Duration > 0 {
		f["duration_seconds"] = n.Duration.Seconds()
	}
	if len(n.Approvers) > 0 {
		f["approvers"] = n.Approvers
	}
	if !n.ExpiresAt.IsZero() {
		f["expires_at"] = n.ExpiresAt
	}
	return f
}
