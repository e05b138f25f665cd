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

package approval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-arcade/conveyor/pkg/cron"
	"github.com/go-arcade/conveyor/pkg/id"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/metrics"
)

// SweepJob is the cron job name of the expiry sweeper
const SweepJob = "approval-sweep"

// Conf configures the gate
type Conf struct {
	// Store is memory or redis
	Store string `mapstructure:"store"`
	// DefaultTimeout applies when a request carries none
	DefaultTimeout time.Duration `mapstructure:"defaultTimeout"`
	// PollInterval bounds how long Wait goes without re-reading the store
	PollInterval time.Duration `mapstructure:"pollInterval"`
	// SweepSpec is the cron spec of the expiry sweeper
	SweepSpec string `mapstructure:"sweepSpec"`
}

func (c *Conf) SetDefaults() {
	if c.Store == "" {
		c.Store = "memory"
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 24 * time.Hour
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.SweepSpec == "" {
		c.SweepSpec = "@every 1m"
	}
}

// Gate suspends gated stages until someone decides
type Gate struct {
	store   Store
	conf    Conf
	logger  log.Logger
	metrics *metrics.PipelineMetrics
	now     func() time.Time

	mu      sync.Mutex
	waiters map[string]*waiter
}

// waiter is shared by every Wait on one approval
type waiter struct {
	ch   chan struct{}
	refs int
}

func NewGate(store Store, conf Conf, m *metrics.PipelineMetrics, logger log.Logger) *Gate {
	conf.SetDefaults()
	return &Gate{
		store:   store,
		conf:    conf,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		waiters: make(map[string]*waiter),
	}
}

// Request records a pending approval
func (g *Gate) Request(ctx context.Context, req Request) (*Approval, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = g.conf.DefaultTimeout
	}
	now := g.now()
	a := &Approval{
		ID:          id.GetUlid(),
		RunID:       req.RunID,
		Pipeline:    req.Pipeline,
		Stage:       req.Stage,
		Environment: req.Environment,
		Approvers:   req.Approvers,
		Status:      StatusPending,
		RequestedAt: now,
		ExpiresAt:   now.Add(timeout),
	}
	if err := g.store.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create approval: %w", err)
	}
	g.metrics.ApprovalRequested()
	if g.logger.Log != nil {
		g.logger.Log.Infow("approval requested", "approval_id", a.ID, "run_id", a.RunID,
			"stage", a.Stage, "environment", a.Environment, "expires_at", a.ExpiresAt)
	}
	return a, nil
}

func (g *Gate) Get(ctx context.Context, id string) (*Approval, error) {
	return g.store.Get(ctx, id)
}

func (g *Gate) List(ctx context.Context, f Filter) ([]*Approval, error) {
	return g.store.List(ctx, f)
}

// Approve lets the gated stage run
func (g *Gate) Approve(ctx context.Context, id, approver, comment string) (*Approval, error) {
	return g.decide(ctx, id, approver, comment, StatusApproved)
}

// Reject fails the gated stage
func (g *Gate) Reject(ctx context.Context, id, approver, comment string) (*Approval, error) {
	return g.decide(ctx, id, approver, comment, StatusRejected)
}

// Cancel withdraws a pending approval, for example when its run is canceled
func (g *Gate) Cancel(ctx context.Context, id, reason string) error {
	_, err := g.decide(ctx, id, "", reason, StatusCanceled)
	if errors.Is(err, ErrNotPending) {
		return nil
	}
	return err
}

func (g *Gate) decide(ctx context.Context, id, approver, comment string, to Status) (*Approval, error) {
	a, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusPending {
		return a, fmt.Errorf("%w: %s is %s", ErrNotPending, id, a.Status)
	}
	now := g.now()
	if a.Overdue(now) {
		if err := g.expire(ctx, a); err != nil {
			return nil, err
		}
		return a, fmt.Errorf("%w: %s", ErrExpired, id)
	}
	if to != StatusCanceled && !a.CanDecide(approver) {
		return a, fmt.Errorf("%w: %q on %s", ErrUnauthorizedApprover, approver, id)
	}

	a.Status = to
	a.DecidedBy = approver
	a.DecidedAt = &now
	a.Comment = comment
	if err := g.store.Update(ctx, a, StatusPending); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrNotPending, err)
		}
		return nil, err
	}
	g.resolved(a)
	return a, nil
}

func (g *Gate) expire(ctx context.Context, a *Approval) error {
	now := g.now()
	a.Status = StatusExpired
	a.DecidedAt = &now
	a.Comment = "expired"
	if err := g.store.Update(ctx, a, StatusPending); err != nil {
		if errors.Is(err, ErrConflict) {
			// decided elsewhere first
			return nil
		}
		return err
	}
	g.resolved(a)
	return nil
}

func (g *Gate) resolved(a *Approval) {
	g.metrics.ApprovalResolved(string(a.Status))
	if g.logger.Log != nil {
		g.logger.Log.Infow("approval resolved", "approval_id", a.ID, "run_id", a.RunID,
			"stage", a.Stage, "status", a.Status, "decided_by", a.DecidedBy)
	}
	g.wake(a.ID)
}

// signal returns the channel closed on the next decision for id. release
// must be called once the caller stops listening.
func (g *Gate) signal(id string) (<-chan struct{}, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	w, ok := g.waiters[id]
	if !ok {
		w = &waiter{ch: make(chan struct{})}
		g.waiters[id] = w
	}
	w.refs++
	release := func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		w.refs--
		if w.refs == 0 && g.waiters[id] == w {
			delete(g.waiters, id)
		}
	}
	return w.ch, release
}

func (g *Gate) wake(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if w, ok := g.waiters[id]; ok {
		close(w.ch)
		delete(g.waiters, id)
	}
}

func (g *Gate) pendingWaiters() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

// Wait blocks until the approval is decided, expires or ctx is done. It
// returns nil only for approved; ErrRejected, ErrExpired and ErrCanceled
// report the other outcomes. Decisions made in this process wake the waiter
// at once; decisions written to a shared store by another process are seen
// on the next poll.
func (g *Gate) Wait(ctx context.Context, id string) (*Approval, error) {
	for {
		a, done, err := g.waitOnce(ctx, id)
		if done {
			return a, err
		}
	}
}

// waitOnce checks the approval and sleeps until a decision, the next poll or
// ctx is done. done is false when the caller should check again.
func (g *Gate) waitOnce(ctx context.Context, id string) (*Approval, bool, error) {
	wake, release := g.signal(id)
	defer release()

	a, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, true, err
	}
	switch a.Status {
	case StatusApproved:
		return a, true, nil
	case StatusRejected:
		return a, true, fmt.Errorf("%w by %s", ErrRejected, a.DecidedBy)
	case StatusExpired:
		return a, true, ErrExpired
	case StatusCanceled:
		return a, true, ErrCanceled
	}

	now := g.now()
	if a.Overdue(now) {
		if err := g.expire(ctx, a); err != nil {
			return nil, true, err
		}
		return a, false, nil
	}

	wait := g.conf.PollInterval
	if left := a.ExpiresAt.Sub(now); left < wait {
		wait = left
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return a, true, ctx.Err()
	case <-wake:
	case <-timer.C:
	}
	return a, false, nil
}

// Sweep expires every overdue pending approval and returns how many
func (g *Gate) Sweep(ctx context.Context) (int, error) {
	pending, err := g.store.List(ctx, Filter{Status: StatusPending})
	if err != nil {
		return 0, err
	}
	now := g.now()
	n := 0
	for _, a := range pending {
		if !a.Overdue(now) {
			continue
		}
		if err := g.expire(ctx, a); err != nil {
			return n, err
		}
		n++
	}
	g.metrics.ObserveSweep()
	return n, nil
}

// StartSweeper registers Sweep on the scheduler
func (g *Gate) StartSweeper(s *cron.Scheduler) error {
	return s.AddFunc(SweepJob, g.conf.SweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := g.Sweep(ctx)
		if g.logger.Log == nil {
			return
		}
		if err != nil {
			g.logger.Log.Errorw("approval sweep failed", "error", err)
		} else if n > 0 {
			g.logger.Log.Infow("expired overdue approvals", "count", n)
		}
	})
}
