package approval

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-arcade/conveyor/pkg/cache"
	"github.com/go-arcade/conveyor/pkg/cron"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGate(t *testing.T, store Store) (*Gate, *clock, *metrics.PipelineMetrics) {
	t.Helper()
	m := metrics.NewPipelineMetrics(prometheus.NewRegistry())
	g := NewGate(store, Conf{PollInterval: 20 * time.Millisecond}, m, log.Nop())
	c := &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g.now = c.Now
	return g, c, m
}

func prodRequest() Request {
	return Request{
		RunID:       "run-1",
		Pipeline:    "web-app",
		Stage:       "deploy-prod",
		Environment: "production",
		Approvers:   []string{"alice", "bob"},
		Timeout:     time.Hour,
	}
}

func TestGate_Approve(t *testing.T) {
	ctx := context.Background()
	g, c, m := newTestGate(t, NewMemoryStore())

	a, err := g.Request(ctx, prodRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, a.Status)
	assert.Equal(t, c.Now().Add(time.Hour), a.ExpiresAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ApprovalsPending))

	_, err = g.Approve(ctx, a.ID, "mallory", "")
	assert.ErrorIs(t, err, ErrUnauthorizedApprover)
	_, err = g.Approve(ctx, a.ID, "", "")
	assert.ErrorIs(t, err, ErrUnauthorizedApprover)

	decided, err := g.Approve(ctx, a.ID, "alice", "ship it")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, decided.Status)
	assert.Equal(t, "alice", decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, c.Now(), *decided.DecidedAt)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ApprovalsPending))

	_, err = g.Reject(ctx, a.ID, "bob", "too late")
	assert.ErrorIs(t, err, ErrNotPending)

	got, err := g.Wait(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "ship it", got.Comment)

	_, err = g.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGate_WaitWokenByDecision(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGate(t, NewMemoryStore())
	g.conf.PollInterval = time.Hour

	a, err := g.Request(ctx, prodRequest())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := g.Wait(ctx, a.ID)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	_, err = g.Reject(ctx, a.ID, "bob", "not today")
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrRejected)
		assert.Contains(t, err.Error(), "bob")
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken")
	}
	assert.Zero(t, g.pendingWaiters())
}

func TestGate_WaitSeesForeignDecision(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	g, _, _ := newTestGate(t, store)
	other, _, _ := newTestGate(t, store)

	a, err := g.Request(ctx, prodRequest())
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = other.Approve(ctx, a.ID, "alice", "")
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	got, err := g.Wait(waitCtx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestGate_Expiry(t *testing.T) {
	ctx := context.Background()
	g, c, m := newTestGate(t, NewMemoryStore())

	a, err := g.Request(ctx, prodRequest())
	require.NoError(t, err)
	c.Advance(2 * time.Hour)

	_, err = g.Approve(ctx, a.ID, "alice", "")
	assert.ErrorIs(t, err, ErrExpired)

	got, err := g.Wait(ctx, a.ID)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, StatusExpired, got.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ApprovalsDecided.WithLabelValues("expired")))
}

func TestGate_WaitCanceled(t *testing.T) {
	g, _, _ := newTestGate(t, NewMemoryStore())
	a, err := g.Request(context.Background(), prodRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = g.Wait(ctx, a.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, g.pendingWaiters())

	require.NoError(t, g.Cancel(context.Background(), a.ID, "run canceled"))
	require.NoError(t, g.Cancel(context.Background(), a.ID, "again"))
	_, err = g.Wait(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrCanceled)
}

func TestGate_Sweep(t *testing.T) {
	ctx := context.Background()
	g, c, m := newTestGate(t, NewMemoryStore())

	short := prodRequest()
	short.Timeout = time.Minute
	stale, err := g.Request(ctx, short)
	require.NoError(t, err)
	fresh, err := g.Request(ctx, prodRequest())
	require.NoError(t, err)

	c.Advance(10 * time.Minute)
	n, err := g.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepRunsTotal))

	got, _ := g.Get(ctx, stale.ID)
	assert.Equal(t, StatusExpired, got.Status)
	got, _ = g.Get(ctx, fresh.ID)
	assert.Equal(t, StatusPending, got.Status)

	pending, err := g.List(ctx, Filter{Status: StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fresh.ID, pending[0].ID)

	sched := cron.New(log.Nop())
	require.NoError(t, g.StartSweeper(sched))
	assert.Equal(t, []string{SweepJob}, sched.Jobs())
	require.NoError(t, sched.Run(SweepJob))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SweepRunsTotal))
}

func TestGate_DefaultsAndOpenApprovers(t *testing.T) {
	ctx := context.Background()
	g, c, _ := newTestGate(t, NewMemoryStore())

	a, err := g.Request(ctx, Request{RunID: "run-2", Stage: "deploy-prod"})
	require.NoError(t, err)
	assert.Equal(t, c.Now().Add(24*time.Hour), a.ExpiresAt)

	_, err = g.Approve(ctx, a.ID, "anyone", "")
	require.NoError(t, err)
}

func TestMemoryStore_Conflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := &Approval{ID: "a1", Status: StatusPending}
	require.NoError(t, s.Create(ctx, a))
	assert.Error(t, s.Create(ctx, a))

	a.Status = StatusApproved
	require.NoError(t, s.Update(ctx, a, StatusPending))
	a.Status = StatusRejected
	assert.ErrorIs(t, s.Update(ctx, a, StatusPending), ErrConflict)
	assert.ErrorIs(t, s.Update(ctx, &Approval{ID: "nope"}, StatusPending), ErrNotFound)

	// stored values are copies
	got, _ := s.Get(ctx, "a1")
	got.Status = StatusExpired
	again, _ := s.Get(ctx, "a1")
	assert.Equal(t, StatusApproved, again.Status)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("CONVEYOR_TEST_REDIS")
	if addr == "" {
		t.Skip("CONVEYOR_TEST_REDIS not set")
	}
	client, cleanup, err := cache.ProvideRedis(cache.Redis{Address: addr})
	require.NoError(t, err)
	defer cleanup()

	g, _, _ := newTestGate(t, NewRedisStore(client))
	ctx := context.Background()
	a, err := g.Request(ctx, prodRequest())
	require.NoError(t, err)
	_, err = g.Approve(ctx, a.ID, "bob", "")
	require.NoError(t, err)

	got, err := g.Wait(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.DecidedBy)
	client.Del(ctx, approvalKey(a.ID))
	client.SRem(ctx, redisIndexKey, a.ID)
}
