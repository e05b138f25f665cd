package cron

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_AddFunc(t *testing.T) {
	s := New(log.Nop())
	require.NoError(t, s.AddFunc("sweep", "@every 1m", func() {}))
	assert.ErrorIs(t, s.AddFunc("sweep", "@every 1m", func() {}), ErrDuplicateJob)
	assert.Error(t, s.AddFunc("bad", "not a spec", func() {}))
	assert.Equal(t, []string{"sweep"}, s.Jobs())
}

func TestScheduler_Run(t *testing.T) {
	s := New(log.Nop())
	var n atomic.Int32
	require.NoError(t, s.AddFunc("count", "@hourly", func() { n.Add(1) }))
	require.NoError(t, s.AddFunc("boom", "@hourly", func() { panic("boom") }))

	require.NoError(t, s.Run("count"))
	assert.Equal(t, int32(1), n.Load())
	assert.NotPanics(t, func() { _ = s.Run("boom") })
	assert.ErrorIs(t, s.Run("missing"), ErrJobNotFound)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(log.Nop())
	var n atomic.Int32
	require.NoError(t, s.AddFunc("tick", "@every 1s", func() { n.Add(1) }))

	s.Start()
	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return n.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
	s.Stop()
}
