package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDeduper(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewLocalDeduper(0)
	d.now = func() time.Time { return now }

	seen, err := d.Seen(ctx, "delivery-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, _ = d.Seen(ctx, "delivery-1", time.Hour)
	assert.True(t, seen)

	seen, _ = d.Seen(ctx, "delivery-2", time.Hour)
	assert.False(t, seen)

	// expired keys are recorded again
	now = now.Add(2 * time.Hour)
	seen, _ = d.Seen(ctx, "delivery-1", time.Hour)
	assert.False(t, seen)
	seen, _ = d.Seen(ctx, "delivery-1", time.Hour)
	assert.True(t, seen)
}

func TestProvideDeduper_Local(t *testing.T) {
	assert.IsType(t, &LocalDeduper{}, ProvideDeduper(nil))
}
