package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudget_Exhausts(t *testing.T) {
	b := NewBudget("gemini", 2, nil)
	require.NoError(t, b.Use())
	assert.True(t, b.CanUse())
	require.NoError(t, b.Use())
	assert.False(t, b.CanUse())
	assert.Equal(t, 0, b.Remaining())

	err := b.Use()
	assert.ErrorIs(t, err, ErrBudgetExhausted)
}

func TestBudget_Unlimited(t *testing.T) {
	b := NewBudget("gemini", 0, nil)
	for i := 0; i < 100; i++ {
		require.NoError(t, b.Use())
	}
	assert.True(t, b.CanUse())
	assert.Equal(t, -1, b.Remaining())
}

func TestBudget_CacheStats(t *testing.T) {
	b := NewBudget("gemini", 10, nil)
	require.NoError(t, b.Use())
	b.RecordCacheHit()

	stats := b.GetStats()
	assert.Equal(t, 1, stats["cache_hits"])
	assert.Equal(t, 1, stats["used"])
	assert.InDelta(t, 50.0, stats["cache_hit_rate"], 0.001)
	b.LogStats()
}
