package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrBudgetExhausted is returned once a run has spent its model requests.
var ErrBudgetExhausted = errors.New("model request budget exhausted")

// Budget caps the model requests of one pipeline run and tracks how many
// calls the summary cache saved.
type Budget struct {
	mu          sync.Mutex
	name        string
	used        int
	max         int // 0 = unlimited
	cacheHits   int
	cacheMisses int
	log         *slog.Logger
}

// NewBudget creates a budget for the named service.
func NewBudget(name string, max int, log *slog.Logger) *Budget {
	if log == nil {
		log = slog.Default()
	}
	return &Budget{name: name, max: max, log: log}
}

// CanUse reports whether a request is still affordable.
func (b *Budget) CanUse() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.max == 0 || b.used < b.max
}

// Use spends one request.
func (b *Budget) Use() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.used >= b.max {
		return fmt.Errorf("%s: %w (%d/%d)", b.name, ErrBudgetExhausted, b.used, b.max)
	}
	b.used++
	b.cacheMisses++
	b.log.Debug("model request", "service", b.name, "used", b.used, "limit", b.max)
	return nil
}

// RecordCacheHit notes a request avoided thanks to the cache.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// Remaining returns the requests left, or -1 when unlimited.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max == 0 {
		return -1
	}
	return b.max - b.used
}

func (b *Budget) cacheHitRate() float64 {
	total := b.cacheHits + b.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(b.cacheHits) / float64(total) * 100
}

// GetStats returns current budget statistics.
func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]interface{}{
		"service":        b.name,
		"used":           b.used,
		"limit":          b.max,
		"cache_hits":     b.cacheHits,
		"cache_misses":   b.cacheMisses,
		"cache_hit_rate": b.cacheHitRate(),
	}
}

// LogStats writes the statistics at info level.
func (b *Budget) LogStats() {
	stats := b.GetStats()
	b.log.Info("model usage",
		"service", stats["service"],
		"used", stats["used"],
		"limit", stats["limit"],
		"cache_hits", stats["cache_hits"],
		"cache_hit_rate", fmt.Sprintf("%.1f%%", stats["cache_hit_rate"]))
}
