package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesScraped    int64
	ArticlesSelected   int64
	ArticlesSkipped    int64
	DuplicatesFiltered int64
	SummariesOK        int64
	SummariesFailed    int64
	CacheHits          int64
	MessagesSent       int64

	// Timings, per stage
	StageDurations map[string]time.Duration

	// Status
	RunID         string
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true, StageDurations: make(map[string]time.Duration)}
}

func (m *Metrics) AddScraped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesScraped += int64(n)
}

func (m *Metrics) AddSelected(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesSelected += int64(n)
}

func (m *Metrics) IncrementSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesSkipped++
}

func (m *Metrics) AddDuplicatesFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) IncrementSummaries(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.SummariesOK++
	} else {
		m.SummariesFailed++
	}
}

func (m *Metrics) IncrementCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *Metrics) IncrementMessagesSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSent++
}

func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StageDurations[stage] = duration
}

func (m *Metrics) SetRun(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunID = runID
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stages := make(map[string]int64, len(m.StageDurations))
	for name, d := range m.StageDurations {
		stages[name] = d.Milliseconds()
	}

	return map[string]interface{}{
		"run_id":              m.RunID,
		"articles_scraped":    m.ArticlesScraped,
		"articles_selected":   m.ArticlesSelected,
		"articles_skipped":    m.ArticlesSkipped,
		"duplicates_filtered": m.DuplicatesFiltered,
		"summaries_ok":        m.SummariesOK,
		"summaries_failed":    m.SummariesFailed,
		"cache_hits":          m.CacheHits,
		"messages_sent":       m.MessagesSent,
		"stage_duration_ms":   stages,
		"last_run_time":       m.LastRunTime.Format(time.RFC3339),
		"last_error_time":     m.LastErrorTime.Format(time.RFC3339),
		"last_error":          m.LastError,
		"is_healthy":          m.IsHealthy,
	}
}
