package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CachedSummary is a summary produced in an earlier run.
type CachedSummary struct {
	Key        string    `json:"key"`
	Summary    string    `json:"summary"`
	KeyConcept string    `json:"key_concept"`
	Language   string    `json:"language"`
	CreatedAt  time.Time `json:"created_at"`
}

// SummaryCache keeps summaries in a JSON file so reruns of the redaction
// stage do not pay for the same model calls twice.
type SummaryCache struct {
	filePath string
	ttl      time.Duration
	items    map[string]CachedSummary
	mu       sync.RWMutex
	now      func() time.Time
}

// NewSummaryCache creates a cache backed by filePath. Entries older than ttl
// are dropped on Load and ignored by Get.
func NewSummaryCache(filePath string, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		filePath: filePath,
		ttl:      ttl,
		items:    make(map[string]CachedSummary),
		now:      time.Now,
	}
}

// Load reads the cache file. A missing or empty file is an empty cache.
func (sc *SummaryCache) Load() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	data, err := os.ReadFile(sc.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read summary cache: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var items []CachedSummary
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to unmarshal summary cache: %w", err)
	}

	cutoff := sc.now().Add(-sc.ttl)
	for _, item := range items {
		if item.CreatedAt.After(cutoff) {
			sc.items[item.Key] = item
		}
	}
	return nil
}

// Save writes every live entry back to disk, oldest first.
func (sc *SummaryCache) Save() error {
	sc.mu.RLock()
	items := make([]CachedSummary, 0, len(sc.items))
	for _, item := range sc.items {
		items = append(items, item)
	}
	sc.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].Key < items[j].Key
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary cache: %w", err)
	}
	if _, err := WriteFile(filepath.Dir(sc.filePath), filepath.Base(sc.filePath), data); err != nil {
		return fmt.Errorf("failed to write summary cache: %w", err)
	}
	return nil
}

// Key derives a stable cache key from the text being summarised, the word
// budget and the output language.
func (sc *SummaryCache) Key(text string, budget int, language string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	h := sha256.New()
	h.Write([]byte(language + "|" + strconv.Itoa(budget) + "|" + normalized))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Get returns the cached summary for key if it is still within the TTL.
func (sc *SummaryCache) Get(key string) (CachedSummary, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	item, ok := sc.items[key]
	if !ok || !item.CreatedAt.After(sc.now().Add(-sc.ttl)) {
		return CachedSummary{}, false
	}
	return item, true
}

// Put stores a summary under key.
func (sc *SummaryCache) Put(key, summary, keyConcept, language string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.items[key] = CachedSummary{
		Key:        key,
		Summary:    summary,
		KeyConcept: keyConcept,
		Language:   language,
		CreatedAt:  sc.now(),
	}
}

// Cleanup removes expired entries from memory.
func (sc *SummaryCache) Cleanup() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	cutoff := sc.now().Add(-sc.ttl)
	removed := 0
	for key, item := range sc.items {
		if !item.CreatedAt.After(cutoff) {
			delete(sc.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries held in memory.
func (sc *SummaryCache) Len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.items)
}
