// Package selector ranks scraped articles by topic keywords and picks the
// lead story and the per-topic sections of an issue.
package selector

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/metrics"
	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/storage"
)

// Stage reads the latest scraped snapshot, runs the engine on it and
// writes the selected snapshot.
type Stage struct {
	Config   *config.Selection
	BaseDir  string
	Detector Detector
	Log      *slog.Logger
	Now      func() time.Time
}

// Run executes the stage and returns the path of the written snapshot.
func (s *Stage) Run() (string, error) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	engine, err := NewEngine(s.Config, s.Detector, log)
	if err != nil {
		return "", err
	}

	inputDir := config.Resolve(s.BaseDir, s.Config.InputDir)
	var articles []news.Article
	input, err := storage.ReadLatest(inputDir, storage.ScrapedPrefix, &articles)
	if err != nil {
		return "", fmt.Errorf("load scraped news: %w", err)
	}
	log.Info("loaded scraped news", "file", input, "articles", len(articles))

	sel := engine.Select(articles)
	metrics.Global.AddDuplicatesFiltered(sel.Duplicates)
	for range sel.Skipped {
		metrics.Global.IncrementSkipped()
	}
	metrics.Global.AddSelected(sel.Sections.Len())
	log.Info("news categorised",
		"accepted", sel.Accepted(),
		"uncategorized", len(sel.Overflow),
		"skipped", len(sel.Skipped),
		"has_lead", sel.Lead != nil)

	out, err := storage.WriteJSON(config.Resolve(s.BaseDir, s.Config.OutputDir), storage.SelectedPrefix, now(), sel)
	if err != nil {
		return "", fmt.Errorf("save selected news: %w", err)
	}
	log.Info("selected news saved", "file", out)
	return out, nil
}
