package redactor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/storage"
)

// Stage reads the latest selection and writes the redacted snapshot.
type Stage struct {
	Config   *config.Redaction
	BaseDir  string
	Redactor *Redactor
	Log      *slog.Logger
	Now      func() time.Time
}

// Run executes the stage and returns the path of the written snapshot.
func (s *Stage) Run(ctx context.Context) (string, error) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	var sel news.Selection
	in, err := storage.ReadLatest(config.Resolve(s.BaseDir, s.Config.InputDir), storage.SelectedPrefix, &sel)
	if err != nil {
		return "", err
	}
	log.Info("redacting news", "file", in, "articles", sel.Sections.Len())

	red := s.Redactor.Redact(ctx, sel)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	out, err := storage.WriteJSON(config.Resolve(s.BaseDir, s.Config.OutputDir), storage.RedactedPrefix, now(), red)
	if err != nil {
		return "", fmt.Errorf("save redacted news: %w", err)
	}
	log.Info("redacted news saved", "file", out)
	return out, nil
}
