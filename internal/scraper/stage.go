package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/metrics"
	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/retry"
	"github.com/deusflow/newsletter/internal/rss"
	"github.com/deusflow/newsletter/internal/storage"
)

// Stage scrapes every configured site and feed and writes the raw
// snapshot.
type Stage struct {
	Config      *config.Scraping
	BaseDir     string
	Retry       retry.Config
	Concurrency int
	Client      *http.Client // optional
	Log         *slog.Logger
	Now         func() time.Time
}

// Run executes the stage and returns the path of the written snapshot.
// Sites that fail are logged and skipped; an empty snapshot is still
// written so later stages see today's run.
func (s *Stage) Run(ctx context.Context) (string, error) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	day := now()

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: s.Config.RequestTimeout}
	}

	sc := New(Options{
		Headers:     s.Config.Headers,
		Retry:       s.Retry,
		Concurrency: s.Concurrency,
		MaxPerSite:  s.Config.MaxArticlesPerSite,
		Client:      client,
	}, log)
	defer sc.Close()

	all := []news.Article{}
	for _, site := range s.Config.Sites {
		log.Info("scraping site", "site", site.Name)
		articles, err := sc.ScrapeSite(ctx, site, day)
		if err != nil {
			log.Error("could not scrape site", "site", site.Name, "error", err)
			continue
		}
		log.Info("site scraped", "site", site.Name, "articles", len(articles))
		all = append(all, articles...)
	}

	if len(s.Config.Feeds) > 0 {
		fetcher := rss.NewFetcher(client, s.Config.Headers["User-Agent"], log)
		all = append(all, fetcher.FetchAll(ctx, s.Config.Feeds, day)...)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	metrics.Global.AddScraped(len(all))
	out, err := storage.WriteJSON(config.Resolve(s.BaseDir, s.Config.OutputDir), storage.ScrapedPrefix, day, all)
	if err != nil {
		return "", fmt.Errorf("save scraped news: %w", err)
	}
	log.Info("scraped news saved", "file", out, "articles", len(all))
	return out, nil
}
