package selector

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/news"
)

var errUnknownTopic = errors.New("best topic has no section")

// Engine deduplicates, scores and buckets one batch of articles. It holds
// configuration only; all run state lives in the values Select threads
// through.
type Engine struct {
	profiles  Profiles
	detector  Detector
	topics    []string
	patterns  []*regexp.Regexp
	threshold float64
	maxItems  int
	workers   int
	log       *slog.Logger
}

// NewEngine builds an engine from validated selection configuration.
// Sections follow the topic order of the en profile.
func NewEngine(cfg *config.Selection, detector Detector, log *slog.Logger) (*Engine, error) {
	profiles, err := NewProfiles(cfg)
	if err != nil {
		return nil, err
	}
	if detector == nil {
		detector = StatisticalDetector{}
	}
	if log == nil {
		log = slog.Default()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		profiles:  profiles,
		detector:  detector,
		topics:    cfg.TopicNames(),
		patterns:  cfg.PatternsToRemove,
		threshold: float64(cfg.ScoreThreshold),
		maxItems:  cfg.MaxNewsPerBlock,
		workers:   workers,
		log:       log,
	}, nil
}

// Select runs the whole transform: dedupe, pre-clean, classify, trim.
func (e *Engine) Select(articles []news.Article) news.Selection {
	unique := news.Dedupe(articles)
	dropped := len(articles) - len(unique)
	if dropped > 0 {
		e.log.Info("removed duplicate articles", "duplicates", dropped)
	}
	cleaned := news.StripPatterns(unique, e.patterns)

	sel := e.Classify(cleaned)
	sel.Duplicates = dropped
	sel.Sections = Trim(sel.Sections, e.maxItems)
	for _, sec := range sel.Sections {
		e.log.Info("section selected", "topic", sec.Topic, "articles", len(sec.Items))
	}
	return sel
}

// scored is the per-article result of detection, normalisation and scoring.
type scored struct {
	article news.Article
	err     error
}

// leadTracker is the fold accumulator for lead promotion.
type leadTracker struct {
	highest float64
	lead    *news.Article
}

// observe promotes a to lead only when it beats the current maximum, so the
// earliest article to reach a score keeps the lead on ties.
func (t leadTracker) observe(a news.Article) leadTracker {
	if s := a.ScoreValue(); s > t.highest {
		lead := a
		return leadTracker{highest: s, lead: &lead}
	}
	return t
}

// Classify scores articles and places each in its best topic section or in
// overflow. Articles that cannot be scored are logged and listed in Skipped.
// Input order is preserved inside every bucket.
func (e *Engine) Classify(articles []news.Article) news.Selection {
	results := e.scoreAll(articles)

	sel := news.Selection{
		Sections: make(news.Sections[news.Article], len(e.topics)),
		Overflow: []news.Article{},
	}
	for i, topic := range e.topics {
		sel.Sections[i] = news.Section[news.Article]{Topic: topic, Items: []news.Article{}}
	}

	var tracker leadTracker
	for i, r := range results {
		if r.err == nil && sel.Sections.Index(r.article.Topic) < 0 {
			r.err = fmt.Errorf("%w: %q", errUnknownTopic, r.article.Topic)
		}
		if r.err != nil {
			e.log.Warn("skipping article", "index", i, "title", articles[i].Title, "link", articles[i].Link, "error", r.err)
			sel.Skipped = append(sel.Skipped, articles[i])
			continue
		}

		a := r.article
		tracker = tracker.observe(a)
		if a.ScoreValue() >= e.threshold {
			idx := sel.Sections.Index(a.Topic)
			sel.Sections[idx].Items = append(sel.Sections[idx].Items, a)
		} else {
			sel.Overflow = append(sel.Overflow, a)
		}
	}
	sel.Lead = tracker.lead
	return sel
}

// scoreAll scores every article, concurrently when workers > 1. Results are
// indexed by input position, so the fold that follows sees the same order
// either way.
func (e *Engine) scoreAll(articles []news.Article) []scored {
	results := make([]scored, len(articles))
	if e.workers == 1 || len(articles) < 2 {
		for i, a := range articles {
			results[i] = e.scoreOne(a)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, a := range articles {
		i, a := i, a
		g.Go(func() error {
			results[i] = e.scoreOne(a)
			return nil
		})
	}
	_ = g.Wait() // workers report failures through results
	return results
}

func (e *Engine) scoreOne(a news.Article) scored {
	lang, err := detectArticle(e.detector, a)
	if err != nil {
		return scored{err: fmt.Errorf("detect language: %w", err)}
	}
	profile := e.profiles.For(lang)
	tokens := tokenSet(profile, a.Title, a.Content)
	s := Score(tokens, profile.Topics)
	return scored{article: a.WithScore(profile.Language, s.Best, s.BestScore)}
}
