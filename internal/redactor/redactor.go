// Package redactor shortens every selected article into a newsletter item
// in the target language.
package redactor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/deusflow/newsletter/internal/gemini"
	"github.com/deusflow/newsletter/internal/metrics"
	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/ratelimit"
	"github.com/deusflow/newsletter/internal/storage"
)

// Summarizer writes a summary of at most words words in target.
type Summarizer interface {
	Summarize(ctx context.Context, title, content string, words int, target news.Language) (gemini.Summary, error)
}

// Translator moves text from one language to another.
type Translator interface {
	Translate(ctx context.Context, text string, from, to news.Language) (string, error)
}

// Options wires a Redactor. Summarizer, Translator, Cache and Budget are
// all optional.
type Options struct {
	Summarizer Summarizer
	Translator Translator
	Cache      *storage.SummaryCache
	Budget     *ratelimit.Budget
	Target     news.Language
	MainBudget int
	ItemBudget int
}

type Redactor struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options, log *slog.Logger) *Redactor {
	if log == nil {
		log = slog.Default()
	}
	if opts.Target == "" {
		opts.Target = news.Spanish
	}
	return &Redactor{opts: opts, log: log}
}

// Redact summarises the lead with the main budget and every section item
// with the item budget. Overflow articles are not part of the issue.
func (r *Redactor) Redact(ctx context.Context, sel news.Selection) news.Redacted {
	out := news.Redacted{Sections: make(news.Sections[news.Item], 0, len(sel.Sections))}

	if sel.Lead != nil {
		r.log.Info("processing main news", "title", sel.Lead.Title)
		item := r.Item(ctx, *sel.Lead, r.opts.MainBudget)
		out.Main = &item
	}

	for _, sec := range sel.Sections {
		r.log.Info("processing block", "block", sec.Topic, "articles", len(sec.Items))
		items := make([]news.Item, 0, len(sec.Items))
		for _, a := range sec.Items {
			if ctx.Err() != nil {
				break
			}
			items = append(items, r.Item(ctx, a, r.opts.ItemBudget))
		}
		out.Sections = append(out.Sections, news.Section[news.Item]{Topic: sec.Topic, Items: items})
	}
	return out
}

// Item redacts one article. Cached summaries are reused; without a working
// model the first words of the article are translated instead.
func (r *Redactor) Item(ctx context.Context, a news.Article, words int) news.Item {
	text := a.Content
	if strings.TrimSpace(text) == "" {
		text = a.Title
	}
	item := news.Item{Link: a.Link, Title: a.Title, Language: r.opts.Target}

	var key string
	if c := r.opts.Cache; c != nil {
		key = c.Key(a.Title+"\n"+text, words, string(r.opts.Target))
		if hit, ok := c.Get(key); ok {
			metrics.Global.IncrementCacheHits()
			if r.opts.Budget != nil {
				r.opts.Budget.RecordCacheHit()
			}
			item.Summary, item.KeyConcept = hit.Summary, hit.KeyConcept
			return item
		}
	}

	if r.opts.Summarizer != nil {
		sum, err := r.opts.Summarizer.Summarize(ctx, a.Title, text, words, r.opts.Target)
		if err == nil {
			metrics.Global.IncrementSummaries(true)
			if r.opts.Cache != nil {
				r.opts.Cache.Put(key, sum.Text, sum.KeyConcept, string(r.opts.Target))
			}
			item.Summary, item.KeyConcept = sum.Text, sum.KeyConcept
			return item
		}
		metrics.Global.IncrementSummaries(false)
		r.log.Warn("summary failed, using extract", "link", a.Link, "error", err)
	}

	item.Summary = gemini.TruncateWords(text, words)
	from := a.Language
	if from == "" {
		from = news.English
	}
	if from == r.opts.Target {
		return item
	}
	if r.opts.Translator == nil {
		item.Language = from
		return item
	}
	translated, err := r.opts.Translator.Translate(ctx, item.Summary, from, r.opts.Target)
	if err != nil {
		r.log.Warn("translation failed, keeping original", "link", a.Link, "error", err)
		item.Language = from
		return item
	}
	item.Summary = translated
	return item
}
