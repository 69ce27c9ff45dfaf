package rss

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/news"
)

// Fetcher turns RSS and Atom feeds into articles.
type Fetcher struct {
	parser *gofeed.Parser
	log    *slog.Logger
}

// NewFetcher creates a fetcher that uses client for every request.
func NewFetcher(client *http.Client, userAgent string, log *slog.Logger) *Fetcher {
	p := gofeed.NewParser()
	p.Client = client
	if userAgent != "" {
		p.UserAgent = userAgent
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{parser: p, log: log}
}

// FetchAll downloads every feed. A feed that fails is logged and skipped.
func (f *Fetcher) FetchAll(ctx context.Context, feeds []config.Feed, day time.Time) []news.Article {
	var all []news.Article
	ok := 0

	for _, feed := range feeds {
		parsed, err := f.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			f.log.Warn("error parsing feed", "feed", feed.Name, "url", feed.URL, "error", err)
			continue
		}
		for _, item := range parsed.Items {
			if a, keep := toArticle(feed.Name, item, day); keep {
				all = append(all, a)
			}
		}
		ok++
		f.log.Info("loaded feed", "feed", feed.Name, "items", len(parsed.Items))
	}

	f.log.Info("processed feeds", "ok", ok, "total", len(feeds))
	return all
}

func toArticle(source string, item *gofeed.Item, day time.Time) (news.Article, bool) {
	if item == nil || item.Link == "" {
		return news.Article{}, false
	}
	date := day
	if item.PublishedParsed != nil {
		date = *item.PublishedParsed
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "No title available"
	}
	content := plainText(body)
	if content == "" {
		content = "No content available"
	}

	return news.Article{
		Title:   title,
		Link:    item.Link,
		Content: content,
		Source:  source,
		Date:    date.Format("2006-01-02"),
	}, true
}

// plainText drops markup from feed HTML.
func plainText(html string) string {
	if !strings.Contains(html, "<") {
		return strings.TrimSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
