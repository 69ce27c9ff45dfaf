package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newsletter/internal/cache"
	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/retry"
)

// Placeholders written when an article page cannot be read. The selector
// scores them like any other text.
const (
	NoTitle      = "No title available"
	NoContent    = "No content available"
	ErrorTitle   = "Error fetching title"
	ErrorContent = "Error fetching content"
)

const (
	minParagraph     = 20 // shorter paragraphs are captions or bylines
	enoughParagraphs = 3
)

var errStatus = errors.New("unexpected HTTP status")

// ArticleContent is the readable part of an article page.
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// Scraper lists article links on configured sites and extracts each
// article.
type Scraper struct {
	client      *http.Client
	headers     map[string]string
	retry       retry.Config
	concurrency int
	maxPerSite  int
	pages       *cache.Cache[*ArticleContent]
	log         *slog.Logger
}

// Options tunes a Scraper.
type Options struct {
	Headers     map[string]string
	Timeout     time.Duration
	Retry       retry.Config
	Concurrency int
	MaxPerSite  int
	Client      *http.Client // optional, for tests
}

func New(opts Options, log *slog.Logger) *Scraper {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scraper{
		client:      client,
		headers:     opts.Headers,
		retry:       opts.Retry,
		concurrency: opts.Concurrency,
		maxPerSite:  opts.MaxPerSite,
		pages:       cache.New[*ArticleContent](time.Hour, 0),
		log:         log,
	}
}

// Close releases the page cache.
func (s *Scraper) Close() {
	s.pages.Close()
}

// fetch GETs rawURL with the configured headers and parses the HTML.
func (s *Scraper) fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := retry.Do(ctx, s.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		for k, v := range s.headers {
			req.Header.Set(k, v)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("error loading page: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("%w: %d", errStatus, resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retry.Permanent(err)
			}
			return err
		}

		d, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return fmt.Errorf("error parsing HTML: %w", err)
		}
		doc = d
		return nil
	})
	return doc, err
}

// ListLinks returns the absolute article links found on a site's listing
// page, in page order and without repeats.
func (s *Scraper) ListLinks(ctx context.Context, site config.Site) ([]string, error) {
	base, err := url.Parse(site.URL)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}
	doc, err := s.fetch(ctx, site.URL)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	containers := doc.Find(site.NewsContainer)
	if containers.Length() == 0 {
		return nil, fmt.Errorf("site %s: no containers match %q", site.Name, site.NewsContainer)
	}

	seen := make(map[string]struct{})
	var links []string
	containers.Each(func(_ int, c *goquery.Selection) {
		if s.maxPerSite > 0 && len(links) >= s.maxPerSite {
			return
		}
		href, ok := c.Find(site.LinkTag).First().Attr(site.LinkAttr)
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		link := base.ResolveReference(ref).String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links, nil
}

// ExtractFullArticle gets the title and main text of an article page.
func (s *Scraper) ExtractFullArticle(ctx context.Context, link string) (*ArticleContent, error) {
	if a, ok := s.pages.Get(link); ok {
		return a, nil
	}
	doc, err := s.fetch(ctx, link)
	if err != nil {
		return nil, err
	}
	a := &ArticleContent{
		Title:   extractTitle(doc),
		Content: cleanContent(extractContent(doc)),
		URL:     link,
	}
	s.pages.Set(link, a)
	return a, nil
}

// ScrapeSite collects every article linked from a site. Pages that fail to
// load become placeholder records instead of being dropped.
func (s *Scraper) ScrapeSite(ctx context.Context, site config.Site, day time.Time) ([]news.Article, error) {
	links, err := s.ListLinks(ctx, site)
	if err != nil {
		return nil, err
	}

	date := day.Format("2006-01-02")
	articles := make([]news.Article, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			title, content := NoTitle, NoContent
			page, err := s.ExtractFullArticle(gctx, link)
			switch {
			case err != nil:
				s.log.Warn("could not fetch article", "site", site.Name, "url", link, "error", err)
				title, content = ErrorTitle, ErrorContent
			default:
				if page.Title != "" {
					title = page.Title
				}
				if page.Content != "" {
					content = page.Content
				}
			}
			articles[i] = news.Article{Title: title, Link: link, Content: content, Source: site.Name, Date: date}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return articles, nil
}

// extractContent tries common article body selectors, most specific first.
func extractContent(doc *goquery.Document) string {
	selectors := []string{
		"article p",
		".article-body p",
		".article p",
		".content p",
		".post-content p",
		".entry-content p",
		"main p",
		"#content p",
		"p",
	}

	var best []string
	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > minParagraph {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > len(best) {
			best = paragraphs
		}
		if len(best) >= enoughParagraphs {
			break
		}
	}
	return strings.Join(best, "\n\n")
}

// extractTitle gets the article headline.
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		".article-title",
		".headline",
		".entry-title",
		"title",
	}

	for _, selector := range selectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return strings.Join(strings.Fields(title), " ")
		}
	}
	return ""
}

var junkIndicators = []string{
	"cookie", "gdpr", "newsletter sign", "subscribe", "suscríbete",
	"read more", "leer más", "share this", "compartir", "all rights reserved",
}

// cleanContent drops boilerplate paragraphs and collapses whitespace.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	var kept []string
	for _, paragraph := range strings.Split(content, "\n\n") {
		paragraph = strings.Join(strings.Fields(paragraph), " ")
		if paragraph == "" {
			continue
		}
		lower := strings.ToLower(paragraph)
		junk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				junk = true
				break
			}
		}
		if !junk {
			kept = append(kept, paragraph)
		}
	}
	return strings.Join(kept, "\n\n")
}
