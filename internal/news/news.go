// Package news holds the records that travel between pipeline stages.
package news

import (
	"regexp"
	"strings"
)

// Language is the closed set of languages the pipeline keeps profiles for.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
)

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l == English || l == Spanish
}

// Article is a single scraped news record. Title, Link, Content, Source and
// Date are set at ingestion; Language, Topic and Score are filled in once by
// the selector.
type Article struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Content string `json:"content"`
	Source  string `json:"source"`
	Date    string `json:"date"` // YYYY-MM-DD

	Language Language `json:"language,omitempty"`
	Topic    string   `json:"topic,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// Identity is the comparable tuple of ingestion fields.
type Identity struct {
	Title   string
	Link    string
	Content string
	Source  string
	Date    string
}

// Identity returns the fields that define structural equality.
func (a Article) Identity() Identity {
	return Identity{
		Title:   a.Title,
		Link:    a.Link,
		Content: a.Content,
		Source:  a.Source,
		Date:    a.Date,
	}
}

// Scored reports whether the selector already scored the article.
func (a Article) Scored() bool {
	return a.Score != nil
}

// ScoreValue returns the score or 0 when the article is unscored.
func (a Article) ScoreValue() float64 {
	if a.Score == nil {
		return 0
	}
	return *a.Score
}

// WithScore returns a copy carrying language, best topic and score.
func (a Article) WithScore(lang Language, topic string, score float64) Article {
	s := score
	a.Language = lang
	a.Topic = topic
	a.Score = &s
	return a
}

// Dedupe removes structural duplicates, keeping the first occurrence.
func Dedupe(articles []Article) []Article {
	seen := make(map[Identity]struct{}, len(articles))
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		key := a.Identity()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// StripPatterns removes every match of each pattern from the article
// content, in order, and trims the result.
func StripPatterns(articles []Article, patterns []*regexp.Regexp) []Article {
	out := make([]Article, len(articles))
	for i, a := range articles {
		content := a.Content
		for _, p := range patterns {
			content = strings.TrimSpace(p.ReplaceAllString(content, ""))
		}
		a.Content = content
		out[i] = a
	}
	return out
}
