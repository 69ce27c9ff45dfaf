package selector

import (
	"sort"

	"github.com/deusflow/newsletter/internal/news"
)

// Trim sorts every section by score, highest first, and keeps at most max
// articles. Equal scores keep their input order. Sections within the limit
// are only sorted.
func Trim(sections news.Sections[news.Article], max int) news.Sections[news.Article] {
	out := make(news.Sections[news.Article], len(sections))
	for i, sec := range sections {
		items := make([]news.Article, len(sec.Items))
		copy(items, sec.Items)
		sort.SliceStable(items, func(a, b int) bool {
			return items[a].ScoreValue() > items[b].ScoreValue()
		})
		if max >= 0 && len(items) > max {
			items = items[:max]
		}
		out[i] = news.Section[news.Article]{Topic: sec.Topic, Items: items}
	}
	return out
}
