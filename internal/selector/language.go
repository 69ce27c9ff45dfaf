package selector

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/deusflow/newsletter/internal/news"
)

// Detector reports the language of a text.
type Detector interface {
	Detect(text string) (news.Language, error)
}

// StatisticalDetector uses trigram statistics. Spanish is reported as es;
// every other language collapses to en, so only two profiles are needed.
type StatisticalDetector struct{}

func (StatisticalDetector) Detect(text string) (news.Language, error) {
	if strings.TrimSpace(text) == "" {
		return news.English, nil
	}
	if whatlanggo.Detect(text).Lang == whatlanggo.Spa {
		return news.Spanish, nil
	}
	return news.English, nil
}

// detectArticle runs d on the title and content of a. Blank articles get the
// fallback language without asking the detector.
func detectArticle(d Detector, a news.Article) (news.Language, error) {
	text := a.Title + "\n" + a.Content
	if strings.TrimSpace(text) == "" {
		return news.English, nil
	}
	return d.Detect(text)
}
