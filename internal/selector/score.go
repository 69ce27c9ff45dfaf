package selector

import (
	"strconv"

	"github.com/deusflow/newsletter/internal/config"
)

// MaxScore is the score of a topic whose keywords all appear.
const MaxScore = 200

// Scores holds the per-topic scores of one article.
type Scores struct {
	ByTopic   map[string]float64
	Best      string
	BestScore float64
}

// Score rates a token set against each topic as
// round(200 * matches / |keywords|, 2). A topic with no keywords scores 0.
//
// Best is the arg-max. On ties the topic listed first in the configuration
// wins, so reordering topics can change classification.
func Score(tokens map[string]struct{}, topics []config.Topic) Scores {
	s := Scores{ByTopic: make(map[string]float64, len(topics))}
	for i, topic := range topics {
		v := topicScore(tokens, topic.Keywords)
		s.ByTopic[topic.Name] = v
		if i == 0 || v > s.BestScore {
			s.Best = topic.Name
			s.BestScore = v
		}
	}
	return s
}

func topicScore(tokens, keywords map[string]struct{}) float64 {
	if len(keywords) == 0 {
		return 0
	}
	matches := 0
	for tok := range tokens {
		if _, ok := keywords[tok]; ok {
			matches++
		}
	}
	return round2(MaxScore * float64(matches) / float64(len(keywords)))
}

// round2 rounds the exact binary value of x to two decimals, half to even.
// 200/64 = 3.125 is exact and becomes 3.12.
func round2(x float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	return v
}
