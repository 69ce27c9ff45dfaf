package selector

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/stopwords"
)

// Profile is the text-cleaning setup and topic list of one language.
type Profile struct {
	Language  news.Language
	Noise     []*regexp.Regexp
	Stopwords map[string]struct{}
	Topics    []config.Topic
}

// Profiles maps each configured language to its profile. An en entry is
// always present.
type Profiles map[news.Language]*Profile

// NewProfiles builds profiles from validated configuration.
func NewProfiles(cfg *config.Selection) (Profiles, error) {
	profiles := make(Profiles, len(cfg.Languages))
	for lang, def := range cfg.Languages {
		stops, err := stopwords.Set(def.StopwordCorpus, def.ExtraStopwords...)
		if err != nil {
			return nil, fmt.Errorf("language %s: %w", lang, err)
		}
		profiles[lang] = &Profile{
			Language:  lang,
			Noise:     def.Noise,
			Stopwords: stops,
			Topics:    def.Topics,
		}
	}
	if _, ok := profiles[news.English]; !ok {
		return nil, fmt.Errorf("%w: no %q profile", config.ErrInvalidConfig, news.English)
	}
	return profiles, nil
}

// For returns the profile of lang, or the en profile when lang has none.
func (p Profiles) For(lang news.Language) *Profile {
	if prof, ok := p[lang]; ok {
		return prof
	}
	return p[news.English]
}

// Normalize lowercases text, strips the profile's noise patterns, splits it
// into UAX #29 words and drops stopwords. The same input always gives the
// same tokens.
func Normalize(text string, p *Profile) []string {
	text = strings.ToLower(norm.NFC.String(text))
	for _, re := range p.Noise {
		text = re.ReplaceAllString(text, "")
	}

	var tokens []string
	segments := words.FromString(text)
	for segments.Next() {
		tok := segments.Value()
		if !isWord(tok) {
			continue
		}
		if _, stop := p.Stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// isWord drops whitespace and punctuation segments.
func isWord(seg string) bool {
	for _, r := range seg {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// tokenSet normalises each text independently and returns the union.
func tokenSet(p *Profile, texts ...string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range texts {
		for _, tok := range Normalize(t, p) {
			set[tok] = struct{}{}
		}
	}
	return set
}
