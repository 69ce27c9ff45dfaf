package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/stopwords"
)

// Topic is a named keyword set. Keywords are lowercased and NFC-normalised
// so they compare equal to normalised tokens.
type Topic struct {
	Name     string
	Keywords map[string]struct{}
}

// Language holds the text-cleaning parameters and topics for one language.
type Language struct {
	Noise          []*regexp.Regexp
	StopwordCorpus string
	ExtraStopwords []string
	Topics         []Topic
}

// Selection is the validated selection stage configuration.
type Selection struct {
	Logs             string
	InputDir         string
	OutputDir        string
	ScoreThreshold   int
	MaxNewsPerBlock  int
	PatternsToRemove []*regexp.Regexp
	Languages        map[news.Language]Language
	Workers          int
}

// TopicNames returns the topic names of the primary language in order.
func (s *Selection) TopicNames() []string {
	topics := s.Languages[news.English].Topics
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = t.Name
	}
	return names
}

type pathsFile struct {
	Input    *scalar `yaml:"input"`
	Output   *scalar `yaml:"output"`
	Template *scalar `yaml:"template"`
}

type selectionFile struct {
	Logs             *scalar                 `yaml:"logs"`
	Paths            *pathsFile              `yaml:"paths"`
	ScoreThreshold   *int                    `yaml:"score_threshold"`
	MaxNewsPerBlock  *int                    `yaml:"max_news_per_block"`
	PatternsToRemove *[]scalar               `yaml:"patterns_to_remove"`
	Languages        map[string]languageFile `yaml:"languages"`
	Workers          *int                    `yaml:"workers"`
}

type languageFile struct {
	Characters     *patternList `yaml:"characters"`
	Stopwords      *scalar      `yaml:"stopwords"`
	ContentBlocks  *topicList   `yaml:"content_blocks"`
	ExtraStopwords []scalar     `yaml:"extra_stopwords"`
}

// patternList accepts either one regex string or a list of them.
type patternList []string

func (p *patternList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s scalar
		if err := node.Decode(&s); err != nil {
			return err
		}
		*p = patternList{string(s)}
		return nil
	case yaml.SequenceNode:
		var list []scalar
		if err := node.Decode(&list); err != nil {
			return err
		}
		*p = scalarStrings(list)
		return nil
	default:
		return fmt.Errorf("line %d: characters must be a regex or a list of regexes", node.Line)
	}
}

type rawTopic struct {
	name     string
	keywords []string
}

// topicList keeps content_blocks in document order: the scorer breaks ties
// by it.
type topicList []rawTopic

func (t *topicList) UnmarshalYAML(node *yaml.Node) error {
	var out topicList
	err := eachMappingPair(node, func(key string, value *yaml.Node) error {
		var keywords []scalar
		if err := value.Decode(&keywords); err != nil {
			return fmt.Errorf("content block %s: %w", key, err)
		}
		out = append(out, rawTopic{name: key, keywords: scalarStrings(keywords)})
		return nil
	})
	if err != nil {
		return err
	}
	*t = out
	return nil
}

// LoadSelection reads and validates the selection stage file from dir.
func LoadSelection(dir string) (*Selection, error) {
	var raw selectionFile
	path, err := loadStage(dir, SelectionFile, &raw)
	if err != nil {
		return nil, err
	}
	return raw.validate(path)
}

func (f *selectionFile) validate(path string) (*Selection, error) {
	if f.Logs == nil {
		return nil, invalid(path, "'logs' must be a string of file name")
	}
	if f.Paths == nil || f.Paths.Input == nil || f.Paths.Output == nil {
		return nil, invalid(path, "'paths' must define 'input' and 'output'")
	}
	if f.ScoreThreshold == nil || *f.ScoreThreshold < 0 {
		return nil, invalid(path, "'score_threshold' must be an int >= 0")
	}
	if f.MaxNewsPerBlock == nil || *f.MaxNewsPerBlock < 1 {
		return nil, invalid(path, "'max_news_per_block' must be an int >= 1")
	}
	if f.PatternsToRemove == nil {
		return nil, invalid(path, "'patterns_to_remove' must be a list of removal patterns")
	}
	if len(f.Languages) == 0 {
		return nil, invalid(path, "'languages' must be a dict of languages definitions")
	}

	cfg := &Selection{
		Logs:            string(*f.Logs),
		InputDir:        string(*f.Paths.Input),
		OutputDir:       string(*f.Paths.Output),
		ScoreThreshold:  *f.ScoreThreshold,
		MaxNewsPerBlock: *f.MaxNewsPerBlock,
		Languages:       make(map[news.Language]Language, len(f.Languages)),
		Workers:         1,
	}
	if f.Workers != nil {
		if *f.Workers < 1 {
			return nil, invalid(path, "'workers' must be an int >= 1")
		}
		cfg.Workers = *f.Workers
	}

	patterns, err := compileAll(scalarStrings(*f.PatternsToRemove))
	if err != nil {
		return nil, invalid(path, "patterns_to_remove: %v", err)
	}
	cfg.PatternsToRemove = patterns

	// Sorted so error messages are stable.
	codes := make([]string, 0, len(f.Languages))
	for code := range f.Languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		lang := news.Language(code)
		if !lang.Valid() {
			return nil, invalid(path, "unsupported language %q", code)
		}
		def := f.Languages[code]
		if def.Characters == nil || def.Stopwords == nil || def.ContentBlocks == nil {
			return nil, invalid(path, "Invalid language definition: %s", code)
		}
		noise, err := compileAll(*def.Characters)
		if err != nil {
			return nil, invalid(path, "languages.%s.characters: %v", code, err)
		}
		corpus := string(*def.Stopwords)
		if !stopwords.Known(corpus) {
			return nil, invalid(path, "languages.%s.stopwords: unknown corpus %q", code, corpus)
		}
		if len(*def.ContentBlocks) == 0 {
			return nil, invalid(path, "languages.%s.content_blocks must define at least one topic", code)
		}
		cfg.Languages[lang] = Language{
			Noise:          noise,
			StopwordCorpus: corpus,
			ExtraStopwords: scalarStrings(def.ExtraStopwords),
			Topics:         buildTopics(*def.ContentBlocks),
		}
	}

	primary, ok := cfg.Languages[news.English]
	if !ok {
		return nil, invalid(path, "languages must include the %q fallback profile", news.English)
	}
	for lang, def := range cfg.Languages {
		if lang == news.English {
			continue
		}
		if err := sameTopics(primary.Topics, def.Topics); err != nil {
			return nil, invalid(path, "languages.%s.content_blocks: %v", lang, err)
		}
	}

	return cfg, nil
}

func compileAll(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func buildTopics(raw topicList) []Topic {
	topics := make([]Topic, len(raw))
	for i, rt := range raw {
		set := make(map[string]struct{}, len(rt.keywords))
		for _, kw := range rt.keywords {
			kw = NormalizeKeyword(kw)
			if kw != "" {
				set[kw] = struct{}{}
			}
		}
		topics[i] = Topic{Name: rt.name, Keywords: set}
	}
	return topics
}

// NormalizeKeyword puts a keyword in the same form the tokenizer produces.
func NormalizeKeyword(kw string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(kw)))
}

// sameTopics requires every language to expose the primary topic names, so
// that any best topic has a section to land in.
func sameTopics(primary, other []Topic) error {
	want := make(map[string]struct{}, len(primary))
	for _, t := range primary {
		want[t.Name] = struct{}{}
	}
	if len(other) != len(want) {
		return fmt.Errorf("must define the same %d topics as %q", len(want), news.English)
	}
	for _, t := range other {
		if _, ok := want[t.Name]; !ok {
			return fmt.Errorf("topic %q is not defined for %q", t.Name, news.English)
		}
	}
	return nil
}
