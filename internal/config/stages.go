package config

import (
	"net/url"
	"time"

	"github.com/deusflow/newsletter/internal/news"
)

// Init is the bootstrap stage configuration.
type Init struct {
	Logs  string
	Paths []string
}

type initFile struct {
	Logs  *scalar   `yaml:"logs"`
	Paths *[]scalar `yaml:"paths"`
}

// LoadInit reads the bootstrap stage file from dir.
func LoadInit(dir string) (*Init, error) {
	var raw initFile
	path, err := loadStage(dir, InitFile, &raw)
	if err != nil {
		return nil, err
	}
	if raw.Logs == nil {
		return nil, invalid(path, "'logs' must be a string of file name")
	}
	if raw.Paths == nil {
		return nil, invalid(path, "'paths' must be a list of strings for paths")
	}
	return &Init{Logs: string(*raw.Logs), Paths: scalarStrings(*raw.Paths)}, nil
}

// Site describes how to find article links on a listing page.
type Site struct {
	Name          string `yaml:"name"`
	URL           string `yaml:"url"`
	NewsContainer string `yaml:"news_container"`
	LinkTag       string `yaml:"link_tag"`
	LinkAttr      string `yaml:"link_attr"`
}

// Feed is an RSS or Atom source.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Scraping is the acquisition stage configuration.
type Scraping struct {
	Logs               string
	OutputDir          string
	Headers            map[string]string
	RequestTimeout     time.Duration
	Sites              []Site
	Feeds              []Feed
	MaxArticlesPerSite int // 0 = no limit
}

type scrapingFile struct {
	Logs         *scalar    `yaml:"logs"`
	Paths        *pathsFile `yaml:"paths"`
	HTTPRequests *struct {
		Headers        map[string]string `yaml:"headers"`
		RequestTimeout *int              `yaml:"request_timeout"`
	} `yaml:"http_requests"`
	Sites              *[]Site `yaml:"sites"`
	Feeds              []Feed  `yaml:"feeds"`
	MaxArticlesPerSite int     `yaml:"max_articles_per_site"`
}

const defaultRequestTimeout = 30 * time.Second

// LoadScraping reads the acquisition stage file from dir.
func LoadScraping(dir string) (*Scraping, error) {
	var raw scrapingFile
	path, err := loadStage(dir, ScrapingFile, &raw)
	if err != nil {
		return nil, err
	}
	if raw.Logs == nil {
		return nil, invalid(path, "'logs' must be a string of file name")
	}
	if raw.Paths == nil || raw.Paths.Output == nil {
		return nil, invalid(path, "'paths' must define 'output'")
	}
	if raw.HTTPRequests == nil {
		return nil, invalid(path, "'http_requests' must be a dict of connection definitions")
	}
	if raw.Sites == nil {
		return nil, invalid(path, "'sites' must be a list of site definitions")
	}
	if raw.MaxArticlesPerSite < 0 {
		return nil, invalid(path, "'max_articles_per_site' must be an int >= 0")
	}

	for i, site := range *raw.Sites {
		if site.Name == "" || site.URL == "" || site.NewsContainer == "" || site.LinkTag == "" || site.LinkAttr == "" {
			return nil, invalid(path, "Invalid site definition #%d: %+v", i, site)
		}
		if u, err := url.Parse(site.URL); err != nil || u.Scheme == "" || u.Host == "" {
			return nil, invalid(path, "site %s: url %q is not absolute", site.Name, site.URL)
		}
	}
	for i, feed := range raw.Feeds {
		if feed.Name == "" || feed.URL == "" {
			return nil, invalid(path, "Invalid feed definition #%d: %+v", i, feed)
		}
	}

	cfg := &Scraping{
		Logs:               string(*raw.Logs),
		OutputDir:          string(*raw.Paths.Output),
		Headers:            raw.HTTPRequests.Headers,
		RequestTimeout:     defaultRequestTimeout,
		Sites:              *raw.Sites,
		Feeds:              raw.Feeds,
		MaxArticlesPerSite: raw.MaxArticlesPerSite,
	}
	if t := raw.HTTPRequests.RequestTimeout; t != nil {
		if *t <= 0 {
			return nil, invalid(path, "'http_requests.request_timeout' must be a positive number of milliseconds")
		}
		cfg.RequestTimeout = time.Duration(*t) * time.Millisecond
	}
	return cfg, nil
}

// Redaction is the summarisation stage configuration.
type Redaction struct {
	Logs               string
	InputDir           string
	OutputDir          string
	SummarizationModel string
	TranslatorModel    string
	TargetLanguage     news.Language
	MainBudget         int
	ItemBudget         int
}

type redactionFile struct {
	Logs               *scalar    `yaml:"logs"`
	Paths              *pathsFile `yaml:"paths"`
	SummarizationModel *scalar    `yaml:"summarization_model"`
	TranslatorModel    *scalar    `yaml:"translator_model"`
	TargetLanguage     scalar     `yaml:"target_language"`
	MainBudget         int        `yaml:"main_budget"`
	ItemBudget         int        `yaml:"item_budget"`
}

// Word budgets for the lead and for section items.
const (
	DefaultMainBudget = 30
	DefaultItemBudget = 100
)

// LoadRedaction reads the summarisation stage file from dir.
func LoadRedaction(dir string) (*Redaction, error) {
	var raw redactionFile
	path, err := loadStage(dir, RedactionFile, &raw)
	if err != nil {
		return nil, err
	}
	if raw.Logs == nil {
		return nil, invalid(path, "'logs' must be a string of file name")
	}
	if raw.Paths == nil || raw.Paths.Input == nil || raw.Paths.Output == nil {
		return nil, invalid(path, "'paths' must define 'input' and 'output'")
	}
	if raw.SummarizationModel == nil {
		return nil, invalid(path, "'summarization_model' must be a string of LLM name")
	}
	if raw.TranslatorModel == nil {
		return nil, invalid(path, "'translator_model' must be a string of LLM name")
	}

	cfg := &Redaction{
		Logs:               string(*raw.Logs),
		InputDir:           string(*raw.Paths.Input),
		OutputDir:          string(*raw.Paths.Output),
		SummarizationModel: string(*raw.SummarizationModel),
		TranslatorModel:    string(*raw.TranslatorModel),
		TargetLanguage:     news.Spanish,
		MainBudget:         DefaultMainBudget,
		ItemBudget:         DefaultItemBudget,
	}
	if raw.TargetLanguage != "" {
		cfg.TargetLanguage = news.Language(raw.TargetLanguage)
		if !cfg.TargetLanguage.Valid() {
			return nil, invalid(path, "unsupported target_language %q", raw.TargetLanguage)
		}
	}
	if raw.MainBudget < 0 || raw.ItemBudget < 0 {
		return nil, invalid(path, "'main_budget' and 'item_budget' must be positive word counts")
	}
	if raw.MainBudget > 0 {
		cfg.MainBudget = raw.MainBudget
	}
	if raw.ItemBudget > 0 {
		cfg.ItemBudget = raw.ItemBudget
	}
	return cfg, nil
}

// HTMLParts are the static fragments stitched around the generated body.
type HTMLParts struct {
	Header        string `yaml:"header"`
	Footer        string `yaml:"footer"`
	BodyInit      string `yaml:"body_init"`
	BodyNews      string `yaml:"body_news"`
	Advertisement string `yaml:"advertisement"`
	BodyClose     string `yaml:"body_close"`
}

// Design is the rendering stage configuration.
type Design struct {
	Logs         string
	InputDir     string
	OutputDir    string
	TemplatePath string
	Parts        HTMLParts
	Sections     OrderedStrings // topic -> display name
	IssueNumber  int
}

type designFile struct {
	Logs        *scalar         `yaml:"logs"`
	Paths       *pathsFile      `yaml:"paths"`
	HTMLParts   *HTMLParts      `yaml:"html_parts"`
	Sections    *OrderedStrings `yaml:"sections"`
	IssueNumber int             `yaml:"issue_number"`
}

// LoadDesign reads the rendering stage file from dir.
func LoadDesign(dir string) (*Design, error) {
	var raw designFile
	path, err := loadStage(dir, DesignFile, &raw)
	if err != nil {
		return nil, err
	}
	if raw.Logs == nil {
		return nil, invalid(path, "'logs' must be a string of file name")
	}
	if raw.Paths == nil || raw.Paths.Input == nil || raw.Paths.Output == nil || raw.Paths.Template == nil {
		return nil, invalid(path, "'paths' must define 'input', 'output' and 'template'")
	}
	if raw.HTMLParts == nil {
		return nil, invalid(path, "'html_parts' must be a dict of HTML string configurations")
	}
	if raw.Sections == nil {
		return nil, invalid(path, "'sections' must be a dict of categories for news")
	}
	if raw.IssueNumber < 0 {
		return nil, invalid(path, "'issue_number' must be an int >= 0")
	}
	return &Design{
		Logs:         string(*raw.Logs),
		InputDir:     string(*raw.Paths.Input),
		OutputDir:    string(*raw.Paths.Output),
		TemplatePath: string(*raw.Paths.Template),
		Parts:        *raw.HTMLParts,
		Sections:     *raw.Sections,
		IssueNumber:  raw.IssueNumber,
	}, nil
}
