// Package designer renders the redacted snapshot into the HTML issue.
package designer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/storage"
)

// Template placeholders replaced with the configured parts.
const (
	HeaderPlaceholder = "{{HEADER}}"
	BodyPlaceholder   = "{{BODY}}"
	FooterPlaceholder = "{{FOOTER}}"
)

const fragmentsHTML = `{{define "main"}}<h2 style='text-align: left;'><span style='color:#13285b;'>` +
	`<a href="{{.Item.Link}}" target='_blank' style='color: #13285b; text-decoration: none;'>` +
	`<b>{{.Item.Summary}}</b></a></span></h2><br/><p style='text-align: left;' class='last-child'>` +
	`<span style='color:#707070;'>{{.Date}}{{if .Issue}} • Boletín #{{.Issue}}{{end}}</span></p>{{end}}` +
	`{{define "section"}}<h3 style='text-align: center;'><span style='color:#13285b;'>{{.Name}}</span></h3><br/>` +
	`{{range .Items}}<p style='text-align: justify;'><a href="{{.Link}}" target='_blank' ` +
	`style='color: #13285b; text-decoration: none;'>{{.Summary}}</a></p><br/>{{end}}` +
	`<p class='last-child'></p><br/>{{end}}`

var fragments = template.Must(template.New("fragments").Parse(fragmentsHTML))

// Designer builds the issue HTML from a template file and config parts.
type Designer struct {
	cfg *config.Design
}

func New(cfg *config.Design) *Designer {
	return &Designer{cfg: cfg}
}

// Render returns the full issue. Summaries and links are escaped; the
// configured HTML parts are inserted as they are.
func (d *Designer) Render(tmpl string, red news.Redacted, day time.Time) (string, error) {
	parts := d.cfg.Parts
	var body bytes.Buffer
	body.WriteString(parts.BodyInit)

	if red.Main != nil {
		err := fragments.ExecuteTemplate(&body, "main", struct {
			Item  news.Item
			Date  string
			Issue int
		}{*red.Main, day.Format("January 02, 2006"), d.cfg.IssueNumber})
		if err != nil {
			return "", fmt.Errorf("render main: %w", err)
		}
	}

	body.WriteString(parts.BodyNews)

	for i, sec := range red.Sections {
		name, ok := d.cfg.Sections.Lookup(sec.Topic)
		if !ok {
			name = sec.Topic
		}
		err := fragments.ExecuteTemplate(&body, "section", struct {
			Name  string
			Items []news.Item
		}{name, sec.Items})
		if err != nil {
			return "", fmt.Errorf("render section %s: %w", sec.Topic, err)
		}
		if i == 0 {
			body.WriteString(parts.Advertisement)
		}
	}

	body.WriteString(parts.BodyClose)

	return strings.NewReplacer(
		HeaderPlaceholder, parts.Header,
		FooterPlaceholder, parts.Footer,
		BodyPlaceholder, body.String(),
	).Replace(tmpl), nil
}

// Stage renders the latest redacted snapshot to Newsletter_YYYYMMDD.html.
type Stage struct {
	Config  *config.Design
	BaseDir string
	Log     *slog.Logger
	Now     func() time.Time
}

// Run executes the stage and returns the path of the written issue.
func (s *Stage) Run(_ context.Context) (string, error) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	day := now()

	var red news.Redacted
	in, err := storage.ReadLatest(config.Resolve(s.BaseDir, s.Config.InputDir), storage.RedactedPrefix, &red)
	if err != nil {
		return "", err
	}
	log.Info("loaded redacted news", "file", in)

	tmpl, err := os.ReadFile(config.Resolve(s.BaseDir, s.Config.TemplatePath))
	if err != nil {
		return "", fmt.Errorf("load template: %w", err)
	}

	html, err := New(s.Config).Render(string(tmpl), red, day)
	if err != nil {
		return "", err
	}

	name := storage.IssuePrefix + storage.DayStamp(day) + ".html"
	out, err := storage.WriteFile(config.Resolve(s.BaseDir, s.Config.OutputDir), name, []byte(html))
	if err != nil {
		return "", fmt.Errorf("save newsletter: %w", err)
	}
	log.Info("newsletter saved", "file", out)
	return out, nil
}
