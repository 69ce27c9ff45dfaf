package designer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/storage"
)

func designConfig() *config.Design {
	return &config.Design{
		InputDir:     "redacted",
		OutputDir:    "issues",
		TemplatePath: "assets/template.html",
		Parts: config.HTMLParts{
			Header:        "<header>H</header>",
			Footer:        "<footer>F</footer>",
			BodyInit:      "<main>",
			BodyNews:      "<hr/>",
			Advertisement: "<aside>AD</aside>",
			BodyClose:     "</main>",
		},
		Sections: config.OrderedStrings{
			{Key: "Business", Value: "Negocios"},
			{Key: "Tech", Value: "Tecnología"},
		},
		IssueNumber: 102,
	}
}

func redacted() news.Redacted {
	return news.Redacted{
		Main: &news.Item{Summary: "Lead story", Link: "https://example.com/lead"},
		Sections: news.Sections[news.Item]{
			{Topic: "Business", Items: []news.Item{{Summary: "Profits & losses", Link: "https://example.com/b"}}},
			{Topic: "Tech", Items: []news.Item{{Summary: "New chip", Link: "https://example.com/t"}}},
			{Topic: "Sports", Items: []news.Item{}},
		},
	}
}

const tmpl = "<html>{{HEADER}}<body>{{BODY}}</body>{{FOOTER}}</html>"

func TestRender(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	html, err := New(designConfig()).Render(tmpl, redacted(), day)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<html><header>H</header><body><main>"))
	assert.True(t, strings.HasSuffix(html, "</main></body><footer>F</footer></html>"))
	assert.Contains(t, html, `<a href="https://example.com/lead"`)
	assert.Contains(t, html, "<b>Lead story</b>")
	assert.Contains(t, html, "March 15, 2024 • Boletín #102")
	assert.Contains(t, html, "Profits &amp; losses", "summaries are escaped")

	// Display names, section order and the advert after the first section.
	neg := strings.Index(html, "Negocios")
	ad := strings.Index(html, "<aside>AD</aside>")
	tec := strings.Index(html, "Tecnología")
	sports := strings.Index(html, ">Sports<")
	require.True(t, neg > 0 && ad > 0 && tec > 0 && sports > 0)
	assert.True(t, neg < ad && ad < tec && tec < sports)
	assert.Equal(t, 1, strings.Count(html, "<aside>AD</aside>"))
	assert.Less(t, strings.Index(html, "<hr/>"), neg, "body_news comes before the sections")
}

func TestRender_NoIssueNumberNoMain(t *testing.T) {
	cfg := designConfig()
	cfg.IssueNumber = 0
	red := redacted()
	red.Main = nil

	html, err := New(cfg).Render(tmpl, red, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, html, "Boletín")
	assert.NotContains(t, html, "<h2")
}

func TestStage_Run(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "assets", "template.html"), []byte(tmpl), 0o644))
	_, err := storage.WriteJSON(filepath.Join(base, "redacted"), storage.RedactedPrefix,
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), redacted())
	require.NoError(t, err)

	stage := &Stage{
		Config:  designConfig(),
		BaseDir: base,
		Now:     func() time.Time { return time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC) },
	}
	out, err := stage.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "issues", "Newsletter_20240315.html"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Negocios")
}

func TestStage_MissingTemplate(t *testing.T) {
	base := t.TempDir()
	_, err := storage.WriteJSON(filepath.Join(base, "redacted"), storage.RedactedPrefix, time.Now(), redacted())
	require.NoError(t, err)

	_, err = (&Stage{Config: designConfig(), BaseDir: base}).Run(context.Background())
	assert.Error(t, err)
}
