package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/logger"
	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/storage"
)

const siteHTML = `<html><body>
<div class="story"><a href="/markets">Markets</a></div>
<div class="story"><a href="/chips">Chips</a></div>
</body></html>`

const marketsHTML = `<html><body><h1>Markets rally</h1><article>
<p>Stocks rose sharply on Tuesday as investors cheered strong economic data.</p>
<p>Bank shares led the gains during a busy afternoon session in the city.</p>
</article></body></html>`

const chipsHTML = `<html><body><h1>New chip unveiled</h1><article>
<p>The company presented a faster processor for laptops and phones today.</p>
<p>Engineers said the software will ship with the hardware later this year.</p>
</article></body></html>`

func newsSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(siteHTML)) })
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(marketsHTML)) })
	mux.HandleFunc("/chips", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(chipsHTML)) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// workspace lays out configs and the template under a temp base dir.
func workspace(t *testing.T, siteURL string) string {
	t.Helper()
	base := t.TempDir()
	cfgDir := filepath.Join(base, "configs")

	write(t, filepath.Join(cfgDir, "config.json"),
		`{"logs": "config", "paths": ["data/raw", "data/processed", "data/redacted", "newsletters", "assets"]}`)
	write(t, filepath.Join(cfgDir, "scraping_config.json"), fmt.Sprintf(`{
  "logs": "scraping",
  "paths": {"output": "data/raw"},
  "http_requests": {"headers": {"User-Agent": "newsletter-test"}, "request_timeout": 5000},
  "sites": [{"name": "Local", "url": %q, "news_container": "div.story", "link_tag": "a", "link_attr": "href"}]
}`, siteURL+"/"))
	write(t, filepath.Join(cfgDir, "selection_config.json"), `{
  "logs": "selection",
  "paths": {"input": "data/raw", "output": "data/processed"},
  "score_threshold": 50,
  "max_news_per_block": 5,
  "patterns_to_remove": [],
  "languages": {
    "en": {"characters": "[^a-z0-9\\s]", "stopwords": "english",
           "content_blocks": {"business": ["stocks", "bank", "shares", "market"],
                              "technology": ["processor", "software", "hardware", "chip"]}},
    "es": {"characters": "[^a-záéíóúñü0-9\\s]", "stopwords": "spanish",
           "content_blocks": {"business": ["bolsa"], "technology": ["software"]}}
  }
}`)
	write(t, filepath.Join(cfgDir, "redaction_config.json"), `{
  "logs": "redaction",
  "paths": {"input": "data/processed", "output": "data/redacted"},
  "summarization_model": "gemini-1.5-flash",
  "translator_model": "gpt-4o-mini",
  "target_language": "en",
  "main_budget": 5
}`)
	write(t, filepath.Join(cfgDir, "design_config.json"), `{
  "logs": "design",
  "paths": {"input": "data/redacted", "output": "newsletters", "template": "assets/template.html"},
  "html_parts": {"header": "<h1>Daily</h1>", "footer": "<p>bye</p>", "body_init": "<div>",
                 "body_news": "<hr/>", "advertisement": "<i>ad</i>", "body_close": "</div>"},
  "sections": {"business": "Business", "technology": "Technology"},
  "issue_number": 7
}`)
	write(t, filepath.Join(base, "assets", "template.html"), "<html>{{HEADER}}{{BODY}}{{FOOTER}}</html>")
	return base
}

func testApp(base string) *App {
	a := New(&config.Config{
		BaseDir:           base,
		ConfigDir:         "configs",
		LogLevel:          "error",
		RequestTimeout:    5 * time.Second,
		RetryAttempts:     1,
		ScrapeConcurrency: 2,
		SummaryCachePath:  "data/summary_cache.json",
		SummaryCacheTTL:   time.Hour,
	})
	a.now = func() time.Time { return time.Date(2024, 3, 15, 7, 0, 0, 0, time.UTC) }
	return a
}

func TestRun_All(t *testing.T) {
	srv := newsSite(t)
	base := workspace(t, srv.URL)
	a := testApp(base)
	a.HTTPClient = srv.Client()

	require.NoError(t, a.Run(context.Background(), "all"))

	for _, dir := range []string{"data/raw", "data/processed", "data/redacted", "newsletters"} {
		assert.DirExists(t, filepath.Join(base, dir))
	}
	assert.FileExists(t, filepath.Join(base, "data", "raw", "scraped_news_20240315.json"))
	assert.FileExists(t, filepath.Join(base, LogsDir, time.Now().Format("2006-01-02")+".log"))

	var sel news.Selection
	_, err := storage.ReadLatest(filepath.Join(base, "data", "processed"), storage.SelectedPrefix, &sel)
	require.NoError(t, err)
	require.NotNil(t, sel.Lead)
	business, _ := sel.Sections.Get("business")
	tech, _ := sel.Sections.Get("technology")
	require.Len(t, business, 1)
	require.Len(t, tech, 1)
	assert.Equal(t, "Markets rally", business[0].Title)

	var red news.Redacted
	_, err = storage.ReadLatest(filepath.Join(base, "data", "redacted"), storage.RedactedPrefix, &red)
	require.NoError(t, err)
	require.NotNil(t, red.Main)
	assert.Len(t, strings.Fields(strings.TrimSuffix(red.Main.Summary, "...")), 5, "main budget applies")

	html, err := os.ReadFile(filepath.Join(base, "newsletters", "Newsletter_20240315.html"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(html), "<html><h1>Daily</h1><div>"))
	assert.Contains(t, string(html), "Boletín #7")
	assert.Contains(t, string(html), "Technology")

	cache, err := os.ReadFile(filepath.Join(base, "data", "summary_cache.json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(cache))
}

func TestRun_SingleStageUsesStageLog(t *testing.T) {
	base := workspace(t, "http://127.0.0.1:1")
	a := testApp(base)

	require.NoError(t, a.Run(context.Background(), "init"))
	assert.FileExists(t, filepath.Join(base, LogsDir, "config.log"))
	assert.DirExists(t, filepath.Join(base, "newsletters"))
}

func TestRun_SelectWithoutSnapshot(t *testing.T) {
	base := workspace(t, "http://127.0.0.1:1")
	a := testApp(base)
	a.LogToFile = false

	err := a.Run(context.Background(), "select")
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)
}

func TestRun_UnknownCommand(t *testing.T) {
	a := testApp(t.TempDir())
	err := a.Run(context.Background(), "deploy")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestRun_PublishNeedsTelegram(t *testing.T) {
	base := workspace(t, "http://127.0.0.1:1")
	err := testApp(base).Run(context.Background(), "publish")
	assert.ErrorIs(t, err, errNoTelegram)
}

func TestRun_InvalidConfigFailsBeforeStages(t *testing.T) {
	base := workspace(t, "http://127.0.0.1:1")
	write(t, filepath.Join(base, "configs", "selection_config.json"), `{"logs": "selection"}`)

	err := testApp(base).Run(context.Background(), "all")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.NoDirExists(t, filepath.Join(base, "data"), "init never ran")
}

func TestBootstrap(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "existing"), 0o755))

	err := Bootstrap(base, &config.Init{Paths: []string{"existing", "a/b", "assets"}}, logger.Logger)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(base, "a", "b"))
	assert.DirExists(t, filepath.Join(base, "assets"))

	write(t, filepath.Join(base, "file"), "x")
	err = Bootstrap(base, &config.Init{Paths: []string{"file"}}, logger.Logger)
	assert.Error(t, err)
}
