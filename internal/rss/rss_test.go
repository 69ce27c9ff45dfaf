package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsletter/internal/config"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example</title>
  <item>
    <title>Markets rally</title>
    <link>https://example.com/markets</link>
    <description><![CDATA[<p>Stocks <b>rose</b> today.</p>]]></description>
    <pubDate>Thu, 14 Mar 2024 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title></title>
    <link>https://example.com/untitled</link>
    <description>Plain text body</description>
  </item>
  <item>
    <title>No link</title>
  </item>
</channel>
</rss>`

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), "newsletter-test", nil)
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	articles := f.FetchAll(context.Background(), []config.Feed{
		{Name: "Example", URL: srv.URL + "/feed"},
		{Name: "Broken", URL: srv.URL + "/broken"},
	}, day)

	require.Len(t, articles, 2, "items without a link and failing feeds are skipped")

	assert.Equal(t, "Markets rally", articles[0].Title)
	assert.Equal(t, "Stocks rose today.", articles[0].Content)
	assert.Equal(t, "Example", articles[0].Source)
	assert.Equal(t, "2024-03-14", articles[0].Date)

	assert.Equal(t, "No title available", articles[1].Title)
	assert.Equal(t, "Plain text body", articles[1].Content)
	assert.Equal(t, "2024-03-15", articles[1].Date, "undated items take the run day")
}
