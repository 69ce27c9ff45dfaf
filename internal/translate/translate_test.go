package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsletter/internal/news"
)

func TestSanitizeAIText_RemovesInlineParenthesizedDisclaimer(t *testing.T) {
	in := "El ministerio pidió calma en Marruecos\n(Note: This translation is a machine translation and may contain errors.) En Marrakech siguen las protestas."
	out := SanitizeAIText(in)
	assert.NotContains(t, strings.ToLower(out), "note:")
	assert.Contains(t, out, "En Marrakech siguen las protestas.")
	assert.Contains(t, out, "El ministerio pidió calma en Marruecos")
}

func TestSanitizeAIText_RemovesFullLineNote(t *testing.T) {
	in := "Note: This translation is a machine translation and may contain errors.\nEn Marrakech siguen las protestas."
	assert.Equal(t, "En Marrakech siguen las protestas.", SanitizeAIText(in))
}

func TestSanitizeAIText_RemovesBracketedDisclaimer(t *testing.T) {
	in := "[Nota: traducción automática] Esta es una frase de prueba."
	assert.Equal(t, "Esta es una frase de prueba.", SanitizeAIText(in))
}

func TestSanitizeAIText_RemovesLeadingLabel(t *testing.T) {
	assert.Equal(t, "Hola mundo", SanitizeAIText("Translation: Hola mundo"))
	assert.Equal(t, "keeps (notably) asides", SanitizeAIText("keeps (notably) asides"))
}

func googleServer(t *testing.T, status int, segments ...string) (*httptest.Server, *url.Values) {
	t.Helper()
	var seen url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		parts := make([]interface{}, 0, len(segments))
		for _, s := range segments {
			parts = append(parts, []interface{}{s, "src", nil})
		}
		_ = json.NewEncoder(w).Encode([]interface{}{parts, nil, "en"})
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestTranslate_Google(t *testing.T) {
	srv, seen := googleServer(t, http.StatusOK, "Los mercados ", "subieron.")
	tr := New(Options{HTTPClient: srv.Client(), GoogleURL: srv.URL}, nil)

	out, err := tr.Translate(context.Background(), "Markets   rallied.\nok", news.English, news.Spanish)
	require.NoError(t, err)
	assert.Equal(t, "Los mercados subieron.", out)

	q := *seen
	assert.Equal(t, "en", q.Get("sl"))
	assert.Equal(t, "es", q.Get("tl"))
	assert.Equal(t, "Markets rallied.", q.Get("q"), "short lines are dropped and spaces collapsed")
}

func TestTranslate_SameLanguage(t *testing.T) {
	tr := New(Options{GoogleURL: "http://127.0.0.1:1"}, nil)
	out, err := tr.Translate(context.Background(), "Hola", news.Spanish, news.Spanish)
	require.NoError(t, err)
	assert.Equal(t, "Hola", out)
}

func TestTranslate_OpenAIFallback(t *testing.T) {
	google, _ := googleServer(t, http.StatusServiceUnavailable)

	var model, path string
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		model = req.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Translation: Los mercados subieron.\nNote: machine translated."},"finish_reason":"stop"}]}`))
	}))
	defer ai.Close()

	tr := New(Options{
		HTTPClient:    google.Client(),
		GoogleURL:     google.URL,
		OpenAIKey:     "test-key",
		OpenAIModel:   "gpt-test",
		OpenAIBaseURL: ai.URL,
	}, nil)

	out, err := tr.Translate(context.Background(), "Markets rallied.", news.English, news.Spanish)
	require.NoError(t, err)
	assert.Equal(t, "Los mercados subieron.", out)
	assert.Equal(t, "gpt-test", model)
	assert.Equal(t, "/chat/completions", path)
}

func TestTranslate_AllFail(t *testing.T) {
	google, _ := googleServer(t, http.StatusInternalServerError)
	tr := New(Options{HTTPClient: google.Client(), GoogleURL: google.URL}, nil)

	out, err := tr.Translate(context.Background(), "Markets rallied.", news.English, news.Spanish)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "Markets rallied.", out)
}

func TestParseGoogleResponse_BadShape(t *testing.T) {
	_, err := parseGoogleResponse([]byte(`[]`))
	assert.Error(t, err)
	_, err = parseGoogleResponse([]byte(`["x"]`))
	assert.Error(t, err)
}
