// Package translate turns summaries into the newsletter language when the
// model is unavailable. The free Google endpoint is tried first and OpenAI
// is the fallback.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/deusflow/newsletter/internal/news"
)

// DefaultGoogleURL is the public Google Translate endpoint.
const DefaultGoogleURL = "https://translate.googleapis.com/translate_a/single"

const maxRunes = 4000

// ErrUnavailable is returned when every service failed. The caller gets the
// original text alongside it.
var ErrUnavailable = errors.New("no translation service available")

// Options configures a Translator.
type Options struct {
	HTTPClient    *http.Client
	GoogleURL     string
	OpenAIKey     string // empty disables the fallback
	OpenAIModel   string
	OpenAIBaseURL string
}

// Translator translates short texts between supported languages.
type Translator struct {
	http        *http.Client
	googleURL   string
	openai      *openai.Client
	openaiModel string
	log         *slog.Logger
}

func New(opts Options, log *slog.Logger) *Translator {
	if log == nil {
		log = slog.Default()
	}
	t := &Translator{
		http:        opts.HTTPClient,
		googleURL:   opts.GoogleURL,
		openaiModel: opts.OpenAIModel,
		log:         log,
	}
	if t.http == nil {
		t.http = &http.Client{Timeout: 15 * time.Second}
	}
	if t.googleURL == "" {
		t.googleURL = DefaultGoogleURL
	}
	if t.openaiModel == "" {
		t.openaiModel = openai.GPT4oMini
	}
	if opts.OpenAIKey != "" {
		cfg := openai.DefaultConfig(opts.OpenAIKey)
		if opts.OpenAIBaseURL != "" {
			cfg.BaseURL = opts.OpenAIBaseURL
		}
		t.openai = openai.NewClientWithConfig(cfg)
	}
	return t
}

// Translate returns text in language to. When every service fails the
// original text is returned together with ErrUnavailable.
func (t *Translator) Translate(ctx context.Context, text string, from, to news.Language) (string, error) {
	if strings.TrimSpace(text) == "" || from == to {
		return text, nil
	}

	original := text
	text = cleanText(text)
	if runes := []rune(text); len(runes) > maxRunes {
		text = string(runes[:maxRunes]) + "..."
	}

	result, err := t.google(ctx, text, from, to)
	if err == nil && result != "" && result != text {
		t.log.Debug("google translate ok", "from", from, "to", to)
		return result, nil
	}
	t.log.Warn("google translate failed", "from", from, "to", to, "error", err)

	if t.openai != nil {
		result, err := t.openAI(ctx, text, from, to)
		if err == nil && result != "" && result != text {
			t.log.Debug("openai translate ok", "from", from, "to", to)
			return result, nil
		}
		t.log.Warn("openai translate failed", "from", from, "to", to, "error", err)
	}

	return original, fmt.Errorf("%s->%s: %w", from, to, ErrUnavailable)
}

func (t *Translator) google(ctx context.Context, text string, from, to news.Language) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", string(from))
	params.Set("tl", string(to))
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.googleURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google Translate API returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}
	translation, err := parseGoogleResponse(body)
	if err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	return translation, nil
}

// parseGoogleResponse joins the translated segments of the nested array
// the endpoint returns.
func parseGoogleResponse(body []byte) (string, error) {
	var response []interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response) == 0 {
		return "", errors.New("empty response from Google Translate")
	}

	translations, ok := response[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, translation := range translations {
		if parts, ok := translation.([]interface{}); ok && len(parts) > 0 {
			if s, ok := parts[0].(string); ok {
				result.WriteString(s)
			}
		}
	}
	return result.String(), nil
}

func (t *Translator) openAI(ctx context.Context, text string, from, to news.Language) (string, error) {
	prompt := fmt.Sprintf(`Translate the following %s news text to %s.
Keep the meaning, tone and journalistic style of the original.
Translate only the text itself, without additional comments.

Text to translate:
%s`, languageName(from), languageName(to), text)

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	resp, err := t.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.openaiModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxCompletionTokens: 2000,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return SanitizeAIText(resp.Choices[0].Message.Content), nil
}

func languageName(l news.Language) string {
	switch l {
	case news.Spanish:
		return "Spanish"
	case news.English:
		return "English"
	}
	return string(l)
}

// cleanText joins the meaningful lines of text into one paragraph.
func cleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if len(line) > 5 {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " ")
}

var (
	inlineNote = regexp.MustCompile(`(?i)[(\[]\s*(note|nota|disclaimer|translator'?s note)\b[^)\]]*[)\]]`)
	lineNote   = regexp.MustCompile(`(?i)^\s*(note|nota|disclaimer)\s*:`)
	leadLabel  = regexp.MustCompile(`(?i)^\s*(translation|traducción)\s*:\s*`)
)

// SanitizeAIText strips the disclaimers models like to add around a
// translation: bracketed notes, whole "Note:" lines and a leading
// "Translation:" label.
func SanitizeAIText(s string) string {
	s = inlineNote.ReplaceAllString(s, "")

	var kept []string
	for _, line := range strings.Split(s, "\n") {
		if lineNote.MatchString(line) {
			continue
		}
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) > 0 {
		kept[0] = leadLabel.ReplaceAllString(kept[0], "")
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
