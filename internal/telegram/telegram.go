// Package telegram posts a short digest of the issue to a Telegram chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/metrics"
	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/retry"
	"github.com/deusflow/newsletter/internal/storage"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	maxMessageLen  = 4000 // Telegram allows 4096 characters
)

// Client sends messages through the Bot API.
type Client struct {
	token   string
	chatID  string
	baseURL string
	http    *http.Client
	retry   retry.Config
	log     *slog.Logger
}

// Options configures a Client. BaseURL and HTTPClient are for tests.
type Options struct {
	Token      string
	ChatID     string
	BaseURL    string
	HTTPClient *http.Client
	Retry      retry.Config
}

func New(opts Options, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		token:   opts.Token,
		chatID:  opts.ChatID,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		retry:   opts.Retry,
		log:     log,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

// SendMessage sends an HTML formatted message, retrying transient failures.
func (c *Client) SendMessage(ctx context.Context, text string, preview bool) error {
	payload := map[string]interface{}{
		"chat_id":                  c.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": !preview,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	attempt := 0
	err = retry.Do(ctx, c.retry, func() error {
		attempt++
		err := c.sendOnce(ctx, body)
		if err != nil {
			c.log.Warn("telegram send failed", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("can't send message: %w", err)
	}
	c.log.Info("message sent to telegram", "attempt", attempt)
	metrics.Global.IncrementMessagesSent()
	return nil
}

func (c *Client) sendOnce(ctx context.Context, body []byte) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("telegram API error: status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(err)
		}
		return err
	}
	return nil
}

// FormatDigest renders the redacted issue as one or more messages, each
// under the Telegram length limit. Items are never split across messages.
func FormatDigest(red news.Redacted, sections config.OrderedStrings, day time.Time) []string {
	var blocks []string
	head := fmt.Sprintf("<b>Newsletter %s</b>", day.Format("02.01.2006"))
	if red.Main != nil {
		head += "\n\n" + formatItem(*red.Main, true)
	}
	blocks = append(blocks, head)

	for _, sec := range red.Sections {
		if len(sec.Items) == 0 {
			continue
		}
		name, ok := sections.Lookup(sec.Topic)
		if !ok {
			name = sec.Topic
		}
		blocks = append(blocks, "<b>"+html.EscapeString(name)+"</b>")
		for _, item := range sec.Items {
			blocks = append(blocks, formatItem(item, false))
		}
	}

	var messages []string
	var current strings.Builder
	for _, b := range blocks {
		if current.Len() > 0 && current.Len()+len(b)+2 > maxMessageLen {
			messages = append(messages, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(b)
	}
	if current.Len() > 0 {
		messages = append(messages, current.String())
	}
	return messages
}

func formatItem(item news.Item, lead bool) string {
	summary := html.EscapeString(item.Summary)
	if lead {
		summary = "<b>" + summary + "</b>"
	}
	if item.Link == "" {
		return summary
	}
	return fmt.Sprintf("%s\n<a href=\"%s\">→</a>", summary, html.EscapeString(item.Link))
}

// Stage posts the digest of the latest redacted snapshot.
type Stage struct {
	Client  *Client
	Design  *config.Design
	BaseDir string
	Log     *slog.Logger
	Now     func() time.Time
}

// Run sends every digest message and returns how many were sent.
func (s *Stage) Run(ctx context.Context) (int, error) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	var red news.Redacted
	in, err := storage.ReadLatest(config.Resolve(s.BaseDir, s.Design.InputDir), storage.RedactedPrefix, &red)
	if err != nil {
		return 0, err
	}
	messages := FormatDigest(red, s.Design.Sections, now())
	log.Info("publishing digest", "file", in, "messages", len(messages))

	for i, m := range messages {
		if err := s.Client.SendMessage(ctx, m, i == 0); err != nil {
			return i, fmt.Errorf("message %d/%d: %w", i+1, len(messages), err)
		}
	}
	return len(messages), nil
}
