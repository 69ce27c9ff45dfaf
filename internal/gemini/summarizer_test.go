package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/ratelimit"
	"github.com/deusflow/newsletter/internal/retry"
)

// fakeGenerator answers prompts from a queue and records what it was asked.
type fakeGenerator struct {
	mu      sync.Mutex
	answers []string
	errs    []error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	if len(f.answers) == 0 {
		return "", ErrEmptyResponse
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a, nil
}

func TestSummarize(t *testing.T) {
	gen := &fakeGenerator{answers: []string{
		"SUMMARY: Los mercados subieron con fuerza.\nLos bancos lideraron.\nKEY CONCEPT: Subida bursátil.",
	}}
	s := NewSummarizer(gen, nil, retry.Config{}, nil)

	sum, err := s.Summarize(context.Background(), "Markets rally", "Stocks rose sharply.", 30, news.Spanish)
	require.NoError(t, err)
	assert.Equal(t, "Los mercados subieron con fuerza. Los bancos lideraron.", sum.Text)
	assert.Equal(t, "Subida bursátil", sum.KeyConcept)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "in Spanish using at most 30 words")
	assert.Contains(t, gen.prompts[0], "Title: Markets rally")
}

func TestSummarize_TruncatesToBudget(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"SUMMARY: one two three four five six\nKEY CONCEPT: counting"}}
	s := NewSummarizer(gen, nil, retry.Config{}, nil)

	sum, err := s.Summarize(context.Background(), "t", "c", 4, news.English)
	require.NoError(t, err)
	assert.Equal(t, "one two three four...", sum.Text)
}

func TestSummarize_ChunksLongText(t *testing.T) {
	gen := &fakeGenerator{answers: []string{
		"first part",
		"second part",
		"SUMMARY: whole story\nKEY CONCEPT: story",
	}}
	s := NewSummarizer(gen, nil, retry.Config{}, nil)
	s.SetChunkRunes(40)

	content := "This is the first long sentence here. And this is the second long sentence."
	sum, err := s.Summarize(context.Background(), "t", content, 20, news.English)
	require.NoError(t, err)
	assert.Equal(t, "whole story", sum.Text)

	require.Len(t, gen.prompts, 3)
	assert.Contains(t, gen.prompts[0], "This is the first long sentence here.")
	assert.NotContains(t, gen.prompts[0], "second")
	assert.Contains(t, gen.prompts[2], "Article: first part second part")
}

func TestSummarize_BudgetExhausted(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"SUMMARY: a\nKEY CONCEPT: b"}}
	budget := ratelimit.NewBudget("gemini", 1, nil)
	s := NewSummarizer(gen, budget, retry.Config{}, nil)

	_, err := s.Summarize(context.Background(), "t", "c", 10, news.English)
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), "t", "c", 10, news.English)
	assert.ErrorIs(t, err, ratelimit.ErrBudgetExhausted)
	assert.Len(t, gen.prompts, 1)
}

func TestSummarize_RetriesThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{
		errs:    []error{errors.New("503"), nil},
		answers: []string{"SUMMARY: ok\nKEY CONCEPT: fine"},
	}
	s := NewSummarizer(gen, nil, retry.Config{MaxAttempts: 2, Delay: time.Millisecond}, nil)

	sum, err := s.Summarize(context.Background(), "t", "c", 10, news.English)
	require.NoError(t, err)
	assert.Equal(t, "ok", sum.Text)
	assert.Len(t, gen.prompts, 2)
}

func TestSummarize_EmptyAnswer(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"SUMMARY:\nKEY CONCEPT: nothing"}}
	s := NewSummarizer(gen, nil, retry.Config{}, nil)

	_, err := s.Summarize(context.Background(), "t", "c", 10, news.English)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		summary string
		concept string
	}{
		{"plain labels", "SUMMARY: text\nKEY CONCEPT: idea", "text", "idea"},
		{"spanish labels", "RESUMEN: texto\nCONCEPTO CLAVE: idea", "texto", "idea"},
		{"bold labels", "**SUMMARY:** text\n**KEY CONCEPT:** idea", "text", "idea"},
		{"preamble skipped", "Sure!\nSUMMARY: text", "text", ""},
		{"no labels", "just  a\nsummary", "just a summary", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseResponse(tt.in)
			assert.Equal(t, tt.summary, got.Text)
			assert.Equal(t, tt.concept, got.KeyConcept)
		})
	}
}

func TestSplitChunks(t *testing.T) {
	text := strings.Repeat("word ", 30)
	chunks := splitChunks(strings.TrimSpace(text), 50)
	assert.Greater(t, len(chunks), 1)
	assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(chunks, " "))
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 50)
	}
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "a b", TruncateWords(" a  b ", 5))
	assert.Equal(t, "a b...", TruncateWords("a b c", 2))
	assert.Equal(t, "a b c", TruncateWords("a b c", 0))
}
