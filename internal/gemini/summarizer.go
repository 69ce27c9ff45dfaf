package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/newsletter/internal/news"
	"github.com/deusflow/newsletter/internal/ratelimit"
	"github.com/deusflow/newsletter/internal/retry"
	"github.com/deusflow/newsletter/internal/translate"
)

// DefaultChunkRunes is the longest article text sent in one prompt.
const DefaultChunkRunes = 6000

// Summary is a shortened article in the newsletter language.
type Summary struct {
	Text       string
	KeyConcept string
}

// Summarizer shortens and translates articles with a Generator.
type Summarizer struct {
	gen        Generator
	budget     *ratelimit.Budget
	retry      retry.Config
	chunkRunes int
	log        *slog.Logger
}

// NewSummarizer wraps gen. A nil budget means unlimited requests.
func NewSummarizer(gen Generator, budget *ratelimit.Budget, retryCfg retry.Config, log *slog.Logger) *Summarizer {
	if log == nil {
		log = slog.Default()
	}
	if budget == nil {
		budget = ratelimit.NewBudget("gemini", 0, log)
	}
	return &Summarizer{
		gen:        gen,
		budget:     budget,
		retry:      retryCfg,
		chunkRunes: DefaultChunkRunes,
		log:        log,
	}
}

// SetChunkRunes changes the chunk size used for long articles.
func (s *Summarizer) SetChunkRunes(n int) {
	if n > 0 {
		s.chunkRunes = n
	}
}

// Summarize writes a summary of at most words words in the target language.
// Articles longer than one chunk are condensed chunk by chunk first and the
// joined parts are summarised again.
func (s *Summarizer) Summarize(ctx context.Context, title, content string, words int, target news.Language) (Summary, error) {
	content = strings.Join(strings.Fields(strings.ReplaceAll(content, "\r", "")), " ")
	lang := languageName(target)

	if utf8.RuneCountInString(content) > s.chunkRunes {
		chunks := splitChunks(content, s.chunkRunes)
		s.log.Debug("summarising in chunks", "title", title, "chunks", len(chunks))

		parts := make([]string, 0, len(chunks))
		for i, chunk := range chunks {
			part, err := s.call(ctx, fmt.Sprintf(chunkPrompt, lang, words, chunk))
			if err != nil {
				return Summary{}, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			parts = append(parts, strings.TrimSpace(translate.SanitizeAIText(part)))
		}
		content = strings.Join(parts, " ")
	}

	answer, err := s.call(ctx, fmt.Sprintf(summaryPrompt, lang, words, title, content))
	if err != nil {
		return Summary{}, err
	}

	sum := parseResponse(translate.SanitizeAIText(answer))
	if sum.Text == "" {
		return Summary{}, ErrEmptyResponse
	}
	sum.Text = TruncateWords(sum.Text, words)
	return sum, nil
}

// call spends one budget unit and asks the model, retrying transient
// failures.
func (s *Summarizer) call(ctx context.Context, prompt string) (string, error) {
	if err := s.budget.Use(); err != nil {
		return "", err
	}
	var answer string
	err := retry.Do(ctx, s.retry, func() error {
		out, err := s.gen.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		answer = out
		return nil
	})
	return answer, err
}

const summaryPrompt = `Summarize the following news article in %s using at most %d words.

REQUIREMENTS:
Do not translate the names of brands or organisations.
Avoid introductory phrases such as "This article is about".
Answer strictly in the format below.

SUMMARY: <the summary>
KEY CONCEPT: <two to five words naming the subject>

Title: %s
Article: %s
`

const chunkPrompt = `Condense this part of a news article in %s using at most %d words.
Reply with the condensed text only.

%s
`

func languageName(l news.Language) string {
	if l == news.Spanish {
		return "Spanish"
	}
	return "English"
}

var labelPatterns = []struct {
	name  string
	regex *regexp.Regexp
}{
	{"summary", regexp.MustCompile(`(?i)^\**(SUMMARY|RESUMEN)\**\s*:\**\s*`)},
	{"concept", regexp.MustCompile(`(?i)^\**(KEY CONCEPT|CONCEPTO CLAVE)\**\s*:\**\s*`)},
}

// parseResponse reads the labelled answer. Lines after a label belong to
// it until the next label; an answer without labels is taken as the
// summary.
func parseResponse(response string) Summary {
	var summary, concept strings.Builder
	current := ""
	labelled := false

	appendText := func(b *strings.Builder, text string) {
		if text == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
	}

	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		matched := false
		for _, lp := range labelPatterns {
			if lp.regex.MatchString(line) {
				current = lp.name
				labelled = true
				matched = true
				line = strings.TrimSpace(lp.regex.ReplaceAllString(line, ""))
				break
			}
		}
		if !matched && current == "" {
			continue
		}

		switch current {
		case "summary":
			appendText(&summary, line)
		case "concept":
			appendText(&concept, line)
		}
	}

	if !labelled {
		return Summary{Text: strings.Join(strings.Fields(response), " ")}
	}
	return Summary{
		Text:       strings.TrimSpace(summary.String()),
		KeyConcept: strings.Trim(strings.TrimSpace(concept.String()), `."*`),
	}
}

// splitChunks cuts text into pieces of at most size runes, ending each on a
// sentence boundary when one is close enough.
func splitChunks(text string, size int) []string {
	var chunks []string
	runes := []rune(text)
	for len(runes) > size {
		piece := string(runes[:size])
		if idx := strings.LastIndex(piece, ". "); idx > len(piece)/5 {
			piece = piece[:idx+1]
		}
		chunks = append(chunks, strings.TrimSpace(piece))
		runes = runes[utf8.RuneCountInString(piece):]
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// TruncateWords keeps the first n words of text, marking a cut with "...".
func TruncateWords(text string, n int) string {
	fields := strings.Fields(text)
	if n <= 0 || len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:n], " ") + "..."
}
