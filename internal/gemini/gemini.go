package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("no response from Gemini")

// Generator sends one prompt to a model and returns its text answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client is a Generator backed by the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
