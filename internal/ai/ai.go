package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/gnemet/pptxinfo/internal/config"
)

const defaultModel = "gemini-1.5-flash"

// maxInputChars bounds the deck text sent in one prompt.
const maxInputChars = 30000

var ErrEmptyInput = errors.New("ai: nothing to summarize")

const deckPrompt = `You are given the extracted text of a PowerPoint presentation, slide by slide.
Write a concise summary of the whole deck in at most five sentences.
Reply with the summary only.

`

// Summary is a generated deck summary and the tokens it cost.
type Summary struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client struct {
	client    *genai.Client
	modelName string
	settings  config.ProviderSettings
}

// NewClient connects to Gemini with the provider's API key.
func NewClient(ctx context.Context, settings config.ProviderSettings) (*Client, error) {
	if settings.Key == "" {
		return nil, errors.New("ai: missing API key")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(settings.Key))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	name := settings.Model
	if name == "" {
		name = defaultModel
	}
	return &Client{client: cl, modelName: name, settings: settings}, nil
}

func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// SummarizeDeck asks the model for a short summary of text.
func (c *Client) SummarizeDeck(ctx context.Context, text string) (*Summary, error) {
	prompt, err := buildPrompt(text)
	if err != nil {
		return nil, err
	}

	m := c.client.GenerativeModel(c.modelName)
	if c.settings.Temperature > 0 {
		m.SetTemperature(float32(c.settings.Temperature))
	}
	if c.settings.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(c.settings.MaxTokens))
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return summaryFromResponse(resp, c.modelName), nil
}

func buildPrompt(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	if r := []rune(text); len(r) > maxInputChars {
		text = string(r[:maxInputChars])
	}
	return deckPrompt + text, nil
}

func summaryFromResponse(resp *genai.GenerateContentResponse, model string) *Summary {
	s := &Summary{Model: model}
	if resp == nil {
		return s
	}
	if u := resp.UsageMetadata; u != nil {
		s.PromptTokens = int(u.PromptTokenCount)
		s.CompletionTokens = int(u.CandidatesTokenCount)
		s.TotalTokens = int(u.TotalTokenCount)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return s
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	s.Text = strings.TrimSpace(b.String())
	return s
}
