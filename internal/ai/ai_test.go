package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/gnemet/pptxinfo/internal/config"
)

func TestBuildPrompt(t *testing.T) {
	if _, err := buildPrompt("  \n "); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}

	p, err := buildPrompt(" Slide 1: Hello ")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(p, deckPrompt) || !strings.HasSuffix(p, "Slide 1: Hello") {
		t.Errorf("prompt = %q", p)
	}

	long := strings.Repeat("é", maxInputChars+10)
	p, err = buildPrompt(long)
	if err != nil {
		t.Fatal(err)
	}
	if got := len([]rune(strings.TrimPrefix(p, deckPrompt))); got != maxInputChars {
		t.Errorf("truncated to %d runes, want %d", got, maxInputChars)
	}
}

func TestSummaryFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("A deck "), genai.Text("about sales.\n")}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 12, CandidatesTokenCount: 5, TotalTokenCount: 17},
	}
	s := summaryFromResponse(resp, "m")
	if s.Text != "A deck about sales." {
		t.Errorf("Text = %q", s.Text)
	}
	if s.Model != "m" || s.PromptTokens != 12 || s.CompletionTokens != 5 || s.TotalTokens != 17 {
		t.Errorf("summary = %+v", s)
	}

	empty := summaryFromResponse(&genai.GenerateContentResponse{}, "m")
	if empty.Text != "" {
		t.Errorf("empty response text = %q", empty.Text)
	}
	if summaryFromResponse(nil, "m") == nil {
		t.Error("nil response gave nil summary")
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), config.ProviderSettings{}); err == nil {
		t.Fatal("expected error without key")
	}
}
