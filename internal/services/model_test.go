package services

import (
	"testing"

	"github.com/google/generative-ai-go/genai"

	"chatline-backend/internal/models"
)

func TestSplitForProvider(t *testing.T) {
	msgs := []models.Message{
		models.TextMessage(models.RoleSystem, "be terse"),
		models.TextMessage(models.RoleUser, "question one"),
		models.TextMessage(models.RoleAssistant, "answer one"),
		models.TextMessage(models.RoleUser, "question two"),
	}

	history, prompt, system := splitForProvider(msgs)

	if prompt != "question two" {
		t.Errorf("Expected the last turn as prompt, got %q", prompt)
	}
	if system != "be terse" {
		t.Errorf("Expected the system instruction folded out, got %q", system)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "model" {
		t.Errorf("Expected roles [user model], got [%s %s]", history[0].Role, history[1].Role)
	}
}

func TestSplitForProvider_SingleMessage(t *testing.T) {
	history, prompt, system := splitForProvider([]models.Message{
		models.TextMessage(models.RoleUser, "hi"),
	})

	if len(history) != 0 {
		t.Errorf("Expected empty history, got %d entries", len(history))
	}
	if prompt != "hi" || system != "" {
		t.Errorf("Expected bare prompt, got prompt=%q system=%q", prompt, system)
	}
}

func TestSplitForProvider_SkipsEmptyHistoryTurns(t *testing.T) {
	msgs := []models.Message{
		{ID: "m1", Role: models.RoleUser}, // no parts
		models.TextMessage(models.RoleUser, "real question"),
	}

	history, prompt, _ := splitForProvider(msgs)
	if len(history) != 0 {
		t.Errorf("Expected textless turns dropped from history, got %d entries", len(history))
	}
	if prompt != "real question" {
		t.Errorf("Expected the real turn as prompt, got %q", prompt)
	}
}

func TestFragments(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []genai.Part{
					genai.Text("hello"),
					genai.FunctionCall{Name: "lookup", Args: map[string]any{"q": "weather"}},
					genai.Text(""),
				},
			},
		}},
	}

	frags := fragments(resp)
	if len(frags) != 2 {
		t.Fatalf("Expected 2 fragments, got %d", len(frags))
	}
	if frags[0].Text != "hello" {
		t.Errorf("Expected a text fragment, got %+v", frags[0])
	}
	if frags[1].ToolName != "lookup" || frags[1].ToolArgs != `{"q":"weather"}` {
		t.Errorf("Expected a tool-call fragment, got %+v", frags[1])
	}
}

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []genai.Part{genai.Text("part one "), genai.Text("part two")},
			},
		}},
	}

	if got := extractText(resp); got != "part one part two" {
		t.Errorf("Expected concatenated text, got %q", got)
	}
}
