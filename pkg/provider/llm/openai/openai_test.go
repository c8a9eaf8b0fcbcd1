package openai

import (
	"testing"

	"github.com/equiproom/jerseyvox/pkg/provider/llm"
)

// ── New validation ────────────────────────────────────────────────────────────

// TestNew_EmptyAPIKey checks that an empty API key is rejected.
func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

// TestNew_EmptyModel checks that an empty model is rejected.
func TestNew_EmptyModel(t *testing.T) {
	if _, err := New("sk-test", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}

// ── buildParams ───────────────────────────────────────────────────────────────

// TestBuildParams_Roles checks that each role maps to the right union arm.
func TestBuildParams_Roles(t *testing.T) {
	p, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	params, err := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "Parse commands.",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "add two jerseys"},
			{Role: llm.RoleAssistant, Content: `{"type":"add"}`},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(params.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].OfSystem == nil {
		t.Error("expected first message to be system")
	}
	if params.Messages[1].OfUser == nil {
		t.Error("expected second message to be user")
	}
	if params.Messages[2].OfAssistant == nil {
		t.Error("expected third message to be assistant")
	}
}

// TestBuildParams_UnknownRole checks that unknown roles produce an error.
func TestBuildParams_UnknownRole(t *testing.T) {
	p, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "oracle", Content: "?"}},
	})
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}
