package nlu

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/equiproom/jerseyvox/internal/command"
	"github.com/equiproom/jerseyvox/internal/grammar"
	"github.com/equiproom/jerseyvox/internal/inventory"
	"github.com/equiproom/jerseyvox/pkg/provider/llm"
	llmmock "github.com/equiproom/jerseyvox/pkg/provider/llm/mock"
)

func newInterpreter(p llm.Provider) *Interpreter {
	return New(p, grammar.New())
}

// ─── model path ──────────────────────────────────────────────────────────────

func TestInterpretModelSingleObject(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"type":"add","player_name":"Jalen Green","quantity":2}`,
		},
	}
	cmds, src := newInterpreter(p).Interpret(context.Background(), "add two jerseys for jalen", nil)
	if src != SourceModel {
		t.Fatalf("source = %s, want model", src)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	if cmds[0].Type != command.TypeAdd || cmds[0].Quantity != 2 {
		t.Errorf("command = %+v", cmds[0])
	}
	if p.CallCount() != 1 {
		t.Errorf("model calls = %d, want exactly 1", p.CallCount())
	}
}

func TestInterpretModelArrayForCompoundUtterance(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `[{"type":"add","player_name":"Jalen Green","quantity":2},
			           {"type":"remove","player_name":"Fred VanVleet","quantity":1}]`,
		},
	}
	cmds, src := newInterpreter(p).Interpret(context.Background(),
		"add two for jalen and remove one for fred", nil)
	if src != SourceModel {
		t.Fatalf("source = %s, want model", src)
	}
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2", len(cmds))
	}
	if cmds[0].Type != command.TypeAdd || cmds[1].Type != command.TypeRemove {
		t.Errorf("commands = %+v", cmds)
	}
}

func TestInterpretModelToleratesCodeFences(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "```json\n{\"type\":\"remove\",\"player_name\":\"Jalen Green\",\"quantity\":1}\n```",
		},
	}
	cmds, src := newInterpreter(p).Interpret(context.Background(), "take one away from jalen", nil)
	if src != SourceModel {
		t.Fatalf("source = %s, want model", src)
	}
	if cmds[0].Type != command.TypeRemove {
		t.Errorf("type = %s, want remove", cmds[0].Type)
	}
}

func TestInterpretPromptCarriesSnapshot(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"type":"show"}`},
	}
	snapshot := []inventory.Row{
		{PlayerName: "Jalen Green", Edition: command.EditionIcon, Size: "48", QtyInventory: 5},
	}
	newInterpreter(p).Interpret(context.Background(), "what do we have", snapshot)

	if p.CallCount() != 1 {
		t.Fatalf("model calls = %d", p.CallCount())
	}
	prompt := p.CompleteCalls[0].Req.Messages[0].Content
	if !strings.Contains(prompt, "Jalen Green") || !strings.Contains(prompt, "Icon") {
		t.Errorf("prompt missing snapshot context: %q", prompt)
	}
	if p.CompleteCalls[0].Req.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", p.CompleteCalls[0].Req.Temperature)
	}
}

// ─── fallback path ───────────────────────────────────────────────────────────

func TestInterpretFallsBackOnProviderError(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{CompleteErr: errors.New("rate limited")}
	cmds, src := newInterpreter(p).Interpret(context.Background(), "add 2 jerseys for jalen green", nil)
	if src != SourceGrammar {
		t.Fatalf("source = %s, want grammar", src)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	if cmds[0].Type != command.TypeAdd {
		t.Errorf("grammar fallback type = %s, want add", cmds[0].Type)
	}
	// No retry against the model.
	if p.CallCount() != 1 {
		t.Errorf("model calls = %d, want exactly 1", p.CallCount())
	}
}

func TestInterpretFallsBackOnGarbageOutput(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "Sure! I'd be happy to help."},
	}
	_, src := newInterpreter(p).Interpret(context.Background(), "add 2 jerseys for jalen green", nil)
	if src != SourceGrammar {
		t.Fatalf("source = %s, want grammar", src)
	}
}

func TestInterpretFallsBackWhenAllUnknown(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"type":"unknown"}`},
	}
	cmds, src := newInterpreter(p).Interpret(context.Background(), "set jalen to 5", nil)
	if src != SourceGrammar {
		t.Fatalf("source = %s, want grammar", src)
	}
	if cmds[0].Type != command.TypeSet {
		t.Errorf("grammar fallback type = %s, want set", cmds[0].Type)
	}
}

func TestInterpretFallsBackOnInvalidCommand(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"type":"add","edition":"Throwback"}`,
		},
	}
	_, src := newInterpreter(p).Interpret(context.Background(), "add a throwback", nil)
	if src != SourceGrammar {
		t.Fatalf("source = %s, want grammar", src)
	}
}

func TestInterpretNilProviderUsesGrammar(t *testing.T) {
	t.Parallel()

	cmds, src := New(nil, grammar.New()).Interpret(context.Background(), "remove 1 jersey for jalen green", nil)
	if src != SourceGrammar {
		t.Fatalf("source = %s, want grammar", src)
	}
	if cmds[0].Type != command.TypeRemove {
		t.Errorf("type = %s, want remove", cmds[0].Type)
	}
}

// ─── parseCommands ───────────────────────────────────────────────────────────

func TestParseCommandsEmptyArray(t *testing.T) {
	t.Parallel()

	if _, err := parseCommands("[]"); err == nil {
		t.Fatal("expected error for empty array")
	}
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"{}", "{}"},
		{"```\n{}\n```", "{}"},
		{"```json\n{}\n```", "{}"},
	}
	for _, tc := range tests {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
