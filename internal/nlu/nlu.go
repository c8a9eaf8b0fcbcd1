// Package nlu interprets transcripts with a language model, falling back
// to the deterministic grammar when the model is unavailable or returns
// garbage.
//
// The model is asked for structured JSON: either a single command object
// or an array of them, which is how compound utterances ("add two for
// Jalen and remove one for Fred") become multiple commands. Exactly one
// model request is made per transcript; there are no retries. Any failure
// — transport error, unparseable output, or a parse where every command
// came back unknown — silently degrades to the grammar path so a flaky
// model never blocks the operator.
package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/equiproom/jerseyvox/internal/command"
	"github.com/equiproom/jerseyvox/internal/grammar"
	"github.com/equiproom/jerseyvox/internal/inventory"
	"github.com/equiproom/jerseyvox/pkg/provider/llm"
)

// Source identifies which interpreter produced a command set.
type Source string

const (
	SourceModel   Source = "model"
	SourceGrammar Source = "grammar"
)

// maxSnapshotRows caps how much inventory context goes into the prompt.
const maxSnapshotRows = 40

const maxCompletionTokens = 512

const systemPrompt = `You convert spoken jersey inventory commands into JSON.

Respond with a single JSON object, or a JSON array of objects for compound
utterances. No prose, no markdown fences. Each object has:
  "type": one of "add", "remove", "delete", "set", "turn_in",
          "laundry_return", "order", "show", "unknown"
  "player_name": the player mentioned, if any
  "edition": one of "Icon", "Statement", "Association", "City", if mentioned
  "size": jersey size as a string, if mentioned
  "quantity": integer count, omit when not spoken
  "target_quantity": integer, only for "set" quantity commands
  "recipient": who received the jerseys, only for "turn_in"
  "notes": "set_size" when a set command changes the size instead of the count

Use "unknown" when the utterance is not an inventory command.`

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxSnapshotRows overrides how many inventory rows are included in
// the model prompt.
func WithMaxSnapshotRows(n int) Option {
	return func(i *Interpreter) {
		if n > 0 {
			i.maxRows = n
		}
	}
}

// Interpreter turns transcripts into commands. Safe for concurrent use.
type Interpreter struct {
	provider llm.Provider
	grammar  *grammar.Interpreter
	maxRows  int
}

// New creates an Interpreter. provider may be nil, in which case every
// transcript goes straight to the grammar.
func New(provider llm.Provider, g *grammar.Interpreter, opts ...Option) *Interpreter {
	i := &Interpreter{
		provider: provider,
		grammar:  g,
		maxRows:  maxSnapshotRows,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Interpret parses a transcript into one or more commands. snapshot gives
// the model context for player and edition names; it is never mutated.
// The returned Source says which path produced the result.
func (i *Interpreter) Interpret(ctx context.Context, transcript string, snapshot []inventory.Row) ([]command.Command, Source) {
	if i.provider == nil {
		return []command.Command{i.grammar.Interpret(transcript)}, SourceGrammar
	}

	cmds, err := i.interpretModel(ctx, transcript, snapshot)
	if err != nil {
		slog.Warn("nlu: model interpretation failed, using grammar",
			"provider", i.provider.Name(), "err", err)
		return []command.Command{i.grammar.Interpret(transcript)}, SourceGrammar
	}
	return cmds, SourceModel
}

// interpretModel performs the single model request and parses its output.
func (i *Interpreter) interpretModel(ctx context.Context, transcript string, snapshot []inventory.Row) ([]command.Command, error) {
	resp, err := i.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: i.buildPrompt(transcript, snapshot)},
		},
		Temperature: 0,
		MaxTokens:   maxCompletionTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("nlu: complete: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("nlu: empty model response")
	}

	cmds, err := parseCommands(resp.Content)
	if err != nil {
		return nil, err
	}

	allUnknown := true
	for _, c := range cmds {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("nlu: model produced invalid command: %w", err)
		}
		if c.Type != command.TypeUnknown {
			allUnknown = false
		}
	}
	if allUnknown {
		return nil, fmt.Errorf("nlu: model classified everything as unknown")
	}
	return cmds, nil
}

// buildPrompt renders the transcript plus a compact inventory listing so
// the model can spell player names and editions the way the table does.
func (i *Interpreter) buildPrompt(transcript string, snapshot []inventory.Row) string {
	var b strings.Builder
	b.WriteString("Transcript: ")
	b.WriteString(transcript)
	b.WriteString("\n\nCurrent inventory:\n")

	n := len(snapshot)
	if n > i.maxRows {
		n = i.maxRows
	}
	for _, r := range snapshot[:n] {
		fmt.Fprintf(&b, "- %s, %s, size %s, %d on hand\n",
			r.PlayerName, r.Edition, r.Size, r.QtyInventory)
	}
	if len(snapshot) > n {
		fmt.Fprintf(&b, "(%d more rows omitted)\n", len(snapshot)-n)
	}
	return b.String()
}

// parseCommands decodes a model reply that is either one command object or
// an array of them. Markdown fences are tolerated because smaller models
// add them despite instructions.
func parseCommands(content string) ([]command.Command, error) {
	text := stripFences(strings.TrimSpace(content))

	if strings.HasPrefix(text, "[") {
		var cmds []command.Command
		if err := json.Unmarshal([]byte(text), &cmds); err != nil {
			return nil, fmt.Errorf("nlu: parse command array: %w", err)
		}
		if len(cmds) == 0 {
			return nil, fmt.Errorf("nlu: model returned empty command array")
		}
		return cmds, nil
	}

	var cmd command.Command
	if err := json.Unmarshal([]byte(text), &cmd); err != nil {
		return nil, fmt.Errorf("nlu: parse command object: %w", err)
	}
	return []command.Command{cmd}, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
