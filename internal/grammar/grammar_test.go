package grammar_test

import (
	"testing"

	"github.com/equiproom/jerseyvox/internal/command"
	"github.com/equiproom/jerseyvox/internal/grammar"
)

// ─── command patterns ────────────────────────────────────────────────────────

func TestInterpret_Add(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	cmd := g.Interpret("Add two Jalen Green icon jerseys")
	if cmd.Type != command.TypeAdd {
		t.Fatalf("type: got %q, want add", cmd.Type)
	}
	if cmd.Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", cmd.Quantity)
	}
	if cmd.PlayerName != "Jalen Green" {
		t.Errorf("player: got %q, want Jalen Green", cmd.PlayerName)
	}
	if cmd.Edition != command.EditionIcon {
		t.Errorf("edition: got %q, want Icon", cmd.Edition)
	}
}

func TestInterpret_RemoveWithSizeAndFor(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	cmd := g.Interpret("remove three size 52 statement jerseys for Alperen Sengun")
	if cmd.Type != command.TypeRemove {
		t.Fatalf("type: got %q, want remove", cmd.Type)
	}
	if cmd.Quantity != 3 {
		t.Errorf("quantity: got %d, want 3", cmd.Quantity)
	}
	if cmd.Size != "52" {
		t.Errorf("size: got %q, want 52", cmd.Size)
	}
	if cmd.Edition != command.EditionStatement {
		t.Errorf("edition: got %q, want Statement", cmd.Edition)
	}
	if cmd.PlayerName != "Alperen Sengun" {
		t.Errorf("player: got %q, want Alperen Sengun", cmd.PlayerName)
	}
}

func TestInterpret_SetQuantity(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	cmd := g.Interpret("set Jalen Green to five")
	if cmd.Type != command.TypeSet {
		t.Fatalf("type: got %q, want set", cmd.Type)
	}
	if cmd.TargetQuantity != 5 {
		t.Errorf("target: got %d, want 5", cmd.TargetQuantity)
	}
	if cmd.PlayerName != "Jalen Green" {
		t.Errorf("player: got %q, want Jalen Green", cmd.PlayerName)
	}
	if cmd.IsSetSize() {
		t.Error("plain set must not be a size mutation")
	}
}

func TestInterpret_SetSize(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	cmd := g.Interpret("set Jalen's size to 52")
	if cmd.Type != command.TypeSet {
		t.Fatalf("type: got %q, want set", cmd.Type)
	}
	if !cmd.IsSetSize() {
		t.Fatal("expected a size mutation")
	}
	if cmd.Size != "52" {
		t.Errorf("size: got %q, want 52", cmd.Size)
	}
	if cmd.PlayerName != "Jalen" {
		t.Errorf("player: got %q, want Jalen", cmd.PlayerName)
	}
}

func TestInterpret_TurnInWithRecipient(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	cmd := g.Interpret("turn in two Jalen Green jerseys to coach")
	if cmd.Type != command.TypeTurnIn {
		t.Fatalf("type: got %q, want turn_in", cmd.Type)
	}
	if cmd.Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", cmd.Quantity)
	}
	if cmd.Recipient != "Coach" {
		t.Errorf("recipient: got %q, want Coach", cmd.Recipient)
	}
	if cmd.PlayerName != "Jalen Green" {
		t.Errorf("player: got %q, want Jalen Green", cmd.PlayerName)
	}
}

func TestInterpret_GiveSingleToRecipient(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	cmd := g.Interpret("give a jersey to Bob")
	if cmd.Type != command.TypeTurnIn {
		t.Fatalf("type: got %q, want turn_in", cmd.Type)
	}
	if cmd.Quantity != 1 {
		t.Errorf("quantity: got %d, want 1", cmd.Quantity)
	}
	if cmd.Recipient != "Bob" {
		t.Errorf("recipient: got %q, want Bob", cmd.Recipient)
	}
}

func TestInterpret_DirectDelete(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	cmd := g.Interpret("delete 2 icon jerseys")
	if cmd.Type != command.TypeDelete {
		t.Fatalf("type: got %q, want delete", cmd.Type)
	}
	if cmd.Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", cmd.Quantity)
	}
	if cmd.Edition != command.EditionIcon {
		t.Errorf("edition: got %q, want Icon", cmd.Edition)
	}
}

func TestInterpret_ClearDelete(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	cmd := g.Interpret("clear out Jalen Green icon jerseys")
	if cmd.Type != command.TypeDelete {
		t.Fatalf("type: got %q, want delete", cmd.Type)
	}
	if cmd.Quantity != 0 {
		t.Errorf("quantity: got %d, want 0 (all units)", cmd.Quantity)
	}
	if cmd.PlayerName != "Jalen Green" {
		t.Errorf("player: got %q, want Jalen Green", cmd.PlayerName)
	}
}

func TestInterpret_LaundryReturn(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	cmd := g.Interpret("three Jalen Green jerseys came back from the laundry")
	if cmd.Type != command.TypeLaundryReturn {
		t.Fatalf("type: got %q, want laundry_return", cmd.Type)
	}
	if cmd.Quantity != 3 {
		t.Errorf("quantity: got %d, want 3", cmd.Quantity)
	}
	if cmd.PlayerName != "Jalen Green" {
		t.Errorf("player: got %q, want Jalen Green", cmd.PlayerName)
	}
}

func TestInterpret_Order(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	cmd := g.Interpret("order five Fred VanVleet city jerseys")
	if cmd.Type != command.TypeOrder {
		t.Fatalf("type: got %q, want order", cmd.Type)
	}
	if cmd.Quantity != 5 {
		t.Errorf("quantity: got %d, want 5", cmd.Quantity)
	}
	if cmd.Edition != command.EditionCity {
		t.Errorf("edition: got %q, want City", cmd.Edition)
	}
	if cmd.PlayerName != "Fred Vanvleet" {
		t.Errorf("player: got %q, want Fred Vanvleet", cmd.PlayerName)
	}
}

func TestInterpret_UnknownInput(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	for _, transcript := range []string{
		"",
		"   ",
		"what is the weather like",
		"hello there",
	} {
		cmd := g.Interpret(transcript)
		if cmd.Type != command.TypeUnknown {
			t.Errorf("Interpret(%q).Type = %q, want unknown", transcript, cmd.Type)
		}
	}
}

// ─── pattern priority ────────────────────────────────────────────────────────

func TestInterpret_GiveAwayOutranksRemove(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	// "take away" alone is a removal; "give away" is a turn-in even though
	// both contain "away".
	cmd := g.Interpret("give away two Jalen Green jerseys")
	if cmd.Type != command.TypeTurnIn {
		t.Errorf("give away: got %q, want turn_in", cmd.Type)
	}

	cmd = g.Interpret("take away two Jalen Green jerseys")
	if cmd.Type != command.TypeRemove {
		t.Errorf("take away: got %q, want remove", cmd.Type)
	}
}

// ─── spoken numbers ──────────────────────────────────────────────────────────

func TestInterpret_NumberWords(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	tests := []struct {
		transcript string
		wantQty    int
	}{
		{"add one Jalen Green jersey", 1},
		{"add twelve Jalen Green jerseys", 12},
		{"add twenty Jalen Green jerseys", 20},
		{"add a jersey", 1},
	}
	for _, tc := range tests {
		cmd := g.Interpret(tc.transcript)
		if cmd.Quantity != tc.wantQty {
			t.Errorf("Interpret(%q).Quantity = %d, want %d", tc.transcript, cmd.Quantity, tc.wantQty)
		}
	}
}

func TestInterpret_HomophoneInQuantitySlot(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	// "to" right after the verb and before a noun is the number two.
	cmd := g.Interpret("add to icon jerseys")
	if cmd.Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", cmd.Quantity)
	}

	// "for" in a quantity slot is the number four.
	cmd = g.Interpret("order for jerseys")
	if cmd.Quantity != 4 {
		t.Errorf("quantity: got %d, want 4", cmd.Quantity)
	}
}

func TestInterpret_HomophoneOutsideQuantitySlotSurvives(t *testing.T) {
	t.Parallel()
	g := grammar.New()

	// "for Jalen" is a preposition, not the number four.
	cmd := g.Interpret("add two jerseys for Jalen Green")
	if cmd.Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", cmd.Quantity)
	}
	if cmd.PlayerName != "Jalen Green" {
		t.Errorf("player: got %q, want Jalen Green", cmd.PlayerName)
	}

	// "set size to 48" keeps "to" as a preposition.
	cmd = g.Interpret("set Jalen size to 48")
	if !cmd.IsSetSize() {
		t.Fatal("expected a size mutation")
	}
	if cmd.Size != "48" {
		t.Errorf("size: got %q, want 48", cmd.Size)
	}
}
