// Package command defines the structured voice command contract shared by
// every producer and consumer in the pipeline: the grammar interpreter and
// the NLU adapter emit Commands, the resolver and executor consume them.
//
// Command is a tagged union discriminated by Type. Keeping it a closed enum
// lets the executor switch exhaustively over every verb instead of matching
// on free-form strings.
package command

import (
	"fmt"
	"strings"
)

// Type discriminates the Command union.
type Type string

const (
	TypeAdd           Type = "add"
	TypeRemove        Type = "remove"
	TypeDelete        Type = "delete"
	TypeSet           Type = "set"
	TypeTurnIn        Type = "turn_in"
	TypeLaundryReturn Type = "laundry_return"
	TypeOrder         Type = "order"
	TypeShow          Type = "show"
	TypeFilter        Type = "filter"
	TypeGenerate      Type = "generate"
	TypeUnknown       Type = "unknown"
)

// IsValid reports whether t is a recognised command type.
func (t Type) IsValid() bool {
	switch t {
	case TypeAdd, TypeRemove, TypeDelete, TypeSet, TypeTurnIn,
		TypeLaundryReturn, TypeOrder, TypeShow, TypeFilter,
		TypeGenerate, TypeUnknown:
		return true
	}
	return false
}

// Mutates reports whether commands of this type change inventory quantities
// or fields when executed. Show, filter, generate, order, and unknown are
// read-only from the inventory's point of view.
func (t Type) Mutates() bool {
	switch t {
	case TypeAdd, TypeRemove, TypeDelete, TypeSet, TypeTurnIn, TypeLaundryReturn:
		return true
	}
	return false
}

// Edition is one of the four fixed jersey styles.
type Edition string

const (
	EditionIcon        Edition = "Icon"
	EditionStatement   Edition = "Statement"
	EditionAssociation Edition = "Association"
	EditionCity        Edition = "City"
)

// Editions lists all valid editions in canonical order.
var Editions = []Edition{EditionIcon, EditionStatement, EditionAssociation, EditionCity}

// IsValid reports whether e is one of the four canonical editions.
func (e Edition) IsValid() bool {
	switch e {
	case EditionIcon, EditionStatement, EditionAssociation, EditionCity:
		return true
	}
	return false
}

// ParseEdition maps free text onto a canonical Edition. It is tolerant of
// case and a trailing pluralising "s" ("statements" → Statement), and
// accepts any string containing a canonical edition name as a substring so
// that phrases like "city edition" normalise cleanly. Returns ("", false)
// when no edition is recognised.
func ParseEdition(s string) (Edition, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "s")
	if s == "" {
		return "", false
	}
	for _, e := range Editions {
		if strings.Contains(s, strings.ToLower(string(e))) {
			return e, true
		}
	}
	return "", false
}

// NotesSetSize is the Notes marker distinguishing the size-mutating form of
// a set command from the quantity-mutating form. "set size to 52" carries
// this marker; "set jalen's jerseys to 5" does not.
const NotesSetSize = "set_size"

// Command is a single structured inventory instruction. All fields except
// Type are optional; absence is the zero value. Quantity and TargetQuantity
// use -1 internally for "absent" only at JSON decode time — within the
// pipeline a zero Quantity on a type that needs one means "default to 1".
type Command struct {
	// Type discriminates the union. Never empty; unparseable input yields
	// TypeUnknown.
	Type Type `json:"type"`

	// PlayerName is the jersey owner's name as spoken (e.g. "Jalen Green").
	PlayerName string `json:"player_name,omitempty"`

	// Edition is the canonical jersey edition, empty when not mentioned.
	Edition Edition `json:"edition,omitempty"`

	// Size is the jersey size as a numeric string (e.g. "48").
	Size string `json:"size,omitempty"`

	// Quantity is the number of units the command applies to. Zero means
	// unspecified; consumers default it per command type.
	Quantity int `json:"quantity,omitempty"`

	// TargetQuantity is the absolute quantity for set commands.
	TargetQuantity int `json:"target_quantity,omitempty"`

	// Recipient names who received a turned-in jersey, when spoken.
	Recipient string `json:"recipient,omitempty"`

	// FilterType carries the filter criterion for filter commands.
	FilterType string `json:"filter_type,omitempty"`

	// Action carries a sub-action for show/generate commands.
	Action string `json:"action,omitempty"`

	// Notes carries interpreter hints such as [NotesSetSize].
	Notes string `json:"notes,omitempty"`
}

// Unknown is the command returned for unclassifiable transcripts.
func Unknown() Command {
	return Command{Type: TypeUnknown}
}

// Validate checks the internal consistency of a command. It does not check
// resolvability against inventory — that is the resolver's job.
func (c Command) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("command: invalid type %q", c.Type)
	}
	if c.Edition != "" && !c.Edition.IsValid() {
		return fmt.Errorf("command: invalid edition %q", c.Edition)
	}
	if c.Quantity < 0 {
		return fmt.Errorf("command: negative quantity %d", c.Quantity)
	}
	if c.TargetQuantity < 0 {
		return fmt.Errorf("command: negative target quantity %d", c.TargetQuantity)
	}
	if c.Type == TypeSet && c.Notes != NotesSetSize && c.TargetQuantity == 0 && c.Quantity == 0 {
		// Allowed: "set ... to 0" legitimately zeroes a row. The executor
		// treats TargetQuantity as authoritative either way.
		return nil
	}
	return nil
}

// EffectiveQuantity returns the quantity this command applies, defaulting
// to 1 when the speaker omitted a number ("add a jersey for Jalen").
func (c Command) EffectiveQuantity() int {
	if c.Quantity <= 0 {
		return 1
	}
	return c.Quantity
}

// IsSetSize reports whether this is the size-mutating form of set.
func (c Command) IsSetSize() bool {
	return c.Type == TypeSet && c.Notes == NotesSetSize
}

// String renders a compact human-readable form for logs.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(string(c.Type))
	if c.Quantity > 0 {
		fmt.Fprintf(&b, " qty=%d", c.Quantity)
	}
	if c.Type == TypeSet && !c.IsSetSize() {
		fmt.Fprintf(&b, " target=%d", c.TargetQuantity)
	}
	if c.Edition != "" {
		fmt.Fprintf(&b, " edition=%s", c.Edition)
	}
	if c.Size != "" {
		fmt.Fprintf(&b, " size=%s", c.Size)
	}
	if c.PlayerName != "" {
		fmt.Fprintf(&b, " player=%q", c.PlayerName)
	}
	if c.Recipient != "" {
		fmt.Fprintf(&b, " recipient=%q", c.Recipient)
	}
	return b.String()
}
