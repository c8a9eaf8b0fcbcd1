// Package confirm renders spoken confirmation phrases for executed
// commands. Phrases report what actually happened, not what was asked:
// a delete that found only three of five requested units says three.
package confirm

import (
	"fmt"
	"strings"

	"github.com/equiproom/jerseyvox/internal/command"
	"github.com/equiproom/jerseyvox/internal/executor"
)

// Generator renders confirmations. The zero value is ready to use.
type Generator struct{}

// New returns a Generator.
func New() *Generator {
	return &Generator{}
}

// Confirm renders the spoken phrase for one execution result. It returns
// ("", false) when there is nothing to confirm: unknown commands and
// read-only verbs produce no speech here, their feedback path is the
// session error message or the query response.
func (g *Generator) Confirm(res executor.Result) (string, bool) {
	cmd := res.Command

	switch cmd.Type {
	case command.TypeAdd:
		if res.Created {
			// describe already carries the new row's size.
			bare := cmd
			bare.Size = ""
			return fmt.Sprintf("Created %s for %s with %s.",
				describe(cmd, res), subject(bare, res), units(res.Rows[0].QtyInventory)), true
		}
		return fmt.Sprintf("Added %s for %s, now %d on hand.",
			units(cmd.EffectiveQuantity()), subject(cmd, res), res.Rows[0].QtyInventory), true

	case command.TypeRemove:
		return fmt.Sprintf("Removed %s for %s, %d left.",
			units(cmd.EffectiveQuantity()), subject(cmd, res), res.Rows[0].QtyInventory), true

	case command.TypeSet:
		if cmd.IsSetSize() {
			return fmt.Sprintf("Changed %s's size to %s.", subject(cmd, res), cmd.Size), true
		}
		return fmt.Sprintf("Set %s to %s.", subject(cmd, res), units(res.Rows[0].QtyInventory)), true

	case command.TypeTurnIn:
		phrase := fmt.Sprintf("Turned in %s for %s", units(cmd.EffectiveQuantity()), subject(cmd, res))
		if cmd.Recipient != "" {
			phrase += " to " + cmd.Recipient
		}
		return phrase + ".", true

	case command.TypeLaundryReturn:
		return fmt.Sprintf("Welcomed back %s from the laundry for %s, %d on hand.",
			units(cmd.EffectiveQuantity()), subject(cmd, res), res.Rows[0].QtyInventory), true

	case command.TypeDelete:
		if res.RemovedCount == 0 {
			return fmt.Sprintf("Nothing to remove for %s.", subject(cmd, res)), true
		}
		return fmt.Sprintf("Removed %s for %s across %d %s.",
			units(res.RemovedCount), subject(cmd, res),
			len(res.Rows), plural(len(res.Rows), "entry", "entries")), true

	case command.TypeOrder:
		return fmt.Sprintf("Noted an order of %s for %s.",
			units(cmd.EffectiveQuantity()), subject(cmd, res)), true

	case command.TypeShow, command.TypeFilter, command.TypeGenerate, command.TypeUnknown:
		return "", false
	}
	return "", false
}

// subject names what the command acted on, preferring the resolved row's
// canonical spelling over the spoken one. A size on the command is part
// of the subject, except for the size-mutating set where the size is the
// new value rather than a selector.
func subject(cmd command.Command, res executor.Result) string {
	var parts []string
	name := cmd.PlayerName
	if len(res.Rows) > 0 && res.Rows[0].PlayerName != "" {
		name = res.Rows[0].PlayerName
	}
	if name != "" {
		parts = append(parts, name)
	}
	if cmd.Edition != "" {
		parts = append(parts, string(cmd.Edition))
	}
	if cmd.Size != "" && !cmd.IsSetSize() {
		parts = append(parts, "size "+cmd.Size)
	}
	if len(parts) == 0 {
		return "the jerseys"
	}
	return strings.Join(parts, " ")
}

// describe renders the jersey spec of a freshly created row.
func describe(cmd command.Command, res executor.Result) string {
	row := res.Rows[0]
	var parts []string
	if row.Edition != "" {
		parts = append(parts, string(row.Edition))
	}
	parts = append(parts, "jerseys")
	if row.Size != "" {
		parts = append(parts, "size "+row.Size)
	}
	return "a new entry of " + strings.Join(parts, " ")
}

func units(n int) string {
	return fmt.Sprintf("%d %s", n, plural(n, "jersey", "jerseys"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
