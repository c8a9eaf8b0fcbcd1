// Package resolver matches a possibly underspecified command against an
// inventory snapshot. It fills in a missing size from session memory,
// narrows the snapshot by whatever fields the command carries, and applies
// a per-verb tie-break when several rows remain.
//
// The snapshot is always an explicit parameter — the resolver never holds
// inventory state of its own, so a command is always resolved against the
// rows captured at the moment it was issued.
package resolver

import (
	"errors"
	"sort"
	"strings"

	"github.com/equiproom/jerseyvox/internal/command"
	"github.com/equiproom/jerseyvox/internal/inventory"
)

// ErrNoTarget is returned when a command that needs an existing row matches
// nothing in the snapshot. Add commands are exempt: an unmatched add is
// resolved as a new-row synthesis (see [Resolution.CreateNew]).
var ErrNoTarget = errors.New("resolver: no matching inventory row")

// defaultSize is the final fallback when neither session memory nor the
// snapshot suggests a size.
const defaultSize = "48"

// Resolution is the outcome of resolving one command.
type Resolution struct {
	// Command is the input command with its Size defaulted where the
	// speaker omitted one, and its PlayerName corrected to the roster
	// spelling when phonetic matching fired.
	Command command.Command

	// Rows are the matched target rows in application order. Single-target
	// verbs carry exactly one row; delete carries every candidate.
	Rows []inventory.Row

	// CreateNew is set for an add that matched nothing: the executor
	// synthesises a fresh row from Command instead of patching one.
	CreateNew bool

	// SizeInferred is set when Command.Size was filled in by defaulting
	// rather than spoken. Inferred sizes are never written back to
	// session memory; only explicit ones are worth remembering.
	SizeInferred bool
}

// Target returns the first resolved row, for single-target verbs.
func (r Resolution) Target() inventory.Row {
	if len(r.Rows) == 0 {
		return inventory.Row{}
	}
	return r.Rows[0]
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithRoster supplies the team roster used for phonetic player-name
// correction when an exact match fails. Without a roster, only exact
// matching applies.
func WithRoster(names []string) Option {
	return func(r *Resolver) {
		r.roster = append([]string(nil), names...)
	}
}

// WithDefaultSize overrides the built-in fallback size.
func WithDefaultSize(size string) Option {
	return func(r *Resolver) {
		if size != "" {
			r.defaultSize = size
		}
	}
}

// Resolver matches commands against inventory snapshots. It is read-only
// after construction and safe for concurrent use.
type Resolver struct {
	roster      []string
	defaultSize string
}

// New returns a Resolver with the supplied options.
func New(opts ...Option) *Resolver {
	r := &Resolver{defaultSize: defaultSize}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve determines which row (or rows) cmd applies to within rows.
//
// Size defaulting runs first for single-target verbs that filter by size:
// session memory is consulted under player|edition, player|*, *|edition;
// failing that, the size of the first row matching the command's known
// player/edition filters; failing that, the fixed default. Delete skips
// defaulting (it spans sizes), and the size-mutating form of set treats
// cmd.Size as the value to write, never as a filter.
//
// Tie-breaks when no player name narrows the field to one row: add,
// remove, turn_in, laundry_return, and order take the candidate with the
// highest on-hand quantity; set takes the most recently updated candidate;
// delete takes all candidates in snapshot order.
func (r *Resolver) Resolve(cmd command.Command, rows []inventory.Row, mem *SizeMemory) (Resolution, error) {
	res := Resolution{Command: cmd}

	// Correct the spoken player name to the roster spelling when it
	// matches nothing verbatim.
	if cmd.PlayerName != "" && len(r.roster) > 0 && !hasExactPlayer(rows, cmd.PlayerName) {
		if corrected, ok := matchRoster(cmd.PlayerName, r.roster); ok {
			res.Command.PlayerName = corrected
		}
	}

	// Read-only verbs take no single target; the executor answers them
	// from the snapshot as-is.
	switch cmd.Type {
	case command.TypeShow, command.TypeFilter, command.TypeGenerate, command.TypeUnknown:
		return res, nil
	}

	if needsSizeDefault(res.Command) {
		res.Command.Size = r.defaultSizeFor(res.Command, rows, mem)
		res.SizeInferred = true
	}

	candidates := filterRows(res.Command, rows)

	switch cmd.Type {
	case command.TypeDelete:
		if len(candidates) == 0 {
			return Resolution{}, ErrNoTarget
		}
		res.Rows = candidates
		return res, nil

	case command.TypeAdd:
		if len(candidates) == 0 {
			res.CreateNew = true
			return res, nil
		}
		res.Rows = []inventory.Row{pickHighestQty(candidates)}
		return res, nil

	case command.TypeSet:
		if len(candidates) == 0 {
			return Resolution{}, ErrNoTarget
		}
		res.Rows = []inventory.Row{pickMostRecent(candidates)}
		return res, nil

	default:
		if len(candidates) == 0 {
			return Resolution{}, ErrNoTarget
		}
		res.Rows = []inventory.Row{pickHighestQty(candidates)}
		return res, nil
	}
}

// needsSizeDefault reports whether size defaulting applies to cmd.
func needsSizeDefault(cmd command.Command) bool {
	if cmd.Size != "" {
		return false
	}
	if cmd.Type == command.TypeDelete || cmd.IsSetSize() {
		return false
	}
	return true
}

// defaultSizeFor picks the effective size for a command that omitted one.
func (r *Resolver) defaultSizeFor(cmd command.Command, rows []inventory.Row, mem *SizeMemory) string {
	if mem != nil {
		if size, ok := mem.Lookup(cmd.PlayerName, string(cmd.Edition)); ok {
			return size
		}
	}
	// Fall back to the first row matching the fields we do know.
	probe := cmd
	probe.Size = ""
	for _, row := range rows {
		if rowMatches(probe, row, false) {
			if row.Size != "" {
				return row.Size
			}
		}
	}
	return r.defaultSize
}

// filterRows returns the snapshot rows matching cmd's known fields,
// preserving snapshot order.
func filterRows(cmd command.Command, rows []inventory.Row) []inventory.Row {
	matchSize := !cmd.IsSetSize()
	var out []inventory.Row
	for _, row := range rows {
		if rowMatches(cmd, row, matchSize) {
			out = append(out, row)
		}
	}
	return out
}

// rowMatches tests one row against the command's player/edition/size
// filters. Absent command fields match anything; the player comparison is
// exact but case-insensitive.
func rowMatches(cmd command.Command, row inventory.Row, matchSize bool) bool {
	if cmd.PlayerName != "" && !strings.EqualFold(cmd.PlayerName, row.PlayerName) {
		return false
	}
	if cmd.Edition != "" && cmd.Edition != row.Edition {
		return false
	}
	if matchSize && cmd.Size != "" && cmd.Size != row.Size {
		return false
	}
	return true
}

// hasExactPlayer reports whether any row carries the spoken player name.
func hasExactPlayer(rows []inventory.Row, name string) bool {
	for _, row := range rows {
		if strings.EqualFold(row.PlayerName, name) {
			return true
		}
	}
	return false
}

// pickHighestQty returns the candidate with the highest on-hand quantity.
// Ties resolve to the earliest row in snapshot order, keeping resolution
// deterministic for identical inputs.
func pickHighestQty(candidates []inventory.Row) inventory.Row {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.QtyInventory > best.QtyInventory {
			best = c
		}
	}
	return best
}

// pickMostRecent returns the most recently updated candidate. Set keeps
// this distinct tie-break: it targets the row the operator touched last
// rather than the best-stocked one.
func pickMostRecent(candidates []inventory.Row) inventory.Row {
	sorted := append([]inventory.Row(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	return sorted[0]
}
