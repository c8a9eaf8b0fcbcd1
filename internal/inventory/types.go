// Package inventory provides the jersey inventory data model and its
// persistence layer: an in-memory store for tests and single-user dev, and a
// PostgreSQL store for deployment. Every quantity mutation is paired with an
// audit record.
//
// All store operations are safe for concurrent use.
package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/equiproom/jerseyvox/internal/command"
)

// ErrNotFound is returned when a row lookup misses.
var ErrNotFound = errors.New("inventory: row not found")

// ErrDuplicateID is returned when inserting a row whose ID already exists.
var ErrDuplicateID = errors.New("inventory: duplicate row id")

// Row is a single jersey inventory line: one (player, edition, size) combo
// with its on-hand and due-from-laundry counts.
//
// Invariant: all quantity fields are non-negative at every observable
// instant. Decrements clamp to zero before persistence.
type Row struct {
	// ID is a unique identifier. Auto-generated on insert if empty.
	ID string `json:"id"`

	// PlayerName is the jersey owner's display name.
	PlayerName string `json:"player_name"`

	// Edition is the jersey style.
	Edition command.Edition `json:"edition"`

	// Size is a numeric string by convention ("48", "52").
	Size string `json:"size"`

	// QtyInventory is the on-hand count.
	QtyInventory int `json:"qty_inventory"`

	// QtyDueLVA is the count currently away — at the cleaners or in transit.
	QtyDueLVA int `json:"qty_due_lva"`

	// QtyLocker and QtyCloset are capacity-bounded sub-locations,
	// informational only for the voice engine.
	QtyLocker int `json:"qty_locker,omitempty"`
	QtyCloset int `json:"qty_closet,omitempty"`

	// UpdatedAt is the last mutation time; UpdatedBy names the actor.
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// Validate checks row invariants before persistence.
func (r *Row) Validate() error {
	var errs []error
	if r.PlayerName == "" {
		errs = append(errs, errors.New("player_name must not be empty"))
	}
	if r.Edition != "" && !r.Edition.IsValid() {
		errs = append(errs, fmt.Errorf("edition %q is not one of Icon, Statement, Association, City", r.Edition))
	}
	if r.QtyInventory < 0 {
		errs = append(errs, fmt.Errorf("qty_inventory %d is negative", r.QtyInventory))
	}
	if r.QtyDueLVA < 0 {
		errs = append(errs, fmt.Errorf("qty_due_lva %d is negative", r.QtyDueLVA))
	}
	if r.QtyLocker < 0 || r.QtyCloset < 0 {
		errs = append(errs, errors.New("sub-location quantities must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("inventory: invalid row: %w", err)
	}
	return nil
}

// Patch describes a partial row update. Nil pointer fields are untouched.
type Patch struct {
	QtyInventory *int
	QtyDueLVA    *int
	Size         *string

	// UpdatedBy names the actor for this mutation. Always recorded.
	UpdatedBy string
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.QtyInventory == nil && p.QtyDueLVA == nil && p.Size == nil
}

// Apply writes the patch onto row, stamping UpdatedAt/UpdatedBy.
func (p Patch) Apply(row *Row, now time.Time) {
	if p.QtyInventory != nil {
		row.QtyInventory = *p.QtyInventory
	}
	if p.QtyDueLVA != nil {
		row.QtyDueLVA = *p.QtyDueLVA
	}
	if p.Size != nil {
		row.Size = *p.Size
	}
	row.UpdatedAt = now
	row.UpdatedBy = p.UpdatedBy
}

// AuditEntry records one executed mutation: who did it, what verb, and a
// structured blob of exactly which fields changed.
type AuditEntry struct {
	// ID is assigned by the store.
	ID int64 `json:"id,omitempty"`

	// Actor identifies who issued the command (user or turn ID).
	Actor string `json:"actor"`

	// Action is the command verb ("add", "turn_in", ...).
	Action string `json:"action"`

	// Details holds the changed fields, old/new values, and any command
	// metadata worth keeping (recipient of a turn-in, requested vs applied
	// quantity of a delete).
	Details map[string]any `json:"details"`

	// CreatedAt is assigned by the store.
	CreatedAt time.Time `json:"created_at"`
}

// Int returns a pointer to v, for building a [Patch] inline.
func Int(v int) *int { return &v }

// Str returns a pointer to s, for building a [Patch] inline.
func Str(s string) *string { return &s }
