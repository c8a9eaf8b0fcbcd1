// Package executor turns a resolved command into an inventory delta and
// applies it with optimistic-update semantics: the turn's in-memory
// snapshot is mutated first, the store write is awaited, and on write
// failure the snapshot change is reverted and the failure surfaced. Writes
// are never retried.
//
// Every successful quantity mutation also appends an audit record and, when
// the resulting on-hand count is at or below the configured threshold,
// fires the low-stock side channel, once per mutation, never deduplicated.
// The audit append is awaited like the row write: a mutation whose audit
// record could not be stored is reported as a failure, though the row write
// itself stays in place since it is already durable on its own.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/equiproom/jerseyvox/internal/command"
	"github.com/equiproom/jerseyvox/internal/inventory"
	"github.com/equiproom/jerseyvox/internal/notify"
	"github.com/equiproom/jerseyvox/internal/resolver"
)

// ErrValidation is returned when a resolved mutation would produce an
// invalid state that clamping cannot repair (bad edition, missing fields).
var ErrValidation = errors.New("executor: validation failed")

// ErrPersistence wraps store failures. The optimistic snapshot change has
// been reverted by the time this is returned.
var ErrPersistence = errors.New("executor: persistence failed")

// placeholderPlayer names rows synthesised by an add that mentioned no
// player.
const placeholderPlayer = "Unassigned"

// Snapshot is the turn-local working copy of the inventory. The session
// captures it when a command is issued and passes it explicitly; the
// executor mutates it optimistically and reverts on store failure.
type Snapshot struct {
	Rows []inventory.Row
}

// find returns the index of the row with the given ID, or -1.
func (s *Snapshot) find(id string) int {
	for i := range s.Rows {
		if s.Rows[i].ID == id {
			return i
		}
	}
	return -1
}

// Result reports what an execution actually did.
type Result struct {
	// Command is the resolved command that was executed.
	Command command.Command

	// Rows holds the post-execution state of every touched row.
	Rows []inventory.Row

	// RemovedCount is the number of units actually removed by a delete,
	// which may be less than requested when stock ran out.
	RemovedCount int

	// Created is set when an add synthesised a brand-new row.
	Created bool
}

// Config holds the executor's dependencies.
type Config struct {
	Store    inventory.Store
	Notifier notify.Notifier

	// LowStockThreshold triggers a notification when a mutation leaves
	// qty_inventory at or below it. Zero disables notifications for
	// everything except rows that hit exactly zero.
	LowStockThreshold int

	// Actor is recorded on audit entries and row updates. Usually the
	// session turn ID.
	Actor string
}

// Executor applies resolved commands. Safe for concurrent use, though the
// session serialises turns so only one execution runs at a time.
type Executor struct {
	store     inventory.Store
	notifier  notify.Notifier
	threshold int
	actor     string
}

// New creates an Executor. The store is required; the notifier may be nil
// to disable low-stock notifications.
func New(cfg Config) *Executor {
	return &Executor{
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		threshold: cfg.LowStockThreshold,
		actor:     cfg.Actor,
	}
}

// Execute applies the resolution against the snapshot and the store.
// The switch is exhaustive over every mutating command type; read-only
// types (show, filter, generate, unknown) return an empty Result.
func (e *Executor) Execute(ctx context.Context, res resolver.Resolution, snap *Snapshot) (Result, error) {
	cmd := res.Command
	if err := cmd.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	switch cmd.Type {
	case command.TypeAdd:
		return e.execAdd(ctx, res, snap)
	case command.TypeRemove:
		return e.execRemove(ctx, res, snap)
	case command.TypeSet:
		return e.execSet(ctx, res, snap)
	case command.TypeTurnIn:
		return e.execTurnIn(ctx, res, snap)
	case command.TypeLaundryReturn:
		return e.execLaundryReturn(ctx, res, snap)
	case command.TypeDelete:
		return e.execDelete(ctx, res, snap)
	case command.TypeOrder:
		return e.execOrder(ctx, res)
	case command.TypeShow, command.TypeFilter, command.TypeGenerate, command.TypeUnknown:
		return Result{Command: cmd}, nil
	default:
		return Result{}, fmt.Errorf("%w: unhandled command type %q", ErrValidation, cmd.Type)
	}
}

// ─── per-verb execution ──────────────────────────────────────────────────────

func (e *Executor) execAdd(ctx context.Context, res resolver.Resolution, snap *Snapshot) (Result, error) {
	cmd := res.Command
	qty := cmd.EffectiveQuantity()

	if res.CreateNew {
		name := cmd.PlayerName
		if name == "" {
			name = placeholderPlayer
		}
		row := inventory.Row{
			PlayerName:   name,
			Edition:      cmd.Edition,
			Size:         cmd.Size,
			QtyInventory: qty,
			UpdatedBy:    e.actor,
		}
		stored, err := e.store.Insert(ctx, row)
		if err != nil {
			return Result{}, fmt.Errorf("%w: insert row: %v", ErrPersistence, err)
		}
		snap.Rows = append(snap.Rows, stored)

		if err := e.audit(ctx, cmd, stored, map[string]any{
			"created":       true,
			"qty_inventory": map[string]int{"from": 0, "to": qty},
		}); err != nil {
			return Result{}, err
		}
		e.checkLowStock(ctx, stored)
		return Result{Command: cmd, Rows: []inventory.Row{stored}, Created: true}, nil
	}

	target := res.Target()
	return e.applyQtyChange(ctx, cmd, snap, target.ID, func(r *inventory.Row) {
		r.QtyInventory += qty
	})
}

func (e *Executor) execRemove(ctx context.Context, res resolver.Resolution, snap *Snapshot) (Result, error) {
	cmd := res.Command
	qty := cmd.EffectiveQuantity()
	return e.applyQtyChange(ctx, cmd, snap, res.Target().ID, func(r *inventory.Row) {
		r.QtyInventory = clamp(r.QtyInventory - qty)
	})
}

func (e *Executor) execSet(ctx context.Context, res resolver.Resolution, snap *Snapshot) (Result, error) {
	cmd := res.Command
	target := res.Target()

	if cmd.IsSetSize() {
		if cmd.Size == "" {
			return Result{}, fmt.Errorf("%w: set size without a size value", ErrValidation)
		}
		i := snap.find(target.ID)
		if i < 0 {
			return Result{}, fmt.Errorf("%w: row %q not in snapshot", ErrValidation, target.ID)
		}
		before := snap.Rows[i]
		snap.Rows[i].Size = cmd.Size

		patch := inventory.Patch{Size: inventory.Str(cmd.Size), UpdatedBy: e.actor}
		if err := e.store.Update(ctx, target.ID, patch); err != nil {
			snap.Rows[i] = before
			return Result{}, fmt.Errorf("%w: update row %q: %v", ErrPersistence, target.ID, err)
		}

		if err := e.audit(ctx, cmd, snap.Rows[i], map[string]any{
			"size": map[string]string{"from": before.Size, "to": cmd.Size},
		}); err != nil {
			return Result{}, err
		}
		return Result{Command: cmd, Rows: []inventory.Row{snap.Rows[i]}}, nil
	}

	targetQty := clamp(cmd.TargetQuantity)
	return e.applyQtyChange(ctx, cmd, snap, target.ID, func(r *inventory.Row) {
		r.QtyInventory = targetQty
	})
}

func (e *Executor) execTurnIn(ctx context.Context, res resolver.Resolution, snap *Snapshot) (Result, error) {
	cmd := res.Command
	qty := cmd.EffectiveQuantity()
	result, err := e.applyQtyChange(ctx, cmd, snap, res.Target().ID, func(r *inventory.Row) {
		give := qty
		if give > r.QtyInventory {
			give = r.QtyInventory
		}
		r.QtyInventory -= give
	})
	return result, err
}

func (e *Executor) execLaundryReturn(ctx context.Context, res resolver.Resolution, snap *Snapshot) (Result, error) {
	cmd := res.Command
	qty := cmd.EffectiveQuantity()
	target := res.Target()

	i := snap.find(target.ID)
	if i < 0 {
		return Result{}, fmt.Errorf("%w: row %q not in snapshot", ErrValidation, target.ID)
	}
	before := snap.Rows[i]
	snap.Rows[i].QtyInventory += qty
	snap.Rows[i].QtyDueLVA = clamp(snap.Rows[i].QtyDueLVA - qty)

	patch := inventory.Patch{
		QtyInventory: inventory.Int(snap.Rows[i].QtyInventory),
		QtyDueLVA:    inventory.Int(snap.Rows[i].QtyDueLVA),
		UpdatedBy:    e.actor,
	}
	if err := e.store.Update(ctx, target.ID, patch); err != nil {
		snap.Rows[i] = before
		return Result{}, fmt.Errorf("%w: update row %q: %v", ErrPersistence, target.ID, err)
	}

	if err := e.audit(ctx, cmd, snap.Rows[i], map[string]any{
		"qty_inventory": map[string]int{"from": before.QtyInventory, "to": snap.Rows[i].QtyInventory},
		"qty_due_lva":   map[string]int{"from": before.QtyDueLVA, "to": snap.Rows[i].QtyDueLVA},
	}); err != nil {
		return Result{}, err
	}
	e.checkLowStock(ctx, snap.Rows[i])
	return Result{Command: cmd, Rows: []inventory.Row{snap.Rows[i]}}, nil
}

// execDelete removes up to the requested quantity, spread across every
// matched row in resolver order. Rows that reach zero stay in the table as
// zero-quantity rows. A quantity of zero means "all units". RemovedCount
// reports what was actually removed, which may be less than requested.
func (e *Executor) execDelete(ctx context.Context, res resolver.Resolution, snap *Snapshot) (Result, error) {
	cmd := res.Command
	remaining := cmd.Quantity
	unbounded := remaining <= 0

	result := Result{Command: cmd}
	for _, target := range res.Rows {
		if !unbounded && remaining == 0 {
			break
		}
		i := snap.find(target.ID)
		if i < 0 {
			continue
		}
		take := snap.Rows[i].QtyInventory
		if !unbounded && take > remaining {
			take = remaining
		}
		if take == 0 {
			continue
		}

		before := snap.Rows[i]
		snap.Rows[i].QtyInventory -= take

		patch := inventory.Patch{
			QtyInventory: inventory.Int(snap.Rows[i].QtyInventory),
			UpdatedBy:    e.actor,
		}
		if err := e.store.Update(ctx, target.ID, patch); err != nil {
			snap.Rows[i] = before
			return result, fmt.Errorf("%w: update row %q: %v", ErrPersistence, target.ID, err)
		}

		if err := e.audit(ctx, cmd, snap.Rows[i], map[string]any{
			"qty_inventory": map[string]int{"from": before.QtyInventory, "to": snap.Rows[i].QtyInventory},
			"requested":     cmd.Quantity,
			"removed":       take,
		}); err != nil {
			return result, err
		}
		e.checkLowStock(ctx, snap.Rows[i])

		result.Rows = append(result.Rows, snap.Rows[i])
		result.RemovedCount += take
		if !unbounded {
			remaining -= take
		}
	}
	return result, nil
}

// execOrder performs no quantity mutation: ordering is delegated to an
// external collaborator. Only the audit trail records the request.
func (e *Executor) execOrder(ctx context.Context, res resolver.Resolution) (Result, error) {
	cmd := res.Command
	target := res.Target()

	if err := e.audit(ctx, cmd, target, map[string]any{
		"ordered_qty": cmd.EffectiveQuantity(),
	}); err != nil {
		return Result{}, err
	}
	return Result{Command: cmd, Rows: []inventory.Row{target}}, nil
}

// ─── shared plumbing ─────────────────────────────────────────────────────────

// applyQtyChange runs the optimistic-update protocol for a single-row
// qty_inventory mutation: snapshot first, store second, revert on failure.
func (e *Executor) applyQtyChange(ctx context.Context, cmd command.Command, snap *Snapshot, rowID string, mutate func(*inventory.Row)) (Result, error) {
	i := snap.find(rowID)
	if i < 0 {
		return Result{}, fmt.Errorf("%w: row %q not in snapshot", ErrValidation, rowID)
	}
	before := snap.Rows[i]
	mutate(&snap.Rows[i])
	snap.Rows[i].QtyInventory = clamp(snap.Rows[i].QtyInventory)

	patch := inventory.Patch{
		QtyInventory: inventory.Int(snap.Rows[i].QtyInventory),
		UpdatedBy:    e.actor,
	}
	if err := e.store.Update(ctx, rowID, patch); err != nil {
		snap.Rows[i] = before
		return Result{}, fmt.Errorf("%w: update row %q: %v", ErrPersistence, rowID, err)
	}

	details := map[string]any{
		"qty_inventory": map[string]int{"from": before.QtyInventory, "to": snap.Rows[i].QtyInventory},
	}
	if cmd.Recipient != "" {
		details["recipient"] = cmd.Recipient
	}
	if err := e.audit(ctx, cmd, snap.Rows[i], details); err != nil {
		return Result{}, err
	}
	e.checkLowStock(ctx, snap.Rows[i])

	return Result{Command: cmd, Rows: []inventory.Row{snap.Rows[i]}}, nil
}

// audit appends the audit record for one row mutation. A failed append
// surfaces to the caller; the row write it describes is not reverted,
// being already durable and atomic on its own.
func (e *Executor) audit(ctx context.Context, cmd command.Command, row inventory.Row, details map[string]any) error {
	details["row_id"] = row.ID
	details["player_name"] = row.PlayerName
	entry := inventory.AuditEntry{
		Actor:   e.actor,
		Action:  string(cmd.Type),
		Details: details,
	}
	if err := e.store.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("executor: append audit for row %q: %w", row.ID, err)
	}
	return nil
}

// checkLowStock fires the notifier when the row sits at or below the
// threshold.
func (e *Executor) checkLowStock(ctx context.Context, row inventory.Row) {
	if e.notifier == nil {
		return
	}
	if row.QtyInventory > e.threshold {
		return
	}
	e.notifier.NotifyLowStock(ctx, notify.Summary{
		RowID:      row.ID,
		PlayerName: row.PlayerName,
		Edition:    row.Edition,
		Size:       row.Size,
		Qty:        row.QtyInventory,
		Threshold:  e.threshold,
	})
}

// clamp floors a quantity at zero.
func clamp(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
