package inventory

import "context"

// Store is the persistence collaborator for the voice engine. The executor
// awaits every call before reporting success; none of these operations may
// be treated as fire-and-forget.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// List returns all inventory rows. The slice is a snapshot the caller
	// owns; mutating it does not affect the store.
	List(ctx context.Context) ([]Row, error)

	// Get retrieves a row by ID. Returns [ErrNotFound] when absent.
	Get(ctx context.Context, id string) (Row, error)

	// Insert adds a new row, validating it first. A row with an empty ID
	// gets a generated one; the stored row is returned.
	Insert(ctx context.Context, row Row) (Row, error)

	// Update applies a partial update to the row with the given ID.
	// Returns [ErrNotFound] when the row does not exist.
	Update(ctx context.Context, id string, patch Patch) error

	// AppendAudit records an executed mutation.
	AppendAudit(ctx context.Context, entry AuditEntry) error

	// ListAudit returns the most recent audit entries, newest first,
	// capped at limit (limit <= 0 means a store-chosen default).
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
}
