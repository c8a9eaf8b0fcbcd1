package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the inventory tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS jersey_inventory (
    id            TEXT PRIMARY KEY,
    player_name   TEXT NOT NULL,
    edition       TEXT NOT NULL DEFAULT '',
    size          TEXT NOT NULL DEFAULT '',
    qty_inventory INTEGER NOT NULL DEFAULT 0 CHECK (qty_inventory >= 0),
    qty_due_lva   INTEGER NOT NULL DEFAULT 0 CHECK (qty_due_lva >= 0),
    qty_locker    INTEGER NOT NULL DEFAULT 0 CHECK (qty_locker >= 0),
    qty_closet    INTEGER NOT NULL DEFAULT 0 CHECK (qty_closet >= 0),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_by    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_jersey_inventory_player ON jersey_inventory(player_name);
CREATE INDEX IF NOT EXISTS idx_jersey_inventory_edition ON jersey_inventory(edition);

CREATE TABLE IF NOT EXISTS audit_log (
    id         BIGSERIAL PRIMARY KEY,
    actor      TEXT NOT NULL DEFAULT '',
    action     TEXT NOT NULL,
    details    JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] that uses the given connection
// or pool. The caller is responsible for calling [PostgresStore.Migrate] to
// ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the jersey_inventory and
// audit_log tables if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("inventory: migrate: %w", err)
	}
	return nil
}

const rowColumns = `id, player_name, edition, size,
       qty_inventory, qty_due_lva, qty_locker, qty_closet,
       updated_at, updated_by`

// List implements [Store.List].
func (s *PostgresStore) List(ctx context.Context) ([]Row, error) {
	query := `SELECT ` + rowColumns + `
		FROM jersey_inventory
		ORDER BY player_name, edition, size`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("inventory: list: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := scanRow(rows, &r); err != nil {
			return nil, fmt.Errorf("inventory: list scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: list: %w", err)
	}
	return out, nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (Row, error) {
	query := `SELECT ` + rowColumns + ` FROM jersey_inventory WHERE id = $1`

	var r Row
	err := scanRow(s.db.QueryRow(ctx, query, id), &r)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Row{}, ErrNotFound
		}
		return Row{}, fmt.Errorf("inventory: get %q: %w", id, err)
	}
	return r, nil
}

// Insert implements [Store.Insert].
func (s *PostgresStore) Insert(ctx context.Context, row Row) (Row, error) {
	if err := row.Validate(); err != nil {
		return Row{}, err
	}
	if row.ID == "" {
		id, err := generateID()
		if err != nil {
			return Row{}, fmt.Errorf("inventory: generate id: %w", err)
		}
		row.ID = id
	}

	const query = `
		INSERT INTO jersey_inventory (
			id, player_name, edition, size,
			qty_inventory, qty_due_lva, qty_locker, qty_closet, updated_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING updated_at`

	err := s.db.QueryRow(ctx, query,
		row.ID, row.PlayerName, row.Edition, row.Size,
		row.QtyInventory, row.QtyDueLVA, row.QtyLocker, row.QtyCloset, row.UpdatedBy,
	).Scan(&row.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return Row{}, ErrDuplicateID
		}
		return Row{}, fmt.Errorf("inventory: insert: %w", err)
	}
	return row, nil
}

// Update implements [Store.Update]. The patch is translated into a single
// UPDATE statement so the row change is atomic at the database level.
func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) error {
	sets := []string{"updated_at = now()", "updated_by = $2"}
	args := []any{id, patch.UpdatedBy}

	if patch.QtyInventory != nil {
		args = append(args, *patch.QtyInventory)
		sets = append(sets, fmt.Sprintf("qty_inventory = $%d", len(args)))
	}
	if patch.QtyDueLVA != nil {
		args = append(args, *patch.QtyDueLVA)
		sets = append(sets, fmt.Sprintf("qty_due_lva = $%d", len(args)))
	}
	if patch.Size != nil {
		args = append(args, *patch.Size)
		sets = append(sets, fmt.Sprintf("size = $%d", len(args)))
	}

	query := `UPDATE jersey_inventory SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("inventory: update %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendAudit implements [Store.AppendAudit].
func (s *PostgresStore) AppendAudit(ctx context.Context, entry AuditEntry) error {
	details, err := json.Marshal(emptyMap(entry.Details))
	if err != nil {
		return fmt.Errorf("inventory: marshal audit details: %w", err)
	}

	const query = `
		INSERT INTO audit_log (actor, action, details)
		VALUES ($1, $2, $3)`

	if _, err := s.db.Exec(ctx, query, entry.Actor, entry.Action, details); err != nil {
		return fmt.Errorf("inventory: append audit: %w", err)
	}
	return nil
}

// ListAudit implements [Store.ListAudit].
func (s *PostgresStore) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	const query = `
		SELECT id, actor, action, details, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("inventory: list audit: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("inventory: list audit scan: %w", err)
		}
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("inventory: unmarshal audit details: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: list audit: %w", err)
	}
	return out, nil
}

// scanRow scans one jersey_inventory row in [rowColumns] order.
func scanRow(row pgx.Row, r *Row) error {
	return row.Scan(
		&r.ID, &r.PlayerName, &r.Edition, &r.Size,
		&r.QtyInventory, &r.QtyDueLVA, &r.QtyLocker, &r.QtyCloset,
		&r.UpdatedAt, &r.UpdatedBy,
	)
}

// emptyMap substitutes an empty map for nil so JSONB columns never hold SQL
// NULL.
func emptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// isDuplicateKeyError reports whether err is a PostgreSQL unique-violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
