package inventory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// defaultAuditLimit caps ListAudit when the caller passes limit <= 0.
const defaultAuditLimit = 50

// MemStore is a thread-safe, in-memory implementation of [Store].
// It backs tests and single-user development runs.
type MemStore struct {
	mu     sync.RWMutex
	rows   map[string]Row
	audit  []AuditEntry
	nextID int64

	// now is swappable in tests.
	now func() time.Time
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		rows: make(map[string]Row),
		now:  time.Now,
	}
}

// Seed replaces the store contents with the given rows. Rows without an ID
// get a generated one. Intended for tests and dev fixtures.
func (s *MemStore) Seed(rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = make(map[string]Row, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			id, err := generateID()
			if err != nil {
				return fmt.Errorf("inventory: generate id: %w", err)
			}
			r.ID = id
		}
		s.rows[r.ID] = r
	}
	return nil
}

// List implements [Store.List]. Rows are ordered by player name then
// edition then size so snapshots are deterministic.
func (s *MemStore) List(ctx context.Context) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerName != out[j].PlayerName {
			return out[i].PlayerName < out[j].PlayerName
		}
		if out[i].Edition != out[j].Edition {
			return out[i].Edition < out[j].Edition
		}
		return out[i].Size < out[j].Size
	})
	return out, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[id]
	if !ok {
		return Row{}, ErrNotFound
	}
	return r, nil
}

// Insert implements [Store.Insert].
func (s *MemStore) Insert(ctx context.Context, row Row) (Row, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[row.ID]; exists {
		return Row{}, ErrDuplicateID
	}
	row.UpdatedAt = s.now()
	s.rows[row.ID] = row
	return row, nil
}

// Update implements [Store.Update].
func (s *MemStore) Update(ctx context.Context, id string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	patch.Apply(&r, s.now())
	if err := r.Validate(); err != nil {
		return err
	}
	s.rows[id] = r
	return nil
}

// AppendAudit implements [Store.AppendAudit].
func (s *MemStore) AppendAudit(ctx context.Context, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry.ID = s.nextID
	entry.CreatedAt = s.now()
	s.audit = append(s.audit, entry)
	return nil
}

// ListAudit implements [Store.ListAudit].
func (s *MemStore) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultAuditLimit
	}
	n := len(s.audit)
	if limit > n {
		limit = n
	}
	out := make([]AuditEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.audit[i])
	}
	return out, nil
}

// generateID returns a random 16-hex-character identifier.
func generateID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
