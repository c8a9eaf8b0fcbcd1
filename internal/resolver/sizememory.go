package resolver

import (
	"strings"
	"sync"
)

// wildcard is the key segment standing in for "any player" or "any edition".
const wildcard = "*"

// SizeMemory remembers the last size spoken for (player, edition) pairs so a
// later command that omits the size can infer one. Each successful command
// with an explicit size writes three keys — player|edition, player|*, and
// *|edition — and lookups try them in that order.
//
// A SizeMemory lives for one session: the state machine creates it empty,
// passes it explicitly through resolution, and discards it when the session
// ends. It is never persisted.
//
// SizeMemory is safe for concurrent use.
type SizeMemory struct {
	mu    sync.RWMutex
	sizes map[string]string
}

// NewSizeMemory returns an empty SizeMemory.
func NewSizeMemory() *SizeMemory {
	return &SizeMemory{sizes: make(map[string]string)}
}

// Remember records size under the three fallback keys for player/edition.
// Empty size is a no-op; empty player or edition falls through to the
// wildcard segment.
func (m *SizeMemory) Remember(player, edition, size string) {
	if size == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sizes[memKey(player, edition)] = size
	m.sizes[memKey(player, wildcard)] = size
	m.sizes[memKey(wildcard, edition)] = size
}

// Lookup returns the remembered size for player/edition, trying
// player|edition, then player|*, then *|edition. Returns ("", false) when
// nothing is remembered.
func (m *SizeMemory) Lookup(player, edition string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range []string{
		memKey(player, edition),
		memKey(player, wildcard),
		memKey(wildcard, edition),
	} {
		if size, ok := m.sizes[key]; ok && size != "" {
			return size, true
		}
	}
	return "", false
}

// Clear drops all remembered sizes. Called when a session resets.
func (m *SizeMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes = make(map[string]string)
}

// memKey builds the case-insensitive map key. Empty segments collapse to
// the wildcard so "any icon jersey" style commands still hit memory.
func memKey(player, edition string) string {
	if player == "" {
		player = wildcard
	}
	if edition == "" {
		edition = wildcard
	}
	return strings.ToLower(player) + "|" + strings.ToLower(edition)
}
