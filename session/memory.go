package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory session store backed by a mutex-protected
// map. Records are copied on append and read so callers cannot mutate
// store state.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Append adds entries to a session, creating the record on first use.
func (m *MemoryStore) Append(_ context.Context, sessionID, userID string, entries []Entry) error {
	if sessionID == "" {
		return fmt.Errorf("session id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[sessionID]
	if !ok {
		rec = &Record{
			SessionID: sessionID,
			UserID:    userID,
			Name:      deriveName(entries),
			CreatedAt: time.Now().Unix(),
		}
		m.records[sessionID] = rec
	}
	rec.Entries = append(rec.Entries, entries...)
	return nil
}

// Get retrieves a session by id. Returns a copy so callers cannot mutate
// store state.
func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return cloneRecord(rec), nil
}

// List returns the sessions belonging to a user, newest first.
func (m *MemoryStore) List(_ context.Context, userID string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		if rec.UserID != userID {
			continue
		}
		result = append(result, cloneRecord(rec))
	}
	sortNewestFirst(result)
	return result, nil
}

// Delete removes a session by id.
func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	delete(m.records, sessionID)
	return nil
}

// sortNewestFirst orders records by creation time descending, breaking
// ties on session id for determinism.
func sortNewestFirst(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt > records[j].CreatedAt
		}
		return records[i].SessionID < records[j].SessionID
	})
}
