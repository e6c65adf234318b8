package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore persists sessions as individual JSON files in a directory.
// Each session is stored as {id}.json.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore that saves sessions to the given
// directory. The directory is created if it does not exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Append adds entries to a session, creating the file on first use.
func (f *FileStore) Append(ctx context.Context, sessionID, userID string, entries []Entry) error {
	if sessionID == "" {
		return fmt.Errorf("session id is empty")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, err := f.read(sessionID)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		rec = &Record{
			SessionID: sessionID,
			UserID:    userID,
			Name:      deriveName(entries),
			CreatedAt: time.Now().Unix(),
		}
	}
	rec.Entries = append(rec.Entries, entries...)
	return f.write(rec)
}

// Get reads a session from disk by id.
func (f *FileStore) Get(_ context.Context, sessionID string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, err := f.read(sessionID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, err
	}
	return rec, nil
}

// List returns the sessions on disk belonging to a user, newest first.
func (f *FileStore) List(_ context.Context, userID string) ([]*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dirEntries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}

	var records []*Record
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		rec, err := f.read(id)
		if err != nil {
			continue // skip corrupt files
		}
		if rec.UserID != userID {
			continue
		}
		records = append(records, rec)
	}
	sortNewestFirst(records)
	return records, nil
}

// Delete removes a session file from disk.
func (f *FileStore) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(sessionID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (f *FileStore) read(sessionID string) (*Record, error) {
	b, err := os.ReadFile(f.path(sessionID))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &rec, nil
}

func (f *FileStore) write(rec *Record) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(f.path(rec.SessionID), b, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *FileStore) path(sessionID string) string {
	return filepath.Join(f.dir, sessionID+".json")
}
