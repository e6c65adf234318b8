package session

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when a session id resolves to nothing.
var ErrSessionNotFound = errors.New("session: not found")

// Entry is one message of a session's conversation history. Role is "user"
// or "assistant"; assistant entries carry the tool calls made while
// producing them.
type Entry struct {
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	ToolCalls []ToolCallSnapshot `json:"tool_calls,omitempty"`
	CreatedAt int64              `json:"created_at"`
}

// ToolCallSnapshot preserves one tool invocation alongside the assistant
// entry that requested it.
type ToolCallSnapshot struct {
	ToolCallID    string         `json:"tool_call_id"`
	ToolName      string         `json:"tool_name"`
	ToolArgs      map[string]any `json:"tool_args,omitempty"`
	Content       string         `json:"content,omitempty"`
	ToolCallError bool           `json:"tool_call_error,omitempty"`
	Time          float64        `json:"time,omitempty"`
}

// Record is the stored state of one session.
type Record struct {
	SessionID string  `json:"session_id"`
	UserID    string  `json:"user_id"`
	Name      string  `json:"name,omitempty"`
	CreatedAt int64   `json:"created_at"`
	Entries   []Entry `json:"entries"`
}

// Store persists conversation history per session.
type Store interface {
	// Append adds entries to a session, creating the record on first use.
	Append(ctx context.Context, sessionID, userID string, entries []Entry) error

	// Get returns a session's record. Returns ErrSessionNotFound when the
	// session does not exist.
	Get(ctx context.Context, sessionID string) (*Record, error)

	// List returns the sessions belonging to a user, newest first.
	List(ctx context.Context, userID string) ([]*Record, error)

	// Delete removes a session. Returns ErrSessionNotFound when the
	// session does not exist.
	Delete(ctx context.Context, sessionID string) error
}

// nameLimit caps the derived session name length in runes.
const nameLimit = 40

// deriveName names a new session after its first user message.
func deriveName(entries []Entry) string {
	for _, e := range entries {
		if e.Role == "user" && e.Content != "" {
			runes := []rune(e.Content)
			if len(runes) <= nameLimit {
				return e.Content
			}
			return string(runes[:nameLimit])
		}
	}
	return ""
}

// cloneRecord copies a record so callers cannot mutate store state through
// shared slices.
func cloneRecord(r *Record) *Record {
	entries := make([]Entry, len(r.Entries))
	copy(entries, r.Entries)
	for i := range entries {
		if len(entries[i].ToolCalls) > 0 {
			calls := make([]ToolCallSnapshot, len(entries[i].ToolCalls))
			copy(calls, entries[i].ToolCalls)
			entries[i].ToolCalls = calls
		}
	}
	c := *r
	c.Entries = entries
	return &c
}
