package gateway

import "github.com/google/uuid"

// newID mints identifiers for sessions, runs, and tool calls that arrive
// without one.
func newID() string {
	return uuid.NewString()
}
