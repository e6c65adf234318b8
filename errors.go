package gateway

import "errors"

// Sentinel errors returned by gateway operations.
var (
	ErrUnknownAgent = errors.New("gateway: unknown agent")
)
