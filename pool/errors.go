package pool

import "errors"

// Sentinel errors for the pool package.
var (
	// ErrInvalidConfig is returned when a ServerConfig is missing identity
	// fields (id, name) required by every transport.
	ErrInvalidConfig = errors.New("pool: invalid server config")

	// ErrMissingCommand is returned when a stdio server config has no
	// command to spawn.
	ErrMissingCommand = errors.New("pool: stdio transport requires a command")

	// ErrMissingURL is returned when an HTTP-based server config has no
	// endpoint URL.
	ErrMissingURL = errors.New("pool: http transport requires a url")

	// ErrUnsupportedTransport is returned when a config names a transport
	// the connector does not know how to build.
	ErrUnsupportedTransport = errors.New("pool: unsupported transport")

	// ErrUnknownTool is returned when a tool name cannot be resolved to
	// any connected server.
	ErrUnknownTool = errors.New("pool: tool not found")

	// ErrToolInvocation is returned when a resolved tool call fails at
	// the transport level. Tool-level errors reported by the server are
	// data, not invocation failures, and do not use this sentinel.
	ErrToolInvocation = errors.New("pool: tool invocation failed")
)
