// Package pool maintains connections to a fleet of MCP (Model Context
// Protocol) tool servers. It builds transports from server configs,
// connects the enabled fleet with per-server failure isolation, and
// aggregates the tools of every connected server into one flat catalog.
package pool

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransportKind identifies the MCP transport protocol.
type TransportKind string

const (
	// TransportStdio communicates via a subprocess's stdin/stdout.
	TransportStdio TransportKind = "stdio"

	// TransportSSE communicates via HTTP Server-Sent Events.
	TransportSSE TransportKind = "sse"

	// TransportStreamableHTTP communicates via HTTP streaming.
	TransportStreamableHTTP TransportKind = "streamable-http"
)

// Connection timeouts applied when a config leaves them unset.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultSSEReadTimeout = 300 * time.Second
)

// ServerConfig describes how to connect to a single MCP server. The JSON
// field names match the persisted configuration file format.
type ServerConfig struct {
	// ID uniquely identifies the server across the configured fleet.
	ID string `json:"id"`

	// Name is the human-readable server name.
	Name string `json:"name"`

	// Transport selects the communication protocol. When empty, it is
	// inferred from whichever of Command or URL is populated.
	Transport TransportKind `json:"transport,omitempty"`

	// Command is the executable to spawn (stdio transport only).
	Command string `json:"command,omitempty"`

	// Args are command-line arguments for the subprocess.
	Args []string `json:"args,omitempty"`

	// Env are extra environment variables for the subprocess. They are
	// merged over the gateway's own environment, with these entries
	// winning on conflict.
	Env map[string]string `json:"env,omitempty"`

	// URL is the server endpoint (sse and streamable-http transports).
	URL string `json:"url,omitempty"`

	// Headers are attached to every HTTP request to the server.
	Headers map[string]string `json:"headers,omitempty"`

	// Timeout is the connect timeout in seconds. Zero means the default.
	Timeout int `json:"timeout,omitempty"`

	// SSEReadTimeout is the SSE stream read timeout in seconds.
	SSEReadTimeout int `json:"sse_read_timeout,omitempty"`

	// Description is free-form text about what the server provides.
	Description string `json:"description,omitempty"`

	// Enabled controls whether reconcile cycles attempt this server.
	Enabled bool `json:"enabled"`
}

// UnmarshalJSON applies config-file defaults: a server is enabled unless
// the document says otherwise.
func (c *ServerConfig) UnmarshalJSON(data []byte) error {
	type alias ServerConfig
	aux := alias{Enabled: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = ServerConfig(aux)
	return nil
}

// Kind returns the effective transport. An unset Transport falls back to
// stdio when Command is populated, sse when only URL is.
func (c ServerConfig) Kind() TransportKind {
	if c.Transport != "" {
		return c.Transport
	}
	if c.Command == "" && c.URL != "" {
		return TransportSSE
	}
	return TransportStdio
}

// Validate checks that the config carries an identity and the connection
// fields its transport requires. The returned errors wrap the package
// sentinels so callers can map them to client-error responses.
func (c ServerConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidConfig)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: server %q missing name", ErrInvalidConfig, c.ID)
	}
	switch kind := c.Kind(); kind {
	case TransportStdio:
		if c.Command == "" {
			return fmt.Errorf("%w: server %q", ErrMissingCommand, c.ID)
		}
	case TransportSSE, TransportStreamableHTTP:
		if c.URL == "" {
			return fmt.Errorf("%w: server %q", ErrMissingURL, c.ID)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedTransport, kind)
	}
	return nil
}

// ConnectTimeout returns the connect timeout as a duration.
func (c ServerConfig) ConnectTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultConnectTimeout
	}
	return time.Duration(c.Timeout) * time.Second
}

// ReadTimeout returns the SSE read timeout as a duration.
func (c ServerConfig) ReadTimeout() time.Duration {
	if c.SSEReadTimeout <= 0 {
		return DefaultSSEReadTimeout
	}
	return time.Duration(c.SSEReadTimeout) * time.Second
}

// Status describes one server's position in the connection lifecycle.
type Status string

const (
	// StatusNotConfigured marks a server present in configuration that no
	// reconcile cycle has processed yet.
	StatusNotConfigured Status = "not_configured"

	// StatusDisabled marks a server recorded but never attempted because
	// its config has Enabled false.
	StatusDisabled Status = "disabled"

	// StatusConnecting marks a server whose connection attempt is in
	// progress.
	StatusConnecting Status = "connecting"

	// StatusConnected marks a live server whose tools are in the catalog.
	StatusConnected Status = "connected"

	// StatusFailed marks a server whose last connection attempt failed.
	StatusFailed Status = "failed"
)
