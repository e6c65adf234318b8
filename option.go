package gateway

import (
	"github.com/armatrix/mcp-gateway/pool"
	"github.com/armatrix/mcp-gateway/session"
)

// Option configures a Gateway via the functional options pattern.
type Option func(*gatewayOptions)

// gatewayOptions holds all configurable fields set via Option functions.
type gatewayOptions struct {
	pool             *pool.Pool
	sessions         session.Store
	runner           AgentRunner
	historyWindow    int
	maxTurns         int
	streamBufferSize int
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (o *gatewayOptions) applyDefaults() {
	if o.pool == nil {
		o.pool = pool.New()
	}
	if o.sessions == nil {
		o.sessions = session.NewMemoryStore()
	}
	if o.runner == nil {
		o.runner = engineRunner{}
	}
	if o.historyWindow == 0 {
		o.historyWindow = DefaultHistoryWindow
	}
	if o.streamBufferSize == 0 {
		o.streamBufferSize = DefaultStreamBufferSize
	}
}

// resolveOptions applies all option functions and fills defaults.
func resolveOptions(opts []Option) gatewayOptions {
	var o gatewayOptions
	for _, fn := range opts {
		fn(&o)
	}
	o.applyDefaults()
	return o
}

// --- Connections & Stores ---

// WithPool sets the MCP connection pool. Defaults to a fresh pool.
func WithPool(p *pool.Pool) Option {
	return func(o *gatewayOptions) { o.pool = p }
}

// WithSessionStore sets the conversation history store. Defaults to an
// in-memory store.
func WithSessionStore(s session.Store) Option {
	return func(o *gatewayOptions) { o.sessions = s }
}

// WithRunner replaces the agent runner. Intended for tests.
func WithRunner(r AgentRunner) Option {
	return func(o *gatewayOptions) { o.runner = r }
}

// --- Run shaping ---

// WithHistoryWindow sets how many prior runs are replayed as context.
func WithHistoryWindow(runs int) Option {
	return func(o *gatewayOptions) { o.historyWindow = runs }
}

// WithMaxTurns caps the agent loop iterations per run (0 = engine default).
func WithMaxTurns(n int) Option {
	return func(o *gatewayOptions) { o.maxTurns = n }
}

// WithStreamBufferSize sets the channel buffer size for run event streams.
func WithStreamBufferSize(n int) Option {
	return func(o *gatewayOptions) { o.streamBufferSize = n }
}
