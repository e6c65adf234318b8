package gateway

import (
	"context"

	"github.com/armatrix/mcp-gateway/config"
	"github.com/armatrix/mcp-gateway/internal/usage"
	"github.com/armatrix/mcp-gateway/pool"
	"github.com/armatrix/mcp-gateway/session"
)

// Gateway wires MCP server connections, model configuration, and session
// history into a runnable agent. A single Gateway serves many concurrent
// runs; it is safe for concurrent use.
type Gateway struct {
	opts     gatewayOptions
	store    *config.Store
	pool     *pool.Pool
	sessions session.Store
	usage    *usage.Tracker
	runner   AgentRunner
}

// New creates a Gateway over the given configuration store.
func New(store *config.Store, opts ...Option) *Gateway {
	resolved := resolveOptions(opts)
	return &Gateway{
		opts:     resolved,
		store:    store,
		pool:     resolved.pool,
		sessions: resolved.sessions,
		usage:    usage.NewTracker(nil),
		runner:   resolved.runner,
	}
}

// Reconcile aligns the connection pool with the configured server fleet.
// Disabled servers are recorded but not connected. Call it after any
// configuration change.
func (g *Gateway) Reconcile(ctx context.Context) error {
	return g.pool.Reconcile(ctx, g.store.Servers())
}

// Pool returns the MCP connection pool.
func (g *Gateway) Pool() *pool.Pool {
	return g.pool
}

// Config returns the configuration store.
func (g *Gateway) Config() *config.Store {
	return g.store
}

// Sessions returns the session store.
func (g *Gateway) Sessions() session.Store {
	return g.sessions
}

// Usage returns the usage tracker.
func (g *Gateway) Usage() *usage.Tracker {
	return g.usage
}

// Close disconnects all MCP servers.
func (g *Gateway) Close() {
	g.pool.Close()
}

// AgentCard describes the gateway agent for discovery endpoints.
type AgentCard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Card returns the fixed identity of the gateway agent.
func (g *Gateway) Card() AgentCard {
	return AgentCard{
		ID:          AgentID,
		Name:        AgentName,
		Description: AgentDescription,
	}
}
