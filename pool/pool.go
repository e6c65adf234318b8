package pool

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"goa.design/clue/log"
)

// Tool is one entry in the aggregated catalog: a tool advertised by a
// connected server, with the raw input schema the server published.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	ServerID    string
}

// ToolInfo is the name/description view of a tool used in status reports.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ServerState is a point-in-time snapshot of one server's connection.
type ServerState struct {
	ID      string
	Name    string
	Enabled bool
	Status  Status
	Tools   []ToolInfo
	Err     string
}

// StatusSummary aggregates connection tallies across the whole pool.
type StatusSummary struct {
	Total      int
	Enabled    int
	Connected  int
	Failed     int
	TotalTools int
}

// Conn is a live connection to one MCP server.
type Conn interface {
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Dialer turns a server config into a live connection. The default dialer
// builds an SDK transport via BuildTransport and performs the MCP
// handshake; tests inject fakes through WithDialer.
type Dialer interface {
	Dial(ctx context.Context, cfg ServerConfig) (Conn, error)
}

// Pool maintains the authoritative set of attempted connections for the
// configured server fleet and answers status and catalog queries.
//
// A single Pool instance is shared by everything that needs server access.
// Reconcile passes are serialized so concurrent administrative changes
// cannot interleave teardown and setup.
type Pool struct {
	impl   *mcp.Implementation
	dialer Dialer

	reconcileMu sync.Mutex // serializes Reconcile and Close passes
	mu          sync.RWMutex
	servers     []*serverEntry // descriptor order of the last reconcile
}

// serverEntry is the pool's record of one descriptor from the last
// reconcile. The config is immutable once the entry exists; everything
// else is guarded by Pool.mu.
type serverEntry struct {
	cfg    ServerConfig
	status Status
	conn   Conn
	tools  []Tool
	err    string
}

// Option configures a Pool.
type Option func(*Pool)

// WithDialer overrides how server configs become connections. Primarily
// useful for tests.
func WithDialer(d Dialer) Option {
	return func(p *Pool) { p.dialer = d }
}

// WithClientInfo sets the client identity announced to servers during the
// MCP handshake.
func WithClientInfo(name, version string) Option {
	return func(p *Pool) {
		p.impl = &mcp.Implementation{Name: name, Version: version}
	}
}

// New creates an empty Pool. Connections are established by Reconcile.
func New(opts ...Option) *Pool {
	p := &Pool{
		impl: &mcp.Implementation{Name: "mcp-gateway", Version: "dev"},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dialer == nil {
		p.dialer = &sdkDialer{impl: p.impl}
	}
	return p
}

// Reconcile tears down all existing connections and connects the given
// fleet from scratch, in descriptor order. Disabled servers are recorded
// but never attempted. A server that fails to build or connect is
// recorded as Failed with its error and the pass moves on: one bad
// server never aborts the batch. The error return is reserved for
// cancellation of the whole pass.
func (p *Pool) Reconcile(ctx context.Context, configs []ServerConfig) error {
	p.reconcileMu.Lock()
	defer p.reconcileMu.Unlock()

	p.closeAll(ctx)

	entries := make([]*serverEntry, 0, len(configs))
	for _, cfg := range configs {
		e := &serverEntry{cfg: cfg, status: StatusConnecting}
		if !cfg.Enabled {
			e.status = StatusDisabled
		}
		entries = append(entries, e)
	}

	p.mu.Lock()
	p.servers = entries
	p.mu.Unlock()

	for _, e := range entries {
		if e.status == StatusDisabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			p.setFailed(e, err)
			return err
		}
		p.connectOne(ctx, e)
	}

	_, sum := p.Status()
	log.Printf(ctx, "mcp reconcile complete: %d connected, %d failed, %d tools",
		sum.Connected, sum.Failed, sum.TotalTools)
	return nil
}

func (p *Pool) connectOne(ctx context.Context, e *serverEntry) {
	cfg := e.cfg
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout())
	defer cancel()

	conn, err := p.dialer.Dial(dialCtx, cfg)
	if err != nil {
		log.Errorf(ctx, err, "mcp server %s: connect failed", cfg.ID)
		p.setFailed(e, err)
		return
	}

	tools, err := conn.ListTools(dialCtx)
	if err != nil {
		_ = conn.Close()
		log.Errorf(ctx, err, "mcp server %s: tool listing failed", cfg.ID)
		p.setFailed(e, err)
		return
	}
	for i := range tools {
		tools[i].ServerID = cfg.ID
	}

	p.mu.Lock()
	e.conn = conn
	e.tools = tools
	e.status = StatusConnected
	e.err = ""
	p.mu.Unlock()

	log.Debugf(ctx, "mcp server %s: connected, %d tools", cfg.ID, len(tools))
}

func (p *Pool) setFailed(e *serverEntry, err error) {
	p.mu.Lock()
	e.status = StatusFailed
	e.err = err.Error()
	p.mu.Unlock()
}

// closeAll closes every live connection. Close errors are logged and
// otherwise ignored: teardown is best-effort, never fatal.
func (p *Pool) closeAll(ctx context.Context) {
	p.mu.Lock()
	entries := p.servers
	p.servers = nil
	p.mu.Unlock()

	for _, e := range entries {
		if e.conn == nil {
			continue
		}
		if err := e.conn.Close(); err != nil {
			log.Errorf(ctx, err, "mcp server %s: close failed", e.cfg.ID)
		}
		e.conn = nil
	}
}

// Catalog returns the aggregated tool catalog: the tools of every
// connected server concatenated in descriptor order, with their
// advertised names unchanged. Duplicate names across servers resolve to
// the first connected server at invocation time.
func (p *Pool) Catalog() []Tool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var tools []Tool
	for _, e := range p.servers {
		if e.status != StatusConnected {
			continue
		}
		tools = append(tools, e.tools...)
	}
	return tools
}

// CallTool invokes a catalog tool by name on the first connected server
// that advertises it. The bool reports whether the server flagged the
// result as an error; such tool-level failures are data for the caller,
// not invocation errors.
func (p *Pool) CallTool(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	var (
		conn     Conn
		serverID string
	)
	p.mu.RLock()
	for _, e := range p.servers {
		if e.status != StatusConnected {
			continue
		}
		for _, t := range e.tools {
			if t.Name == name {
				conn = e.conn
				serverID = e.cfg.ID
				break
			}
		}
		if conn != nil {
			break
		}
	}
	p.mu.RUnlock()

	if conn == nil {
		return "", false, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	text, toolErr, err := conn.CallTool(ctx, name, args)
	if err != nil {
		return "", false, fmt.Errorf("%w: %s on server %s: %v", ErrToolInvocation, name, serverID, err)
	}
	return text, toolErr, nil
}

// Status snapshots every server from the last reconcile in descriptor
// order, plus aggregate tallies. Tools are reported only for connected
// servers.
func (p *Pool) Status() ([]ServerState, StatusSummary) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	states := make([]ServerState, 0, len(p.servers))
	var sum StatusSummary
	for _, e := range p.servers {
		st := ServerState{
			ID:      e.cfg.ID,
			Name:    e.cfg.Name,
			Enabled: e.cfg.Enabled,
			Status:  e.status,
			Err:     e.err,
		}
		if e.status == StatusConnected {
			st.Tools = make([]ToolInfo, 0, len(e.tools))
			for _, t := range e.tools {
				st.Tools = append(st.Tools, ToolInfo{Name: t.Name, Description: t.Description})
			}
		}
		states = append(states, st)

		sum.Total++
		if e.cfg.Enabled {
			sum.Enabled++
		}
		switch e.status {
		case StatusConnected:
			sum.Connected++
			sum.TotalTools += len(e.tools)
		case StatusFailed:
			sum.Failed++
		}
	}
	return states, sum
}

// ConnectedCount returns the number of currently connected servers.
func (p *Pool) ConnectedCount() int {
	_, sum := p.Status()
	return sum.Connected
}

// Probe connects to a single server, lists its tools, and disconnects,
// without touching pool state. It backs one-off connectivity checks.
func (p *Pool) Probe(ctx context.Context, cfg ServerConfig) ([]Tool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout())
	defer cancel()

	conn, err := p.dialer.Dial(dialCtx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tools, err := conn.ListTools(dialCtx)
	if err != nil {
		return nil, err
	}
	for i := range tools {
		tools[i].ServerID = cfg.ID
	}
	return tools, nil
}

// Close disconnects every server. It never fails: close errors are
// logged and the connection is dropped regardless.
func (p *Pool) Close() {
	p.reconcileMu.Lock()
	defer p.reconcileMu.Unlock()
	p.closeAll(context.Background())
}

// sdkDialer is the production Dialer: it builds an SDK transport from the
// config and performs the MCP handshake.
type sdkDialer struct {
	impl *mcp.Implementation
}

func (d *sdkDialer) Dial(ctx context.Context, cfg ServerConfig) (Conn, error) {
	transport, err := BuildTransport(cfg)
	if err != nil {
		return nil, err
	}
	client := mcp.NewClient(d.impl, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, err
	}
	return &sdkConn{session: session}, nil
}

// sdkConn adapts an SDK client session to the Conn interface.
type sdkConn struct {
	session *mcp.ClientSession
}

func (c *sdkConn) ListTools(ctx context.Context) ([]Tool, error) {
	res, err := c.session.ListTools(ctx, nil)
	if err != nil {
		// Servers without tool support answer with a method-not-found
		// style error; treat that as an empty catalog.
		if isMethodUnavailable(err) {
			return nil, nil
		}
		return nil, err
	}
	tools := make([]Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		tool := Tool{Name: t.Name, Description: t.Description}
		if schema, ok := t.InputSchema.(map[string]any); ok {
			tool.InputSchema = schema
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

func (c *sdkConn) CallTool(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", false, err
	}
	var sb strings.Builder
	for _, part := range res.Content {
		if text, ok := part.(*mcp.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), res.IsError, nil
}

func (c *sdkConn) Ping(ctx context.Context) error {
	return c.session.Ping(ctx, nil)
}

func (c *sdkConn) Close() error {
	return c.session.Close()
}

func isMethodUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "method not found") || strings.Contains(msg, "not supported")
}
