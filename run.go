package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goa.design/clue/log"

	"github.com/armatrix/mcp-gateway/internal/engine"
	"github.com/armatrix/mcp-gateway/internal/usage"
	"github.com/armatrix/mcp-gateway/session"
)

// RunRequest describes one agent run.
type RunRequest struct {
	// AgentID must name the gateway agent. Empty selects it implicitly.
	AgentID string

	// Message is the user's message for this turn.
	Message string

	// SessionID continues an existing conversation. Empty mints a new
	// session.
	SessionID string

	// UserID attributes the session to a user. Empty means "default".
	UserID string
}

// runJob carries a run's identity through the projector goroutine.
type runJob struct {
	sessionID string
	userID    string
	runID     string
	message   string
	model     string
}

// Run executes one agent run and returns a stream of its event frames.
//
// The stream always yields RunStarted first and exactly one terminal frame
// (RunCompleted or RunError) last. Cancelling ctx or closing the stream
// aborts the run.
func (g *Gateway) Run(ctx context.Context, req RunRequest) (*RunStream, error) {
	if req.AgentID != "" && req.AgentID != AgentID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, req.AgentID)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = newID()
	}
	userID := req.UserID
	if userID == "" {
		userID = DefaultUserID
	}
	// Model config is captured per run so updates apply to the next run,
	// never a running one.
	mc := g.store.Model()
	job := runJob{
		sessionID: sessionID,
		userID:    userID,
		runID:     newID(),
		message:   req.Message,
		model:     mc.ModelID,
	}
	tools, invoke := g.agentTools()
	in := TurnInput{
		Provider:    mc.Provider,
		Model:       mc.ModelID,
		APIKeyEnv:   mc.APIKeyEnv,
		BaseURL:     mc.BaseURL,
		Temperature: mc.Temperature,
		MaxTokens:   mc.MaxTokens,
		MaxTurns:    g.opts.maxTurns,
		System:      AgentInstructions,
		History:     g.loadHistory(ctx, sessionID),
		Message:     req.Message,
		Tools:       tools,
		Invoke:      invoke,
	}

	runCtx, cancel := context.WithCancel(ctx)
	notes := make(chan note, g.opts.streamBufferSize)
	events := make(chan *Event, g.opts.streamBufferSize)
	stream := newRunStream(events, cancel, sessionID, job.runID)

	go func() {
		_ = g.runner.Run(runCtx, in, channelSink{ch: notes})
		close(notes)
	}()
	go g.project(runCtx, job, notes, events)

	return stream, nil
}

// project consumes run notifications, emits wire frames, and persists the
// turn once it completes. It owns the events channel and closes it when
// the notification channel closes.
func (g *Gateway) project(ctx context.Context, job runJob, notes <-chan note, events chan<- *Event) {
	defer close(events)

	p := newRunProjector(job.sessionID, job.runID, AgentID)
	send(ctx, events, p.started())

	terminal := false
	for n := range notes {
		if terminal {
			continue
		}
		var frame *Event
		switch n.kind {
		case noteStarted:
			// the stream already opened with RunStarted
		case noteContent:
			frame = p.content(n.text)
		case noteToolStart:
			frame = p.toolStarted(n.callID, n.name, n.args)
		case noteToolDone:
			frame = p.toolCompleted(n.callID, n.text, n.isErr)
		case noteCompleted:
			// history is durable before the client sees the terminal
			// frame, so an immediate follow-up run replays this turn
			g.persistTurn(ctx, job, n.text, n.usage, p.records)
			frame = p.completed(n.text)
			terminal = true
		case noteFailed:
			frame = p.failed(n.err)
			terminal = true
		}
		if frame != nil {
			send(ctx, events, frame)
		}
	}
	if !terminal {
		send(ctx, events, p.failed(nil))
	}
}

// send delivers a frame, blocking on the reader unless the run context is
// cancelled; after cancellation delivery degrades to best effort so a
// reader that is still draining sees the terminal frame.
func send(ctx context.Context, events chan<- *Event, frame *Event) {
	select {
	case events <- frame:
	case <-ctx.Done():
		select {
		case events <- frame:
		default:
		}
	}
}

// loadHistory replays the session's recent entries as model messages.
// Storage failures degrade to an empty history, they never fail the run.
func (g *Gateway) loadHistory(ctx context.Context, sessionID string) []engine.Message {
	rec, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			log.Errorf(ctx, err, "session %s: history load failed", sessionID)
		}
		return nil
	}

	entries := rec.Entries
	if limit := g.opts.historyWindow * 2; len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	msgs := make([]engine.Message, 0, len(entries))
	for _, e := range entries {
		if e.Content == "" {
			continue
		}
		switch e.Role {
		case "user":
			msgs = append(msgs, engine.Message{Role: engine.RoleUser, Content: e.Content})
		case "assistant":
			msgs = append(msgs, engine.Message{Role: engine.RoleAssistant, Content: e.Content})
		}
	}
	return msgs
}

// persistTurn appends the completed turn to the session store and records
// usage. Failures are logged, never surfaced to the stream.
func (g *Gateway) persistTurn(ctx context.Context, job runJob, final string, tok engine.TokenUsage, records []*ToolCallRecord) {
	// Persistence must survive a client disconnect racing the completion.
	pctx := context.WithoutCancel(ctx)
	now := time.Now().Unix()
	entries := []session.Entry{
		{Role: "user", Content: job.message, CreatedAt: now},
		{Role: "assistant", Content: final, ToolCalls: toolSnapshots(records), CreatedAt: now},
	}
	if err := g.sessions.Append(pctx, job.sessionID, job.userID, entries); err != nil {
		log.Errorf(pctx, err, "session %s: history append failed", job.sessionID)
	}
	g.usage.Record(job.model, usage.Usage{
		InputTokens:  tok.InputTokens,
		OutputTokens: tok.OutputTokens,
	})
}

// agentTools snapshots the pool's aggregated catalog as tool definitions
// plus the invoker that routes calls back through the pool.
func (g *Gateway) agentTools() ([]engine.ToolDef, engine.ToolInvoker) {
	catalog := g.pool.Catalog()
	defs := make([]engine.ToolDef, 0, len(catalog))
	for _, tool := range catalog {
		defs = append(defs, engine.ToolDef{
			Name:        tool.Name,
			Description: tool.Description,
			Schema:      tool.InputSchema,
		})
	}
	return defs, g.pool.CallTool
}

// toolSnapshots converts run records to their session store form.
func toolSnapshots(records []*ToolCallRecord) []session.ToolCallSnapshot {
	if len(records) == 0 {
		return nil
	}
	out := make([]session.ToolCallSnapshot, len(records))
	for i, rec := range records {
		s := session.ToolCallSnapshot{
			ToolCallID:    rec.ToolCallID,
			ToolName:      rec.ToolName,
			ToolArgs:      rec.ToolArgs,
			ToolCallError: rec.ToolCallError,
			Time:          rec.Metrics.Time,
		}
		if rec.Content != nil {
			s.Content = *rec.Content
		}
		out[i] = s
	}
	return out
}
