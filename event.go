package gateway

import "time"

// EventType identifies the kind of a run event frame.
type EventType string

// Run event types, in the order a well-formed stream emits them.
const (
	// EventRunStarted opens every stream, before any model output.
	EventRunStarted EventType = "RunStarted"

	// EventRunContent carries the accumulated assistant text so far.
	EventRunContent EventType = "RunContent"

	// EventToolCallStarted marks a tool invocation dispatched to an MCP server.
	EventToolCallStarted EventType = "ToolCallStarted"

	// EventToolCallCompleted marks a tool invocation that returned or failed.
	EventToolCallCompleted EventType = "ToolCallCompleted"

	// EventRunCompleted closes a successful stream with the final reply.
	EventRunCompleted EventType = "RunCompleted"

	// EventRunError closes a failed stream with the error message.
	EventRunError EventType = "RunError"
)

// Event is one frame of a run stream. Frames are self-describing: every
// frame repeats the session, run, and agent identifiers so a consumer can
// demultiplex interleaved streams.
//
// Content is a pointer so structural frames serialize an explicit JSON
// null rather than an empty string.
type Event struct {
	Event       EventType         `json:"event"`
	Content     *string           `json:"content"`
	ContentType string            `json:"content_type"`
	SessionID   string            `json:"session_id"`
	RunID       string            `json:"run_id"`
	AgentID     string            `json:"agent_id"`
	Tool        *ToolCallRecord   `json:"tool,omitempty"`
	Tools       []*ToolCallRecord `json:"tools,omitempty"`
	CreatedAt   int64             `json:"created_at"`
}

// ToolCallRecord is the wire form of one tool invocation. A record appears
// on the ToolCallStarted frame with nil Content, then again on the
// ToolCallCompleted frame with the (truncated) result filled in. Content
// frames carry the full record list under the tools key.
type ToolCallRecord struct {
	Role          string         `json:"role"`
	Content       *string        `json:"content"`
	ToolCallID    string         `json:"tool_call_id"`
	ToolName      string         `json:"tool_name"`
	ToolArgs      map[string]any `json:"tool_args"`
	ToolCallError bool           `json:"tool_call_error"`
	Metrics       Metrics        `json:"metrics"`
	CreatedAt     int64          `json:"created_at"`

	started time.Time
}

// Metrics carries per-tool-call timing.
type Metrics struct {
	// Time is the tool execution duration in seconds.
	Time float64 `json:"time"`
}
