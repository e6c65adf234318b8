package engine

// Role values for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in the conversation sent to a provider.
type Message struct {
	Role    string
	Content string

	// ToolCalls is set on assistant messages that requested tool execution.
	ToolCalls []ToolCall

	// ToolCallID, Name and IsError are set on tool result messages
	// (Role == RoleTool).
	ToolCallID string
	Name       string
	IsError    bool
}

// ToolCall is a single tool invocation requested by the model. Arguments
// holds the raw JSON text exactly as the provider produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolDef describes a tool exposed to the model. Schema is the tool's JSON
// schema as a plain map.
type ToolDef struct {
	Name        string
	Description string
	Schema      map[string]any
}

// TokenUsage holds token counts for one or more provider calls.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}
