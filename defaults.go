package gateway

// Agent identity defaults. The gateway exposes a single agent backed by the
// connected MCP servers.
const (
	// AgentID identifies the gateway agent in run requests and event frames.
	AgentID = "mcp-agent"

	// AgentName is the display name reported on the agent card.
	AgentName = "MCP Agent"

	// AgentDescription is the short description reported on the agent card.
	AgentDescription = "AI assistant with MCP server tools"
)

// AgentInstructions is the system prompt given to the model on every run.
const AgentInstructions = "You are a helpful AI assistant with access to various tools " +
	"through MCP servers. Use the available tools to help users accomplish their tasks. " +
	"Always be clear about what actions you're taking and provide helpful responses."

// Run execution defaults.
const (
	// DefaultUserID is the user attributed to runs that carry no user id.
	DefaultUserID = "default"

	// DefaultHistoryWindow is the number of prior runs replayed as context.
	DefaultHistoryWindow = 10

	// DefaultStreamBufferSize is the channel buffer size for run event streams.
	DefaultStreamBufferSize = 64

	// ToolResultLimit caps the tool output characters kept on a tool call record.
	ToolResultLimit = 2000
)
