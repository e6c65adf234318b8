package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// DefaultMaxTurns caps provider round-trips when LoopConfig.MaxTurns is zero.
const DefaultMaxTurns = 10

// DefaultMaxTokens is used for providers that require an explicit response
// cap when the model config does not set one.
const DefaultMaxTokens = 4096

// ErrMaxTurns is reported through Sink.OnFailed when the loop reaches its
// turn limit without the model producing a final answer.
var ErrMaxTurns = errors.New("engine: maximum turns reached")

// ToolInvoker executes a named tool with parsed arguments. It returns the
// result text and whether the tool itself reported an error. A non-nil err
// means the invocation could not run at all.
type ToolInvoker func(ctx context.Context, name string, args map[string]any) (string, bool, error)

// Sink receives events from the loop. The loop calls these methods instead
// of importing gateway event types, breaking the import cycle.
type Sink interface {
	OnStarted()
	OnContent(accumulated string)
	OnToolStart(callID, name string, args map[string]any)
	OnToolDone(callID, result string, isError bool)
	OnCompleted(final string, info ResultInfo)
	OnFailed(err error)
}

// ResultInfo carries run statistics for the completion event.
type ResultInfo struct {
	NumTurns     int
	DurationMs   int64
	InputTokens  int64
	OutputTokens int64
	ToolCalls    int
}

// LoopConfig holds everything the run loop needs to execute.
type LoopConfig struct {
	Provider Provider
	Model    string

	Temperature float32
	MaxTokens   *int

	// MaxTurns caps provider round-trips. Zero means DefaultMaxTurns.
	MaxTurns int

	// System is sent as the system prompt on every provider call.
	System string

	// History is the prior conversation; UserMessage is the new user turn.
	History     []Message
	UserMessage string

	Tools []ToolDef

	// Invoke executes the tool calls the model requests.
	Invoke ToolInvoker

	Sink Sink
}

// RunLoop drives the conversation until the model produces a turn with no
// tool calls, the turn limit is reached, or ctx is cancelled. It runs in
// the calling goroutine and reports everything through cfg.Sink.
func RunLoop(ctx context.Context, cfg LoopConfig) {
	start := time.Now()
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	var (
		usage     TokenUsage
		content   strings.Builder
		toolCalls int
	)

	messages := make([]Message, 0, len(cfg.History)+1)
	messages = append(messages, cfg.History...)
	messages = append(messages, Message{Role: RoleUser, Content: cfg.UserMessage})

	// 1. Announce the run.
	cfg.Sink.OnStarted()

	turns := 0
	for {
		// 2. Check for cancellation between turns.
		if err := ctx.Err(); err != nil {
			cfg.Sink.OnFailed(err)
			return
		}

		// 3. Stream one turn. Deltas extend the run-wide text so the sink
		// always sees the full accumulated content.
		turnStart := content.Len()
		res, err := cfg.Provider.StreamTurn(ctx, TurnRequest{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			System:      cfg.System,
			Messages:    messages,
			Tools:       cfg.Tools,
			OnDelta: func(delta string) {
				if delta == "" {
					return
				}
				content.WriteString(delta)
				cfg.Sink.OnContent(content.String())
			},
		})
		if err != nil {
			cfg.Sink.OnFailed(err)
			return
		}

		usage.InputTokens += res.Usage.InputTokens
		usage.OutputTokens += res.Usage.OutputTokens

		// Providers that skipped OnDelta still contribute their turn text.
		if res.Content != "" && content.Len() == turnStart {
			content.WriteString(res.Content)
			cfg.Sink.OnContent(content.String())
		}

		// 4. Record the assistant turn.
		messages = append(messages, Message{
			Role:      RoleAssistant,
			Content:   res.Content,
			ToolCalls: res.ToolCalls,
		})

		// 5. A turn without tool calls is the final answer.
		if len(res.ToolCalls) == 0 {
			cfg.Sink.OnCompleted(content.String(), ResultInfo{
				NumTurns:     turns + 1,
				DurationMs:   time.Since(start).Milliseconds(),
				InputTokens:  usage.InputTokens,
				OutputTokens: usage.OutputTokens,
				ToolCalls:    toolCalls,
			})
			return
		}

		// 6. Execute each requested tool and thread the results back.
		for _, call := range res.ToolCalls {
			args := parseToolArgs(call.Arguments)
			cfg.Sink.OnToolStart(call.ID, call.Name, args)

			text, isError, err := cfg.Invoke(ctx, call.Name, args)
			if err != nil {
				text = fmt.Sprintf("error: %s", err.Error())
				isError = true
			}
			cfg.Sink.OnToolDone(call.ID, text, isError)
			toolCalls++

			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    text,
				ToolCallID: call.ID,
				Name:       call.Name,
				IsError:    isError,
			})
		}

		turns++
		if turns >= maxTurns {
			cfg.Sink.OnFailed(fmt.Errorf("%w after %d turns", ErrMaxTurns, turns))
			return
		}
	}
}

// parseToolArgs decodes raw tool-call arguments. Text that does not parse
// as a JSON object is preserved under raw_arguments so the tool still sees
// what the model sent.
func parseToolArgs(raw string) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := sonic.UnmarshalString(raw, &args); err != nil {
		return map[string]any{"raw_arguments": raw}
	}
	if args == nil {
		return map[string]any{}
	}
	return args
}
