package gateway

import (
	"context"

	"github.com/armatrix/mcp-gateway/internal/engine"
)

// NotifySink receives the lifecycle notifications of one agent run, in
// order, from a single goroutine.
type NotifySink interface {
	// Started fires once before any model output.
	Started()

	// Content fires with the full accumulated assistant text after each
	// streamed delta.
	Content(accumulated string)

	// ToolStarted fires when the model requests a tool invocation.
	ToolStarted(callID, name string, args map[string]any)

	// ToolCompleted fires when a tool invocation returns or fails.
	ToolCompleted(callID, result string, isError bool)

	// Completed fires once when the run finishes with a final reply.
	Completed(final string, usage engine.TokenUsage)

	// Failed fires once when the run ends without a final reply.
	Failed(err error)
}

// TurnInput is everything an AgentRunner needs to execute one run.
type TurnInput struct {
	Provider    string
	Model       string
	APIKeyEnv   string
	BaseURL     string
	Temperature float32
	MaxTokens   *int
	MaxTurns    int
	System      string
	History     []engine.Message
	Message     string
	Tools       []engine.ToolDef
	Invoke      engine.ToolInvoker
}

// AgentRunner executes one agent run and reports its lifecycle through the
// sink. Implementations must deliver a Completed or Failed notification
// before returning unless the context is cancelled.
type AgentRunner interface {
	Run(ctx context.Context, in TurnInput, sink NotifySink) error
}

// engineRunner is the production AgentRunner backed by the streaming
// agent loop.
type engineRunner struct{}

func (engineRunner) Run(ctx context.Context, in TurnInput, sink NotifySink) error {
	provider, err := engine.NewProvider(in.Provider, in.APIKeyEnv, in.BaseURL)
	if err != nil {
		sink.Failed(err)
		return err
	}
	engine.RunLoop(ctx, engine.LoopConfig{
		Provider:    provider,
		Model:       in.Model,
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
		MaxTurns:    in.MaxTurns,
		System:      in.System,
		History:     in.History,
		UserMessage: in.Message,
		Tools:       in.Tools,
		Invoke:      in.Invoke,
		Sink:        notifyAdapter{sink: sink},
	})
	return nil
}

// notifyAdapter bridges the engine's sink callbacks onto a NotifySink.
type notifyAdapter struct {
	sink NotifySink
}

func (a notifyAdapter) OnStarted() {
	a.sink.Started()
}

func (a notifyAdapter) OnContent(accumulated string) {
	a.sink.Content(accumulated)
}

func (a notifyAdapter) OnToolStart(callID, name string, args map[string]any) {
	a.sink.ToolStarted(callID, name, args)
}

func (a notifyAdapter) OnToolDone(callID, result string, isError bool) {
	a.sink.ToolCompleted(callID, result, isError)
}

func (a notifyAdapter) OnCompleted(final string, info engine.ResultInfo) {
	a.sink.Completed(final, engine.TokenUsage{
		InputTokens:  info.InputTokens,
		OutputTokens: info.OutputTokens,
	})
}

func (a notifyAdapter) OnFailed(err error) {
	a.sink.Failed(err)
}

// noteKind discriminates the notifications carried between the runner
// goroutine and the projector goroutine.
type noteKind int

const (
	noteStarted noteKind = iota
	noteContent
	noteToolStart
	noteToolDone
	noteCompleted
	noteFailed
)

// note is one run notification in transit.
type note struct {
	kind   noteKind
	text   string
	callID string
	name   string
	args   map[string]any
	isErr  bool
	err    error
	usage  engine.TokenUsage
}

// channelSink forwards notifications over a channel so the projector
// goroutine owns all frame construction and record state.
type channelSink struct {
	ch chan<- note
}

func (s channelSink) Started() {
	s.ch <- note{kind: noteStarted}
}

func (s channelSink) Content(accumulated string) {
	s.ch <- note{kind: noteContent, text: accumulated}
}

func (s channelSink) ToolStarted(callID, name string, args map[string]any) {
	s.ch <- note{kind: noteToolStart, callID: callID, name: name, args: args}
}

func (s channelSink) ToolCompleted(callID, result string, isError bool) {
	s.ch <- note{kind: noteToolDone, callID: callID, text: result, isErr: isError}
}

func (s channelSink) Completed(final string, usage engine.TokenUsage) {
	s.ch <- note{kind: noteCompleted, text: final, usage: usage}
}

func (s channelSink) Failed(err error) {
	s.ch <- note{kind: noteFailed, err: err}
}
