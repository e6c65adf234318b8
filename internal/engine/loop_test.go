package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns canned turn results in order and records every
// request it receives.
type scriptedProvider struct {
	turns  []TurnResult
	deltas [][]string
	errs   []error
	calls  []TurnRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) StreamTurn(_ context.Context, req TurnRequest) (*TurnResult, error) {
	idx := len(p.calls)
	p.calls = append(p.calls, req)
	if idx < len(p.errs) && p.errs[idx] != nil {
		return nil, p.errs[idx]
	}
	if idx < len(p.deltas) && req.OnDelta != nil {
		for _, d := range p.deltas[idx] {
			req.OnDelta(d)
		}
	}
	res := p.turns[idx]
	return &res, nil
}

type sinkCall struct {
	kind   string
	text   string
	callID string
	name   string
	args   map[string]any
	isErr  bool
	err    error
	info   ResultInfo
}

// recordingSink captures sink callbacks in order.
type recordingSink struct {
	calls []sinkCall
}

func (s *recordingSink) OnStarted() {
	s.calls = append(s.calls, sinkCall{kind: "started"})
}

func (s *recordingSink) OnContent(accumulated string) {
	s.calls = append(s.calls, sinkCall{kind: "content", text: accumulated})
}

func (s *recordingSink) OnToolStart(callID, name string, args map[string]any) {
	s.calls = append(s.calls, sinkCall{kind: "tool_start", callID: callID, name: name, args: args})
}

func (s *recordingSink) OnToolDone(callID, result string, isError bool) {
	s.calls = append(s.calls, sinkCall{kind: "tool_done", callID: callID, text: result, isErr: isError})
}

func (s *recordingSink) OnCompleted(final string, info ResultInfo) {
	s.calls = append(s.calls, sinkCall{kind: "completed", text: final, info: info})
}

func (s *recordingSink) OnFailed(err error) {
	s.calls = append(s.calls, sinkCall{kind: "failed", err: err})
}

func (s *recordingSink) kinds() []string {
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.kind
	}
	return out
}

func (s *recordingSink) last() sinkCall {
	return s.calls[len(s.calls)-1]
}

func noInvoke(t *testing.T) ToolInvoker {
	return func(context.Context, string, map[string]any) (string, bool, error) {
		t.Fatal("no tool should have been invoked")
		return "", false, nil
	}
}

func TestRunLoopSingleTurn(t *testing.T) {
	provider := &scriptedProvider{
		turns:  []TurnResult{{Content: "The answer is 4.", Usage: TokenUsage{InputTokens: 12, OutputTokens: 6}}},
		deltas: [][]string{{"The answer", " is 4."}},
	}
	sink := &recordingSink{}

	RunLoop(context.Background(), LoopConfig{
		Provider:    provider,
		Model:       "gpt-4o-mini",
		System:      "be brief",
		UserMessage: "what is 2+2?",
		Invoke:      noInvoke(t),
		Sink:        sink,
	})

	assert.Equal(t, []string{"started", "content", "content", "completed"}, sink.kinds())
	assert.Equal(t, "The answer", sink.calls[1].text)
	assert.Equal(t, "The answer is 4.", sink.calls[2].text)

	done := sink.last()
	assert.Equal(t, "The answer is 4.", done.text)
	assert.Equal(t, 1, done.info.NumTurns)
	assert.Equal(t, 0, done.info.ToolCalls)
	assert.Equal(t, int64(12), done.info.InputTokens)
	assert.Equal(t, int64(6), done.info.OutputTokens)

	require.Len(t, provider.calls, 1)
	req := provider.calls[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, "be brief", req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, RoleUser, req.Messages[0].Role)
	assert.Equal(t, "what is 2+2?", req.Messages[0].Content)
}

func TestRunLoopToolRoundTrip(t *testing.T) {
	provider := &scriptedProvider{
		turns: []TurnResult{
			{
				ToolCalls: []ToolCall{{ID: "call_1", Name: "get_weather", Arguments: `{"city":"paris"}`}},
				Usage:     TokenUsage{InputTokens: 10, OutputTokens: 5},
			},
			{Content: "Sunny in Paris.", Usage: TokenUsage{InputTokens: 20, OutputTokens: 8}},
		},
		deltas: [][]string{nil, {"Sunny in Paris."}},
	}
	sink := &recordingSink{}

	var invoked []string
	RunLoop(context.Background(), LoopConfig{
		Provider:    provider,
		Model:       "gpt-4o-mini",
		UserMessage: "weather in paris?",
		Tools:       []ToolDef{{Name: "get_weather"}},
		Invoke: func(_ context.Context, name string, args map[string]any) (string, bool, error) {
			invoked = append(invoked, name)
			assert.Equal(t, map[string]any{"city": "paris"}, args)
			return "sunny", false, nil
		},
		Sink: sink,
	})

	assert.Equal(t, []string{"started", "tool_start", "tool_done", "content", "completed"}, sink.kinds())
	assert.Equal(t, []string{"get_weather"}, invoked)

	start := sink.calls[1]
	assert.Equal(t, "call_1", start.callID)
	assert.Equal(t, "get_weather", start.name)
	assert.Equal(t, map[string]any{"city": "paris"}, start.args)

	done := sink.calls[2]
	assert.Equal(t, "call_1", done.callID)
	assert.Equal(t, "sunny", done.text)
	assert.False(t, done.isErr)

	final := sink.last()
	assert.Equal(t, "Sunny in Paris.", final.text)
	assert.Equal(t, 2, final.info.NumTurns)
	assert.Equal(t, 1, final.info.ToolCalls)
	assert.Equal(t, int64(30), final.info.InputTokens)
	assert.Equal(t, int64(13), final.info.OutputTokens)

	// The second provider call sees the tool request and its result.
	require.Len(t, provider.calls, 2)
	msgs := provider.calls[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "call_1", msgs[1].ToolCalls[0].ID)
	assert.Equal(t, RoleTool, msgs[2].Role)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.Equal(t, "get_weather", msgs[2].Name)
	assert.Equal(t, "sunny", msgs[2].Content)
}

func TestRunLoopContentAccumulatesAcrossTurns(t *testing.T) {
	provider := &scriptedProvider{
		turns: []TurnResult{
			{Content: "Checking.", ToolCalls: []ToolCall{{ID: "call_1", Name: "lookup"}}},
			{Content: " Found it."},
		},
		deltas: [][]string{{"Checking."}, {" Found it."}},
	}
	sink := &recordingSink{}

	RunLoop(context.Background(), LoopConfig{
		Provider:    provider,
		UserMessage: "find it",
		Invoke: func(context.Context, string, map[string]any) (string, bool, error) {
			return "ok", false, nil
		},
		Sink: sink,
	})

	var contents []string
	for _, c := range sink.calls {
		if c.kind == "content" {
			contents = append(contents, c.text)
		}
	}
	assert.Equal(t, []string{"Checking.", "Checking. Found it."}, contents)
	assert.Equal(t, "Checking. Found it.", sink.last().text)
}

func TestRunLoopToolInvokeError(t *testing.T) {
	provider := &scriptedProvider{
		turns: []TurnResult{
			{ToolCalls: []ToolCall{{ID: "call_1", Name: "broken", Arguments: "{}"}}},
			{Content: "Could not do that."},
		},
	}
	sink := &recordingSink{}

	RunLoop(context.Background(), LoopConfig{
		Provider:    provider,
		UserMessage: "try it",
		Invoke: func(context.Context, string, map[string]any) (string, bool, error) {
			return "", false, errors.New("boom")
		},
		Sink: sink,
	})

	var done sinkCall
	for _, c := range sink.calls {
		if c.kind == "tool_done" {
			done = c
		}
	}
	assert.Equal(t, "error: boom", done.text)
	assert.True(t, done.isErr)

	// The failure is threaded back to the model as an error tool result.
	require.Len(t, provider.calls, 2)
	msgs := provider.calls[1].Messages
	last := msgs[len(msgs)-1]
	assert.Equal(t, RoleTool, last.Role)
	assert.Equal(t, "error: boom", last.Content)
	assert.True(t, last.IsError)

	assert.Equal(t, "completed", sink.last().kind)
}

func TestRunLoopToolReportedError(t *testing.T) {
	provider := &scriptedProvider{
		turns: []TurnResult{
			{ToolCalls: []ToolCall{{ID: "call_1", Name: "query", Arguments: "{}"}}},
			{Content: "done"},
		},
	}
	sink := &recordingSink{}

	RunLoop(context.Background(), LoopConfig{
		Provider:    provider,
		UserMessage: "go",
		Invoke: func(context.Context, string, map[string]any) (string, bool, error) {
			return "no such table", true, nil
		},
		Sink: sink,
	})

	var done sinkCall
	for _, c := range sink.calls {
		if c.kind == "tool_done" {
			done = c
		}
	}
	assert.Equal(t, "no such table", done.text)
	assert.True(t, done.isErr)
	assert.Equal(t, "completed", sink.last().kind)
}

func TestRunLoopMaxTurns(t *testing.T) {
	loop := TurnResult{ToolCalls: []ToolCall{{ID: "call_1", Name: "again", Arguments: "{}"}}}
	provider := &scriptedProvider{turns: []TurnResult{loop, loop, loop}}
	sink := &recordingSink{}

	RunLoop(context.Background(), LoopConfig{
		Provider:    provider,
		MaxTurns:    2,
		UserMessage: "loop forever",
		Invoke: func(context.Context, string, map[string]any) (string, bool, error) {
			return "ok", false, nil
		},
		Sink: sink,
	})

	assert.Len(t, provider.calls, 2)
	last := sink.last()
	assert.Equal(t, "failed", last.kind)
	assert.ErrorIs(t, last.err, ErrMaxTurns)
}

func TestRunLoopProviderError(t *testing.T) {
	provider := &scriptedProvider{errs: []error{errors.New("rate limited")}}
	sink := &recordingSink{}

	RunLoop(context.Background(), LoopConfig{
		Provider:    provider,
		UserMessage: "hello",
		Invoke:      noInvoke(t),
		Sink:        sink,
	})

	assert.Equal(t, []string{"started", "failed"}, sink.kinds())
	assert.EqualError(t, sink.last().err, "rate limited")
}

func TestRunLoopCancelledBeforeFirstTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{}
	sink := &recordingSink{}

	RunLoop(ctx, LoopConfig{
		Provider:    provider,
		UserMessage: "hello",
		Invoke:      noInvoke(t),
		Sink:        sink,
	})

	assert.Equal(t, []string{"started", "failed"}, sink.kinds())
	assert.ErrorIs(t, sink.last().err, context.Canceled)
	assert.Empty(t, provider.calls)
}

func TestRunLoopHistoryPrecedesUserMessage(t *testing.T) {
	provider := &scriptedProvider{
		turns: []TurnResult{{Content: "again? hello"}},
	}
	sink := &recordingSink{}

	RunLoop(context.Background(), LoopConfig{
		Provider: provider,
		History: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
		},
		UserMessage: "say it again",
		Invoke:      noInvoke(t),
		Sink:        sink,
	})

	require.Len(t, provider.calls, 1)
	msgs := provider.calls[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, "say it again", msgs[2].Content)
}

func TestRunLoopNonStreamingProvider(t *testing.T) {
	// No deltas scripted: the turn content still reaches the sink once.
	provider := &scriptedProvider{turns: []TurnResult{{Content: "plain answer"}}}
	sink := &recordingSink{}

	RunLoop(context.Background(), LoopConfig{
		Provider:    provider,
		UserMessage: "hello",
		Invoke:      noInvoke(t),
		Sink:        sink,
	})

	assert.Equal(t, []string{"started", "content", "completed"}, sink.kinds())
	assert.Equal(t, "plain answer", sink.calls[1].text)
	assert.Equal(t, "plain answer", sink.last().text)
}

func TestParseToolArgs(t *testing.T) {
	assert.Equal(t, map[string]any{"city": "paris"}, parseToolArgs(`{"city":"paris"}`))
	assert.Equal(t, map[string]any{}, parseToolArgs(""))
	assert.Equal(t, map[string]any{}, parseToolArgs("   "))
	assert.Equal(t, map[string]any{}, parseToolArgs("null"))
	assert.Equal(t, map[string]any{"raw_arguments": "{not json"}, parseToolArgs("{not json"))
	assert.Equal(t, map[string]any{"raw_arguments": `"just text"`}, parseToolArgs(`"just text"`))
}
