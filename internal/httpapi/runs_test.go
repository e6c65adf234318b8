package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gateway "github.com/armatrix/mcp-gateway"
	"github.com/armatrix/mcp-gateway/internal/engine"
)

// parseSSE splits an SSE body into its decoded frames, asserting the
// data-only line discipline along the way.
func parseSSE(t *testing.T, body string) []*gateway.Event {
	t.Helper()
	var frames []*gateway.Event
	for _, chunk := range strings.Split(strings.TrimSpace(body), "\n\n") {
		if chunk == "" {
			continue
		}
		require.Truef(t, strings.HasPrefix(chunk, "data: "), "frame %q must be a single data line", chunk)
		payload := strings.TrimPrefix(chunk, "data: ")
		require.NotContains(t, payload, "\n", "frames must not span lines")

		var ev gateway.Event
		require.NoError(t, sonic.Unmarshal([]byte(payload), &ev))
		frames = append(frames, &ev)
	}
	return frames
}

func frameTypes(frames []*gateway.Event) []gateway.EventType {
	kinds := make([]gateway.EventType, len(frames))
	for i, f := range frames {
		kinds[i] = f.Event
	}
	return kinds
}

func TestRunAgentStreamsSSE(t *testing.T) {
	runner := stubRunner{script: func(ctx context.Context, in gateway.TurnInput, sink gateway.NotifySink) error {
		sink.Started()
		sink.ToolStarted("call_1", "search", map[string]any{"query": "answer"})
		sink.ToolCompleted("call_1", "42", false)
		sink.Content("The answer is 42")
		sink.Completed("The answer is 42", engine.TokenUsage{InputTokens: 10, OutputTokens: 5})
		return nil
	}}
	s, _ := newTestServer(t, runner)

	w := doForm(t, s, "/agents/mcp-agent/runs", url.Values{
		"message": {"what is the answer?"},
		"user_id": {"u1"},
		"stream":  {"true"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", w.Header().Get("Connection"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	frames := parseSSE(t, w.Body.String())
	require.Equal(t, []gateway.EventType{
		gateway.EventRunStarted,
		gateway.EventToolCallStarted,
		gateway.EventToolCallCompleted,
		gateway.EventRunContent,
		gateway.EventRunCompleted,
	}, frameTypes(frames))

	for _, f := range frames {
		assert.NotEmpty(t, f.SessionID)
		assert.NotEmpty(t, f.RunID)
		assert.Equal(t, gateway.AgentID, f.AgentID)
	}

	final := frames[len(frames)-1]
	require.NotNil(t, final.Content)
	assert.Equal(t, "The answer is 42", *final.Content)
	require.Len(t, final.Tools, 1)
	require.NotNil(t, final.Tools[0].Content)
	assert.Equal(t, "42", *final.Tools[0].Content)
}

func TestRunAgentContinuesSession(t *testing.T) {
	s, _ := newTestServer(t, stubRunner{})

	w := doForm(t, s, "/agents/mcp-agent/runs", url.Values{"message": {"first"}})
	require.Equal(t, http.StatusOK, w.Code)
	first := parseSSE(t, w.Body.String())
	sessionID := first[0].SessionID

	w = doForm(t, s, "/agents/mcp-agent/runs", url.Values{
		"message":    {"second"},
		"session_id": {sessionID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	second := parseSSE(t, w.Body.String())
	assert.Equal(t, sessionID, second[0].SessionID)
	assert.NotEqual(t, first[0].RunID, second[0].RunID)
}

func TestRunAgentErrorFrame(t *testing.T) {
	runner := stubRunner{script: func(ctx context.Context, in gateway.TurnInput, sink gateway.NotifySink) error {
		sink.Started()
		sink.Failed(errors.New("provider exploded"))
		return nil
	}}
	s, _ := newTestServer(t, runner)

	w := doForm(t, s, "/agents/mcp-agent/runs", url.Values{"message": {"hi"}})
	require.Equal(t, http.StatusOK, w.Code)

	frames := parseSSE(t, w.Body.String())
	require.Equal(t, []gateway.EventType{
		gateway.EventRunStarted,
		gateway.EventRunError,
	}, frameTypes(frames))
	require.NotNil(t, frames[1].Content)
	assert.Equal(t, "provider exploded", *frames[1].Content)
}

func TestRunAgentUnknownAgent(t *testing.T) {
	s, _ := newTestServer(t, stubRunner{})

	w := doForm(t, s, "/agents/ghost/runs", url.Values{"message": {"hi"}})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Agent 'ghost' not found", decodeBody(t, w)["detail"])
}

func TestRunAgentNotReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := New(nil)

	w := doForm(t, s, "/agents/mcp-agent/runs", url.Values{"message": {"hi"}})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Agent not initialized", decodeBody(t, w)["detail"])
}

func TestListAgents(t *testing.T) {
	s, _ := newTestServer(t, stubRunner{})

	w := doRequest(t, s, http.MethodGet, "/agents", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	agents := decodeList(t, w)
	require.Len(t, agents, 1)
	card := agents[0]
	assert.Equal(t, gateway.AgentID, card["id"])
	assert.Equal(t, gateway.AgentName, card["name"])
	assert.Equal(t, true, card["storage"])

	model := card["model"].(map[string]any)
	assert.Equal(t, "gpt-4o-mini", model["model"])
	assert.Equal(t, "openai", model["provider"])
}

func TestListTeams(t *testing.T) {
	s, _ := newTestServer(t, stubRunner{})

	w := doRequest(t, s, http.MethodGet, "/teams", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestChat(t *testing.T) {
	runner := stubRunner{script: func(ctx context.Context, in gateway.TurnInput, sink gateway.NotifySink) error {
		sink.Started()
		sink.ToolStarted("call_1", "search", map[string]any{"query": "answer"})
		sink.ToolCompleted("call_1", "42", false)
		sink.Completed("The answer is 42", engine.TokenUsage{InputTokens: 10, OutputTokens: 5})
		return nil
	}}
	s, _ := newTestServer(t, runner)

	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{"message": "what is the answer?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "The answer is 42", body["response"])
	assert.NotEmpty(t, body["session_id"])

	calls := body["tool_calls"].([]any)
	require.Len(t, calls, 1)
	call := calls[0].(map[string]any)
	assert.Equal(t, "search", call["tool_name"])
	assert.Equal(t, "42", call["content"])
}

func TestChatNoToolCalls(t *testing.T) {
	s, _ := newTestServer(t, stubRunner{})

	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{"message": "hi"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	calls, ok := body["tool_calls"].([]any)
	require.True(t, ok, "tool_calls must be a list even when empty")
	assert.Empty(t, calls)
}

func TestChatRunFailure(t *testing.T) {
	runner := stubRunner{script: func(ctx context.Context, in gateway.TurnInput, sink gateway.NotifySink) error {
		sink.Failed(errors.New("provider exploded"))
		return nil
	}}
	s, _ := newTestServer(t, runner)

	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{"message": "hi"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "provider exploded", decodeBody(t, w)["detail"])
}

func TestChatRequiresMessage(t *testing.T) {
	s, _ := newTestServer(t, stubRunner{})

	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{"user_id": "u1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatNotReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := New(nil)

	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{"message": "hi"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
