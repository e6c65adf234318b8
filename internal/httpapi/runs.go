package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"goa.design/clue/log"

	gateway "github.com/armatrix/mcp-gateway"
)

// listAgents describes the gateway agent for the dashboard's agent
// picker.
func (s *Server) listAgents(c *gin.Context) {
	card := s.gw.Card()
	mc := s.gw.Config().Model()
	c.JSON(http.StatusOK, []gin.H{{
		"id":          card.ID,
		"name":        card.Name,
		"description": card.Description,
		"model": gin.H{
			"name":     mc.ModelID,
			"model":    mc.ModelID,
			"provider": mc.Provider,
		},
		"storage": true,
	}})
}

// listTeams exists for dashboard compatibility; the gateway has no team
// concept.
func (s *Server) listTeams(c *gin.Context) {
	c.JSON(http.StatusOK, []any{})
}

// runAgent executes one agent run and streams its event frames as
// Server-Sent Events. Closing the connection aborts the run.
func (s *Server) runAgent(c *gin.Context) {
	if s.gw == nil {
		detail(c, http.StatusServiceUnavailable, "Agent not initialized")
		return
	}

	// The stream form field is accepted for dashboard compatibility;
	// responses always stream.
	req := gateway.RunRequest{
		AgentID:   c.Param("agent_id"),
		Message:   c.PostForm("message"),
		SessionID: c.PostForm("session_id"),
		UserID:    c.PostForm("user_id"),
	}
	stream, err := s.gw.Run(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, gateway.ErrUnknownAgent) {
			detail(c, http.StatusNotFound, fmt.Sprintf("Agent '%s' not found", req.AgentID))
			return
		}
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer stream.Close()

	writeSSEHeaders(c)
	for stream.Next() {
		if !writeSSEFrame(c, stream.Current()) {
			return
		}
	}
}

func writeSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// writeSSEFrame emits one frame as a single data line and flushes it so
// the client sees events as they happen, not when buffers fill.
func writeSSEFrame(c *gin.Context, frame *gateway.Event) bool {
	raw, err := sonic.Marshal(frame)
	if err != nil {
		log.Errorf(c.Request.Context(), err, "encode run frame")
		return false
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", raw); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

type chatRequest struct {
	Message   string `json:"message" binding:"required"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// chat is the non-streaming run endpoint: it drains the run internally
// and answers with the final reply plus the tool calls made along the
// way.
func (s *Server) chat(c *gin.Context) {
	if s.gw == nil {
		detail(c, http.StatusServiceUnavailable, "Agent not initialized")
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	stream, err := s.gw.Run(c.Request.Context(), gateway.RunRequest{
		Message:   req.Message,
		SessionID: req.SessionID,
		UserID:    req.UserID,
	})
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer stream.Close()

	var (
		final     string
		toolCalls []*gateway.ToolCallRecord
		runErr    string
	)
	for stream.Next() {
		frame := stream.Current()
		switch frame.Event {
		case gateway.EventRunCompleted:
			if frame.Content != nil {
				final = *frame.Content
			}
			toolCalls = frame.Tools
		case gateway.EventRunError:
			runErr = "run failed"
			if frame.Content != nil {
				runErr = *frame.Content
			}
		}
	}
	if runErr != "" {
		detail(c, http.StatusInternalServerError, runErr)
		return
	}
	if toolCalls == nil {
		toolCalls = []*gateway.ToolCallRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"response":   final,
		"session_id": stream.SessionID(),
		"tool_calls": toolCalls,
	})
}
