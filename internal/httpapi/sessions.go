package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"goa.design/clue/log"

	gateway "github.com/armatrix/mcp-gateway"
	"github.com/armatrix/mcp-gateway/session"
)

// listSessions returns a user's sessions, newest first, in the shape the
// dashboard's session sidebar expects.
func (s *Server) listSessions(c *gin.Context) {
	userID := c.DefaultQuery("user_id", gateway.DefaultUserID)
	agentID := c.Query("agent_id")
	if agentID == "" {
		agentID = gateway.AgentID
	}

	recs, err := s.gw.Sessions().List(c.Request.Context(), userID)
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]gin.H, 0, len(recs))
	for _, rec := range recs {
		out = append(out, gin.H{
			"session_id":   rec.SessionID,
			"session_name": sessionName(rec),
			"created_at":   rec.CreatedAt,
			"updated_at":   rec.CreatedAt,
			"agent_id":     agentID,
			"agent_name":   gateway.AgentName,
		})
	}
	c.JSON(http.StatusOK, out)
}

// sessionName falls back to a truncated id when the record predates name
// derivation or the first message was empty.
func sessionName(rec *session.Record) string {
	if rec.Name != "" {
		return rec.Name
	}
	id := rec.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return "Session " + id
}

// sessionRuns returns a session's history as user/assistant turn pairs.
// A missing session or a storage failure both answer an empty list: the
// dashboard renders either as a fresh conversation.
func (s *Server) sessionRuns(c *gin.Context) {
	id := c.Param("session_id")
	rec, err := s.gw.Sessions().Get(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			log.Errorf(c.Request.Context(), err, "session %s: load runs", id)
		}
		c.JSON(http.StatusOK, []gin.H{})
		return
	}

	runs := make([]gin.H, 0, len(rec.Entries)/2)
	for i := 0; i+1 < len(rec.Entries); i++ {
		user, reply := rec.Entries[i], rec.Entries[i+1]
		if user.Role != "user" || reply.Role != "assistant" {
			continue
		}
		tools := reply.ToolCalls
		if tools == nil {
			tools = []session.ToolCallSnapshot{}
		}
		runs = append(runs, gin.H{
			"message": gin.H{
				"role":       "user",
				"content":    user.Content,
				"created_at": user.CreatedAt,
			},
			"response": gin.H{
				"content":    reply.Content,
				"tools":      tools,
				"created_at": reply.CreatedAt,
			},
		})
		i++
	}
	c.JSON(http.StatusOK, runs)
}

// deleteSession removes a session. Deleting a session that does not
// exist succeeds: the caller wanted it gone and it is.
func (s *Server) deleteSession(c *gin.Context) {
	id := c.Param("session_id")
	err := s.gw.Sessions().Delete(c.Request.Context(), id)
	if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted", "session_id": id})
}

// listSessionsLegacy is the flat session index kept for older clients.
func (s *Server) listSessionsLegacy(c *gin.Context) {
	userID := c.DefaultQuery("user_id", gateway.DefaultUserID)
	recs, err := s.gw.Sessions().List(c.Request.Context(), userID)
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	sessions := make([]gin.H, 0, len(recs))
	for _, rec := range recs {
		sessions = append(sessions, gin.H{
			"session_id": rec.SessionID,
			"created_at": rec.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
