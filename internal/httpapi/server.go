// Package httpapi exposes the gateway over HTTP: fleet administration,
// model configuration, session browsing, and the SSE run-streaming
// endpoint the dashboard consumes.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"goa.design/clue/log"

	gateway "github.com/armatrix/mcp-gateway"
)

// Server is the HTTP front of a Gateway.
type Server struct {
	gw     *gateway.Gateway
	router *gin.Engine
}

// New builds a Server with all routes registered. A nil gateway is
// tolerated: run endpoints answer 503 and health reports the agent as
// not ready, mirroring a boot window where HTTP is up before the agent.
func New(gw *gateway.Gateway) *Server {
	s := &Server{gw: gw, router: gin.New()}
	s.router.Use(gin.Recovery(), corsAllowAll())
	s.routes()
	return s
}

// Handler returns the HTTP entry point. Every request is logged through
// a logger derived from ctx, so handlers can use the clue log functions
// on their request context.
func (s *Server) Handler(ctx context.Context) http.Handler {
	return log.HTTP(ctx)(s.router)
}

func (s *Server) routes() {
	api := s.router.Group("/api")
	{
		api.GET("/servers", s.listServers)
		api.POST("/servers", s.createServer)
		api.POST("/servers/reconnect", s.reconnectServers)
		api.GET("/servers/status", s.serverStatus)
		api.GET("/servers/:id", s.getServer)
		api.PUT("/servers/:id", s.updateServer)
		api.DELETE("/servers/:id", s.deleteServer)
		api.POST("/servers/:id/toggle", s.toggleServer)

		api.GET("/tools", s.listTools)
		api.GET("/model", s.getModel)
		api.PUT("/model", s.updateModel)
		api.GET("/usage", s.getUsage)

		api.POST("/chat", s.chat)
		api.GET("/sessions", s.listSessionsLegacy)

		api.GET("/config/export", s.exportConfig)
		api.POST("/config/import", s.importConfig)
		api.GET("/health", s.health)
	}

	// AgentOS-compatible dashboard surface.
	s.router.GET("/agents", s.listAgents)
	s.router.POST("/agents/:agent_id/runs", s.runAgent)
	s.router.GET("/teams", s.listTeams)
	s.router.GET("/sessions", s.listSessions)
	s.router.GET("/sessions/:session_id/runs", s.sessionRuns)
	s.router.DELETE("/sessions/:session_id", s.deleteSession)
	s.router.GET("/health", s.health)
}

// detail writes an error response in the {"detail": message} shape the
// dashboard's API client expects.
func detail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"detail": msg})
}

// reconcile realigns the pool after a configuration change. Failures are
// logged, not surfaced: the mutation already persisted.
func (s *Server) reconcile(c *gin.Context) {
	if err := s.gw.Reconcile(c.Request.Context()); err != nil {
		log.Errorf(c.Request.Context(), err, "reconcile after config change")
	}
}

// health reports liveness plus the two readiness facts the dashboard
// polls for.
func (s *Server) health(c *gin.Context) {
	connected := 0
	ready := s.gw != nil
	if ready {
		connected = s.gw.Pool().ConnectedCount()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"connected_servers": connected,
		"agent_ready":       ready,
	})
}
