package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/armatrix/mcp-gateway/config"
	"github.com/armatrix/mcp-gateway/pool"
)

// listServers returns every configured server, enabled or not.
func (s *Server) listServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"servers": s.gw.Config().Servers()})
}

// getServer returns one server's configuration.
func (s *Server) getServer(c *gin.Context) {
	cfg, ok := s.gw.Config().Server(c.Param("id"))
	if !ok {
		detail(c, http.StatusNotFound, "Server not found")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// createServer adds a server to the configuration and reconciles the
// pool so an enabled server connects immediately.
func (s *Server) createServer(c *gin.Context) {
	var cfg pool.ServerConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.gw.Config().Add(cfg); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.reconcile(c)
	c.JSON(http.StatusOK, gin.H{"message": "Server created", "server": cfg})
}

// updateServer merges a partial update into an existing server.
func (s *Server) updateServer(c *gin.Context) {
	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	for k, v := range updates {
		if v == nil {
			delete(updates, k)
		}
	}
	// The path owns the identity.
	delete(updates, "id")

	cfg, err := s.gw.Config().Update(c.Param("id"), updates)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, config.ErrServerNotFound) {
			code = http.StatusNotFound
		}
		detail(c, code, err.Error())
		return
	}
	s.reconcile(c)
	c.JSON(http.StatusOK, gin.H{"message": "Server updated", "server": cfg})
}

// deleteServer removes a server from the configuration and disconnects it.
func (s *Server) deleteServer(c *gin.Context) {
	if err := s.gw.Config().Remove(c.Param("id")); err != nil {
		detail(c, http.StatusNotFound, "Server not found")
		return
	}
	s.reconcile(c)
	c.JSON(http.StatusOK, gin.H{"message": "Server deleted"})
}

// toggleServer flips a server's enabled flag. The flag comes from the
// enabled query parameter, which is required.
func (s *Server) toggleServer(c *gin.Context) {
	raw, ok := c.GetQuery("enabled")
	if !ok {
		detail(c, http.StatusBadRequest, "enabled query parameter is required")
		return
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		detail(c, http.StatusBadRequest, "enabled must be true or false")
		return
	}

	cfg, err := s.gw.Config().SetEnabled(c.Param("id"), enabled)
	if err != nil {
		detail(c, http.StatusNotFound, err.Error())
		return
	}
	s.reconcile(c)
	msg := "Server disabled"
	if enabled {
		msg = "Server enabled"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "server": cfg})
}

// reconnectServers tears down and re-establishes the whole enabled fleet.
func (s *Server) reconnectServers(c *gin.Context) {
	if err := s.gw.Reconcile(c.Request.Context()); err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Reconnected to MCP servers",
		"connected": s.gw.Pool().ConnectedCount(),
	})
}

// serverStatus reports the live connection state of every server along
// with fleet-wide tallies.
func (s *Server) serverStatus(c *gin.Context) {
	states, sum := s.gw.Pool().Status()
	servers := make([]gin.H, 0, len(states))
	for _, st := range states {
		tools := st.Tools
		if tools == nil {
			tools = []pool.ToolInfo{}
		}
		servers = append(servers, gin.H{
			"id":          st.ID,
			"name":        st.Name,
			"enabled":     st.Enabled,
			"status":      st.Status,
			"tools_count": len(st.Tools),
			"tools":       tools,
			"error":       st.Err,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"servers": servers,
		"summary": gin.H{
			"total":       sum.Total,
			"enabled":     sum.Enabled,
			"connected":   sum.Connected,
			"failed":      sum.Failed,
			"total_tools": sum.TotalTools,
		},
	})
}

// listTools returns the aggregated tool catalog across connected servers.
func (s *Server) listTools(c *gin.Context) {
	catalog := s.gw.Pool().Catalog()
	tools := make([]gin.H, 0, len(catalog))
	for _, t := range catalog {
		tools = append(tools, gin.H{"name": t.Name, "description": t.Description})
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools, "count": len(tools)})
}
