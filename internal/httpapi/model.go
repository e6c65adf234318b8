package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getModel returns the current model configuration.
func (s *Server) getModel(c *gin.Context) {
	c.JSON(http.StatusOK, s.gw.Config().Model())
}

// updateModel merges a partial update into the model configuration. The
// next run picks up the new model; in-flight runs keep the one they
// started with.
func (s *Server) updateModel(c *gin.Context) {
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

	mc, err := s.gw.Config().UpdateModel(updates)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.reconcile(c)
	c.JSON(http.StatusOK, gin.H{"message": "Model configuration updated", "model": mc})
}

// getUsage returns cumulative token usage and estimated cost.
func (s *Server) getUsage(c *gin.Context) {
	c.JSON(http.StatusOK, s.gw.Usage().Snapshot())
}
