package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// exportConfig returns the full configuration document for backup.
func (s *Server) exportConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.gw.Config().Export())
}

// importConfig replaces the whole configuration with the posted document
// and reconnects the fleet it describes.
func (s *Server) importConfig(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.gw.Config().Import(raw); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.reconcile(c)
	c.JSON(http.StatusOK, gin.H{"message": "Configuration imported"})
}
