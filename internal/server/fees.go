package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetFeeSettings returns the settings snapshot currently in force.
func (s *Server) GetFeeSettings(c *gin.Context) {
	settings := s.settings.Get()
	if _, err := settings.Rates(); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}
