package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	stockdomain "github.com/smallbiznis/shelfwise/internal/stock/domain"
)

// CreateStockAdjustment applies every item of the submission or none.
func (s *Server) CreateStockAdjustment(c *gin.Context) {
	var req stockdomain.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	txn, evts, err := s.stockSvc.Adjust(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.dispatch(c, evts)

	c.JSON(http.StatusCreated, gin.H{"data": txn})
}

func (s *Server) ListStockAdjustments(c *gin.Context) {
	txns, err := s.stockSvc.List(c.Request.Context(), strings.TrimSpace(c.Query("book_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txns})
}
