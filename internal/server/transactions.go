package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	circulationdomain "github.com/smallbiznis/shelfwise/internal/circulation/domain"
	"github.com/smallbiznis/shelfwise/internal/events"
)

type updateNotesRequest struct {
	Notes *string `json:"notes"`
}

func (s *Server) BorrowBooks(c *gin.Context) {
	var req circulationdomain.BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	txn, evts, err := s.circulationSvc.Borrow(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.dispatch(c, evts)

	c.JSON(http.StatusCreated, gin.H{"data": txn})
}

func (s *Server) GetTransaction(c *gin.Context) {
	txn, err := s.circulationSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txn})
}

// ReturnBooks accepts an empty body, which returns every item intact.
func (s *Server) ReturnBooks(c *gin.Context) {
	var req circulationdomain.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TransactionID = c.Param("id")

	result, evts, err := s.circulationSvc.Return(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.dispatch(c, evts)

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) CancelTransaction(c *gin.Context) {
	s.transition(c, s.circulationSvc.Cancel)
}

func (s *Server) ArchiveTransaction(c *gin.Context) {
	s.transition(c, s.circulationSvc.Archive)
}

func (s *Server) transition(c *gin.Context, fn func(ctx context.Context, id string) (circulationdomain.Transaction, []events.Event, error)) {
	txn, evts, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.dispatch(c, evts)

	c.JSON(http.StatusOK, gin.H{"data": txn})
}

func (s *Server) UpdateTransactionNotes(c *gin.Context) {
	var req updateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Notes == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	txn, err := s.circulationSvc.UpdateNotes(c.Request.Context(), c.Param("id"), *req.Notes)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txn})
}

func (s *Server) DeleteTransaction(c *gin.Context) {
	if err := s.circulationSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
