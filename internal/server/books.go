package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/shelfwise/internal/catalog/domain"
)

func (s *Server) ListBooks(c *gin.Context) {
	var req catalogdomain.ListBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.ListBooks(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Books, "page_info": resp.PageInfo})
}

func (s *Server) CreateBook(c *gin.Context) {
	var req catalogdomain.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	book, err := s.catalogSvc.CreateBook(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": book})
}

func (s *Server) GetBook(c *gin.Context) {
	book, err := s.catalogSvc.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": book})
}
