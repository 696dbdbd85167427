package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	membershipdomain "github.com/smallbiznis/shelfwise/internal/membership/domain"
)

func (s *Server) ListMembershipTypes(c *gin.Context) {
	activeOnly, err := parseOptionalBool(c.Query("active"))
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	types, err := s.membershipSvc.ListTypes(c.Request.Context(), activeOnly != nil && *activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": types})
}

func (s *Server) CreateMembershipType(c *gin.Context) {
	var req membershipdomain.CreateTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	mt, err := s.membershipSvc.CreateType(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": mt})
}

func (s *Server) CreateMember(c *gin.Context) {
	var req membershipdomain.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, evts, err := s.membershipSvc.CreateMember(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.dispatch(c, evts)

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (s *Server) GetMember(c *gin.Context) {
	member, err := s.membershipSvc.GetMember(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": member})
}

func (s *Server) AssignMembership(c *gin.Context) {
	var req membershipdomain.AssignMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.MemberID = c.Param("id")

	result, evts, err := s.membershipSvc.AssignMembership(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.dispatch(c, evts)

	c.JSON(http.StatusOK, gin.H{"data": result})
}
