package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shelfwise/internal/locale"
)

type setLocaleRequest struct {
	Code string `json:"code"`
}

func (s *Server) GetLocale(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"locale":    locale.FromGin(c),
		"default":   s.locales.Default(),
		"supported": s.locales.Supported(),
	}})
}

// SetLocale stores the chosen locale in the cookie. The code comes from
// the path on GET and from the JSON body on POST.
func (s *Server) SetLocale(c *gin.Context) {
	code := c.Param("code")
	if c.Request.Method == http.MethodPost {
		var req setLocaleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		code = req.Code
	}

	normalized, err := s.locales.Validate(strings.TrimSpace(code))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.cookies.Set(c, normalized)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"locale": normalized}})
}
