package locale

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shelfwise/internal/config"
)

const (
	CookieName   = "locale"
	CookieMaxAge = 365 * 24 * 60 * 60
)

type CookieManager struct {
	secure bool
}

func NewCookieManager(cfg config.Config) *CookieManager {
	return &CookieManager{secure: cfg.CookieSecure}
}

func (m *CookieManager) Read(c *gin.Context) string {
	value, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

func (m *CookieManager) Set(c *gin.Context, code string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, code, CookieMaxAge, "/", "", m.secure, false)
}
