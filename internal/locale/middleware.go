package locale

import (
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/shelfwise/internal/observability/context"
)

const contextKey = "locale"

// Middleware resolves the request locale and stores it on the gin and
// request contexts.
func Middleware(n *Negotiator, cookies *CookieManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := n.Resolve(cookies.Read(c), c.GetHeader("Accept-Language"))
		c.Set(contextKey, code)
		c.Request = c.Request.WithContext(obscontext.WithLocale(c.Request.Context(), code))
		c.Next()
	}
}

// FromGin returns the locale set by Middleware, or "" when it did not run.
func FromGin(c *gin.Context) string {
	return c.GetString(contextKey)
}
