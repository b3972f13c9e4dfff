package middleware

import (
	"net/http"

	"turbotransfer/utils"

	"github.com/gin-gonic/gin"
)

// RequireHost admits only the host.
func RequireHost() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsHost(c) {
			utils.JSONError(c, http.StatusForbidden, "Host only", "this operation is available on the host machine")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSession admits only callers with an authenticated session.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentSession(c); !ok {
			utils.JSONError(c, http.StatusUnauthorized, "Unauthorized", "an authenticated session is required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCaller admits the host or any authenticated session.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CallerScope(c); !ok {
			utils.JSONError(c, http.StatusUnauthorized, "Unauthorized", "pair this device first")
			c.Abort()
			return
		}
		c.Next()
	}
}
