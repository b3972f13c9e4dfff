// middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"turbotransfer/models"
	"turbotransfer/services/paths"
	"turbotransfer/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxSession = "session"
	ctxIsHost  = "isHost"
)

// SessionReader is the part of the registry the middleware needs.
type SessionReader interface {
	GetSession(id string) (models.Session, bool)
}

// IdentifyCaller resolves the X-Session-ID and X-Is-Host headers into the
// request context. A session id that does not name an authenticated session
// is rejected. With hostLoopbackOnly the host flag is ignored unless the
// request arrives over loopback.
func IdentifyCaller(sessions SessionReader, hostLoopbackOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.GetHeader(utils.HeaderIsHost), "true") {
			if !hostLoopbackOnly || utils.IsLoopback(c.Request.RemoteAddr) {
				c.Set(ctxIsHost, true)
			} else {
				zap.L().Warn("IdentifyCaller: host flag from remote client ignored", zap.String("ip", getClientIP(c)))
			}
		}

		id := strings.TrimSpace(c.GetHeader(utils.HeaderSessionID))
		if id == "" || id == utils.NullSessionID {
			c.Next()
			return
		}
		s, ok := sessions.GetSession(id)
		if !ok || s.Status != models.StatusAuthenticated {
			utils.JSONError(c, http.StatusUnauthorized, "Session expired or unknown", "pair again with a new PIN")
			c.Abort()
			return
		}
		c.Set(ctxSession, s)
		c.Next()
	}
}

// CurrentSession returns the authenticated session attached by IdentifyCaller.
func CurrentSession(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(ctxSession)
	if !ok {
		return models.Session{}, false
	}
	s, ok := v.(models.Session)
	return s, ok
}

// IsHost reports whether the caller is the host.
func IsHost(c *gin.Context) bool {
	return c.GetBool(ctxIsHost)
}

// CallerScope maps the caller onto a storage scope. A session takes
// precedence over the host flag; with neither, ok is false.
func CallerScope(c *gin.Context) (paths.Scope, bool) {
	if s, ok := CurrentSession(c); ok {
		return paths.Scope{SessionID: s.ID, DeviceName: s.DeviceName}, true
	}
	if IsHost(c) {
		return paths.Scope{}, true
	}
	return paths.Scope{}, false
}
