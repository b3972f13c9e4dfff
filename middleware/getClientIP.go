package middleware

import (
	"net"
	"strings"

	"turbotransfer/utils"

	"github.com/gin-gonic/gin"
)

// getClientIP returns the peer address. Forwarding headers are honoured only
// when the direct peer is a local reverse proxy, so LAN clients cannot spoof
// another address.
func getClientIP(c *gin.Context) string {
	remote := c.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if !utils.IsLoopback(remote) {
		return remote
	}

	// The header may contain a comma-separated list of IPs. Use the first one.
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return remote
}
