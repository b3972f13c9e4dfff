// File: turbotransfer/handlers/bundle.go
package handlers

import "turbotransfer/services/session"

// HandlerBundle groups all endpoint handlers and what the routes need to
// guard them.
type HandlerBundle struct {
	Sessions         session.Registry
	HostLoopbackOnly bool

	Session *SessionHandler
	Files   *FileHandler
	Host    *HostHandler
}
