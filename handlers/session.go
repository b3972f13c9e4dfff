package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"turbotransfer/middleware"
	"turbotransfer/models"
	"turbotransfer/services/session"
	"turbotransfer/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandler serves pairing and session management.
type SessionHandler struct {
	Registry  session.Registry
	Port      string
	PrimaryIP func() string
}

func NewSessionHandler(registry session.Registry, port string, primaryIP func() string) *SessionHandler {
	if primaryIP == nil {
		primaryIP = utils.PrimaryIP
	}
	return &SessionHandler{Registry: registry, Port: port, PrimaryIP: primaryIP}
}

// pairingResponse is what a peer learns about its new session. The PIN is
// only shown on the host.
type pairingResponse struct {
	SessionID  string               `json:"session_id"`
	Status     models.SessionStatus `json:"status"`
	DeviceName string               `json:"device_name"`
	ExpiresAt  time.Time            `json:"expires_at"`
}

// StatusHandler lists every live session, PINs included, for the host UI.
func (h *SessionHandler) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.Registry.ListSessions()})
}

// InitHandler starts pairing for the calling device.
func (h *SessionHandler) InitHandler(c *gin.Context) {
	s, err := h.Registry.InitSession(c.Query("device_name"))
	if err != nil {
		if errors.Is(err, session.ErrPinSpaceExhausted) {
			utils.JSONError(c, http.StatusServiceUnavailable, "Too many pending pairings", err.Error())
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "Failed to start pairing", err.Error())
		return
	}
	c.JSON(http.StatusOK, pairingResponse{
		SessionID:  s.ID,
		Status:     s.Status,
		DeviceName: s.DeviceName,
		ExpiresAt:  s.ExpiresAt,
	})
}

// VerifyHandler authenticates the pending session holding the given PIN.
func (h *SessionHandler) VerifyHandler(c *gin.Context) {
	var input struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid PIN", err.Error())
		return
	}
	s, ok := h.Registry.VerifyPIN(input.PIN)
	if !ok {
		utils.JSONError(c, http.StatusBadRequest, "Invalid PIN", "no pending session holds this PIN")
		return
	}
	getLogger(c).Info("Session: device paired", zap.String("device", s.DeviceName))
	c.JSON(http.StatusOK, gin.H{"status": s.Status, "session": s})
}

// DisconnectHandler ends a session. Peers may only end their own.
func (h *SessionHandler) DisconnectHandler(c *gin.Context) {
	id := c.Param("id")
	if !middleware.IsHost(c) {
		if s, ok := middleware.CurrentSession(c); !ok || s.ID != id {
			utils.JSONError(c, http.StatusForbidden, "Forbidden", "a peer can only disconnect itself")
			return
		}
	}
	h.Registry.RemoveSession(id)
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Session disconnected"})
}

func (h *SessionHandler) BlockHandler(c *gin.Context) {
	h.Registry.BlockSession(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Session blocked"})
}

func (h *SessionHandler) ResetHandler(c *gin.Context) {
	n := h.Registry.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "success", "cleared": n})
}

// LinkHandler returns the URL a peer opens to start pairing.
func (h *SessionHandler) LinkHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"url": fmt.Sprintf("https://%s:%s?id=session&start=1", h.PrimaryIP(), h.Port)})
}
