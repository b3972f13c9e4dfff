package handlers

import (
	"errors"
	"net/http"

	"turbotransfer/middleware"
	"turbotransfer/services/clipboard"
	"turbotransfer/services/host"
	"turbotransfer/utils"

	"github.com/gin-gonic/gin"
)

// HostHandler serves host information, the clipboard mirror and power commands.
type HostHandler struct {
	Host      host.HostService
	Clipboard clipboard.ClipboardService
}

func (h *HostHandler) InfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.Host.Info())
}

func (h *HostHandler) GetClipboardHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.Clipboard.Get())
}

// SetClipboardHandler attributes the new content to the calling device.
func (h *HostHandler) SetClipboardHandler(c *gin.Context) {
	var input struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	source := clipboard.HostSource
	if s, ok := middleware.CurrentSession(c); ok {
		source = s.DeviceName
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "clipboard": h.Clipboard.Set(input.Content, source)})
}

// CommandHandler runs lock, sleep or shutdown on the host.
func (h *HostHandler) CommandHandler(c *gin.Context) {
	var input struct {
		Command string `json:"command" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if err := h.Host.Execute(c.Request.Context(), input.Command); err != nil {
		if errors.Is(err, host.ErrUnknownCommand) || errors.Is(err, host.ErrUnsupportedPlatform) {
			utils.JSONError(c, http.StatusBadRequest, "Unsupported command", err.Error())
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "Failed to execute command", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
