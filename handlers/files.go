package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"turbotransfer/config"
	"turbotransfer/middleware"
	"turbotransfer/services/analytics"
	"turbotransfer/services/janitor"
	"turbotransfer/services/paths"
	"turbotransfer/services/thumbnail"
	"turbotransfer/services/transfer"
	"turbotransfer/utils"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileHandler serves uploads, listings, downloads and transfer settings.
type FileHandler struct {
	Transfer   transfer.TransferService
	Settings   *config.Settings
	Thumbnails thumbnail.ThumbnailService
	Analytics  analytics.AnalyticsService
	Janitor    janitor.JanitorService
}

type namesRequest struct {
	Names []string `json:"names" binding:"required"`
}

// ListHandler returns the artifacts visible to the caller.
func (h *FileHandler) ListHandler(c *gin.Context) {
	scope, _ := middleware.CallerScope(c)
	files, err := h.Transfer.List(scope)
	if err != nil {
		writeTransferError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

// UploadHandler streams the raw request body into storage. The host pushes
// to the session named by X-Session-ID; a peer uploads into its device folder.
func (h *FileHandler) UploadHandler(c *gin.Context) {
	name := c.GetHeader(utils.HeaderFilename)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	var declared int64
	if raw := strings.TrimSpace(c.GetHeader(utils.HeaderFilesize)); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			utils.JSONError(c, http.StatusBadRequest, "Invalid file size", raw)
			return
		}
		declared = n
	}

	var target paths.Target
	if middleware.IsHost(c) {
		id := c.GetHeader(utils.HeaderSessionID)
		if id == utils.NullSessionID {
			id = ""
		}
		target = paths.HostPush{SessionID: id}
	} else {
		s, _ := middleware.CurrentSession(c)
		target = paths.PeerUpload{DeviceName: s.DeviceName}
	}

	stored, err := h.Transfer.Ingest(c.Request.Context(), transfer.IngestRequest{
		Body:         c.Request.Body,
		Name:         name,
		DeclaredSize: declared,
		Target:       target,
	})
	if err != nil {
		writeTransferError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "filename": stored})
}

func (h *FileHandler) DeleteHandler(c *gin.Context) {
	var input namesRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	scope, _ := middleware.CallerScope(c)
	n := h.Transfer.DeleteMany(input.Names, scope)
	c.JSON(http.StatusOK, gin.H{"status": "success", "deleted": n})
}

// ZipHandler bundles the named artifacts and serves the archive.
func (h *FileHandler) ZipHandler(c *gin.Context) {
	var input namesRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	scope, _ := middleware.CallerScope(c)
	bundle, err := h.Transfer.Zip(c.Request.Context(), input.Names, scope)
	if err != nil {
		writeTransferError(c, err)
		return
	}
	serveBundle(c, bundle)
}

// DownloadHandler serves a file, or a directory as a zip.
func (h *FileHandler) DownloadHandler(c *gin.Context) {
	scope, _ := middleware.CallerScope(c)
	loc, err := h.Transfer.Locate(strings.TrimPrefix(c.Param("name"), "/"), scope)
	if err != nil {
		writeTransferError(c, err)
		return
	}
	if loc.IsDir {
		bundle, err := h.Transfer.ZipDirectory(c.Request.Context(), loc.Path)
		if err != nil {
			writeTransferError(c, err)
			return
		}
		serveBundle(c, bundle)
		return
	}
	if mt, err := mimetype.DetectFile(loc.Path); err == nil {
		c.Header("Content-Type", mt.String())
	}
	c.FileAttachment(loc.Path, filepath.Base(loc.Path))
}

func (h *FileHandler) ThumbnailHandler(c *gin.Context) {
	scope, _ := middleware.CallerScope(c)
	loc, err := h.Transfer.Locate(strings.TrimPrefix(c.Param("name"), "/"), scope)
	if err != nil || loc.IsDir || !h.Thumbnails.Available(loc.Path) {
		utils.JSONError(c, http.StatusNotFound, "Thumbnail not found", c.Param("name"))
		return
	}
	c.Header("Content-Type", "image/png")
	c.File(h.Thumbnails.PathFor(loc.Path))
}

func (h *FileHandler) GetConfigHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.Settings.Snapshot())
}

// UpdateConfigHandler changes any subset of the live settings.
func (h *FileHandler) UpdateConfigHandler(c *gin.Context) {
	var input struct {
		SavePath            *string `json:"save_path"`
		SafetyFilter        *bool   `json:"safety_filter"`
		OverwriteDuplicates *bool   `json:"overwrite_duplicates"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if input.SavePath != nil && *input.SavePath != "" {
		if err := h.Settings.SetSavePath(*input.SavePath); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid save path", err.Error())
			return
		}
	}
	if input.SafetyFilter != nil {
		h.Settings.SetSafetyFilter(*input.SafetyFilter)
	}
	if input.OverwriteDuplicates != nil {
		h.Settings.SetOverwriteDuplicates(*input.OverwriteDuplicates)
	}
	snap := h.Settings.Snapshot()
	getLogger(c).Info("Settings: updated",
		zap.String("savePath", snap.SavePath),
		zap.Bool("safetyFilter", snap.SafetyFilter),
		zap.Bool("overwriteDuplicates", snap.OverwriteDuplicates))
	c.JSON(http.StatusOK, gin.H{"status": "success", "config": snap})
}

func (h *FileHandler) AnalyticsHandler(c *gin.Context) {
	history, err := h.Analytics.History(c.Request.Context())
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to read history", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "stats": analytics.Summarize(history)})
}

// PurgeHandler removes every stored artifact older than max_age_seconds.
func (h *FileHandler) PurgeHandler(c *gin.Context) {
	var input struct {
		MaxAgeSeconds int64 `json:"max_age_seconds"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.MaxAgeSeconds < 0 {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", "max_age_seconds must be a non-negative integer")
		return
	}
	n := h.Janitor.PurgeOlderThan(c.Request.Context(), time.Duration(input.MaxAgeSeconds)*time.Second)
	c.JSON(http.StatusOK, gin.H{"status": "success", "removed": n})
}

// serveBundle sends the archive and then deletes it. A bundle that cannot
// be removed here is left for the janitor.
func serveBundle(c *gin.Context, bundle transfer.Bundle) {
	c.Header("Content-Type", "application/zip")
	c.FileAttachment(bundle.Path, bundle.DownloadName)
	if err := os.Remove(bundle.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		getLogger(c).Warn("Transfer: failed to remove served bundle", zap.String("path", bundle.Path), zap.Error(err))
	}
}
