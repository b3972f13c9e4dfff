package handlers

import (
	"errors"
	"net/http"

	"turbotransfer/services/transfer"
	"turbotransfer/utils"

	"github.com/gin-gonic/gin"
)

// transferStatus maps a transfer error onto an HTTP status and a short message.
func transferStatus(err error) (int, string) {
	var blocked *transfer.BlockedTypeError
	var mismatch *transfer.SizeMismatchError
	switch {
	case errors.Is(err, transfer.ErrMissingSession):
		return http.StatusUnauthorized, "Session required"
	case errors.As(err, &blocked):
		return http.StatusUnsupportedMediaType, "File type blocked by safety filter"
	case errors.As(err, &mismatch):
		return http.StatusBadRequest, "File size mismatch"
	case errors.Is(err, transfer.ErrNotFound):
		return http.StatusNotFound, "File not found"
	default:
		return http.StatusInternalServerError, "Transfer failed"
	}
}

func writeTransferError(c *gin.Context, err error) {
	status, message := transferStatus(err)
	utils.JSONError(c, status, message, err.Error())
}
