// File: utils/constants.go
package utils

// Request headers understood by the transfer API.
const (
	HeaderSessionID = "X-Session-ID"
	HeaderIsHost    = "X-Is-Host"
	HeaderFilename  = "X-Filename"
	HeaderFilesize  = "X-Filesize"
)

// NullSessionID is what browsers send when no session is stored.
const NullSessionID = "null"
