// File: turbotransfer/models/artifact.go
package models

import "time"

// Direction tells which way an artifact travelled relative to the host.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Artifact is a stored file or directory as returned by a listing.
type Artifact struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	Modified     time.Time `json:"modified"`
	Direction    Direction `json:"direction"`
	Tag          string    `json:"session_id"`
	IsDir        bool      `json:"is_dir"`
	HasThumbnail bool      `json:"has_thumbnail"`
}
