// File: turbotransfer/models/host.go
package models

import "time"

type HostInfo struct {
	HostName  string `json:"host_name"`
	Status    string `json:"status"`
	Platform  string `json:"platform"`
	PrimaryIP string `json:"primary_ip"`
}

// ClipboardContent is the shared clipboard mirrored between host and peers.
type ClipboardContent struct {
	Content      string    `json:"content"`
	LastUpdated  time.Time `json:"last_updated"`
	DeviceSource string    `json:"device_source"`
}
