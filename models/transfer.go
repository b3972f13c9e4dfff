// File: turbotransfer/models/transfer.go
package models

import "time"

const (
	TransferSuccess = "success"
	TransferFailed  = "failed"
)

// TransferRecord is one entry of the transfer history.
type TransferRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Direction Direction `json:"direction"`
	Status    string    `json:"status"`
}

// TransferStats aggregates successful transfers by direction.
type TransferStats struct {
	TotalSent     int64 `json:"total_sent"`
	TotalReceived int64 `json:"total_received"`
	Count         int   `json:"count"`
}
