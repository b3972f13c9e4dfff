// File: turbotransfer/models/session.go
package models

import "time"

// SessionStatus is the pairing state of a session.
type SessionStatus string

const (
	StatusPendingVerification SessionStatus = "PENDING_VERIFICATION"
	StatusAuthenticated       SessionStatus = "AUTHENTICATED"
)

// Session is a pairing relationship between the host and one peer device.
type Session struct {
	ID         string        `json:"session_id"`
	Status     SessionStatus `json:"status"`
	PIN        string        `json:"pin"`
	DeviceName string        `json:"device_name"`
	CreatedAt  time.Time     `json:"created_at"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

// Pending reports whether the session still waits for its PIN.
func (s Session) Pending() bool {
	return s.Status == StatusPendingVerification
}

// Expired reports whether a pending session has outlived its window at now.
// Authenticated sessions never expire.
func (s Session) Expired(now time.Time) bool {
	return s.Pending() && !now.Before(s.ExpiresAt)
}
