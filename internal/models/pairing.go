package models

import "time"

// PairingRequest is an issued pairing code waiting for confirmation
type PairingRequest struct {
	EphemeralID string    `json:"ephemeral_id"`
	PhoneNumber string    `json:"phone_number"`
	PairingCode string    `json:"pairing_code"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the request can no longer be confirmed at now
func (p PairingRequest) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
