package models

import "time"

// SessionState is the lifecycle state of a hosted bot connection
type SessionState string

const (
	StateConnecting   SessionState = "connecting"
	StateOpen         SessionState = "open"
	StateReconnecting SessionState = "reconnecting"
	StateClosed       SessionState = "closed"

	// StateAbsent is reported for users without a registered session
	StateAbsent SessionState = "absent"
)

// BotStatus is a point-in-time view of one user's session
type BotStatus struct {
	State             SessionState `json:"state"`
	PhoneNumber       string       `json:"phone_number,omitempty"`
	ConnectedAt       *time.Time   `json:"connected_at,omitempty"`
	MessagesProcessed uint64       `json:"messages_processed"`
	Uptime            int64        `json:"uptime"` // seconds since connectedAt
}

// Exists reports whether the status describes a registered session
func (s BotStatus) Exists() bool {
	return s.State != StateAbsent
}
