package models

import "time"

// EventType names the kind of update delivered to a user's observers
type EventType string

const (
	EventConnected    EventType = "connected"
	EventReconnecting EventType = "reconnecting"
	EventDisconnected EventType = "disconnected"
	EventMessage      EventType = "message"
	EventPairingCode  EventType = "pairing-code"
	EventLog          EventType = "log"
)

// Log levels carried by EventLog
const (
	LogInfo    = "info"
	LogSuccess = "success"
	LogWarning = "warning"
	LogError   = "error"
)

// Event is a lifecycle or message update for a single user
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message,omitempty"`
	Level     string    `json:"level,omitempty"`
	From      string    `json:"from,omitempty"`
	Text      string    `json:"text,omitempty"`
	Code      string    `json:"code,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
