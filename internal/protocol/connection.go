// Package protocol defines what the session manager needs from a messaging
// protocol connection. The wire format itself lives behind Factory.
package protocol

import (
	"context"
	"fmt"
)

// EventKind identifies a connection event
type EventKind int

const (
	EventPairingCode EventKind = iota + 1
	EventOpened
	EventClosed
	EventCredentialsUpdated
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventPairingCode:
		return "pairing-code-issued"
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventCredentialsUpdated:
		return "credentials-updated"
	case EventMessage:
		return "message-received"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// CloseReason is the status code attached to a closed event. Values follow
// the multi-device WhatsApp disconnect codes.
type CloseReason int

const (
	ReasonUnknown             CloseReason = 0
	ReasonLoggedOut           CloseReason = 401
	ReasonConnectionLost      CloseReason = 408
	ReasonMultideviceMismatch CloseReason = 411
	ReasonConnectionClosed    CloseReason = 428
	ReasonConnectionReplaced  CloseReason = 440
	ReasonBadSession          CloseReason = 500
	ReasonRestartRequired     CloseReason = 515
)

// Terminal reports whether the session can never be resumed with its
// current credentials. Only an explicit logout is terminal.
func (r CloseReason) Terminal() bool {
	return r == ReasonLoggedOut
}

func (r CloseReason) String() string {
	switch r {
	case ReasonLoggedOut:
		return "logged out"
	case ReasonConnectionLost:
		return "connection lost"
	case ReasonMultideviceMismatch:
		return "multi-device mismatch"
	case ReasonConnectionClosed:
		return "connection closed"
	case ReasonConnectionReplaced:
		return "connection replaced"
	case ReasonBadSession:
		return "bad session"
	case ReasonRestartRequired:
		return "restart required"
	default:
		return fmt.Sprintf("unknown (%d)", int(r))
	}
}

// Message is an inbound chat message
type Message struct {
	From   string
	Text   string
	FromMe bool
}

// Event is emitted by a Connection. Only the fields relevant to Kind are set.
type Event struct {
	Kind        EventKind
	PairingCode string
	Reason      CloseReason
	Err         error
	Credentials []byte
	Message     Message
}

// OpenOptions describe the connection to establish
type OpenOptions struct {
	SessionKey  string
	PhoneNumber string
	// Credentials is nil when the session has none yet; the connection
	// initialises fresh material and reports it via EventCredentialsUpdated.
	Credentials []byte
	// Ephemeral connections are unauthenticated and only used to request a
	// pairing code for PhoneNumber.
	Ephemeral bool
}

// Connection is one live protocol connection
type Connection interface {
	// Events is never closed by the sender while the connection is open.
	// A closed channel is treated as a transient close.
	Events() <-chan Event
	Send(ctx context.Context, to, text string) error
	Close() error
}

// Factory opens protocol connections
type Factory interface {
	Open(ctx context.Context, opts OpenOptions) (Connection, error)
}
