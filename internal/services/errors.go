package services

import (
	"errors"

	"github.com/Ananth-NQI/botfleet-backend/internal/utils"
)

var (
	// ErrCapacityExceeded means every session slot is taken; retry later
	ErrCapacityExceeded = errors.New("bot capacity reached")
	// ErrAlreadyExists means the user already has a session; disconnect first
	ErrAlreadyExists = errors.New("a bot is already connected for this user")
	// ErrNotFound covers unknown sessions and unknown or expired pairing requests
	ErrNotFound = errors.New("not found or expired")
	// ErrPairingTimeout means no pairing code was issued in time
	ErrPairingTimeout = errors.New("timed out waiting for pairing code")
	// ErrPairingFailed means the handshake connection closed before issuing a code
	ErrPairingFailed = errors.New("pairing connection closed before a code was issued")
	// ErrInvalidPhone is returned for phone numbers that are not 10-15 digits
	ErrInvalidPhone = utils.ErrInvalidPhone
	// ErrTerminalClosure means the session was logged out and must be paired again
	ErrTerminalClosure = errors.New("session logged out")
	// ErrReconnectExhausted means transient failures outlasted the reconnect policy
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	// ErrDisconnected is the close cause of a manually stopped session
	ErrDisconnected = errors.New("session disconnected")
	// ErrNotConnected means the session exists but is not open
	ErrNotConnected = errors.New("bot is not connected")
	// ErrMessageTooLong rejects outbound messages above MaxMessageLength
	ErrMessageTooLong = errors.New("message too long")
)

// ErrShutdown is returned once the manager has been shut down
var ErrShutdown = errors.New("bot manager is shut down")
