package services

import (
	"context"
	"sync"
	"time"

	"github.com/Ananth-NQI/botfleet-backend/internal/models"
	"github.com/Ananth-NQI/botfleet-backend/internal/protocol"
)

// Session is one hosted bot. Its mutable fields are written only by the
// session's lifecycle goroutine and read through Status.
type Session struct {
	UserID      string
	PhoneNumber string

	mu                sync.RWMutex
	state             models.SessionState
	connectedAt       time.Time
	messagesProcessed uint64
	closeErr          error
	conn              protocol.Connection

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func newSession(userID, phoneNumber string) *Session {
	return &Session{
		UserID:      userID,
		PhoneNumber: phoneNumber,
		state:       models.StateConnecting,
		done:        make(chan struct{}),
	}
}

// State returns the current lifecycle state
func (s *Session) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns a snapshot for callers outside the lifecycle goroutine
func (s *Session) Status(now time.Time) models.BotStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := models.BotStatus{
		State:             s.state,
		PhoneNumber:       s.PhoneNumber,
		MessagesProcessed: s.messagesProcessed,
	}
	if !s.connectedAt.IsZero() {
		at := s.connectedAt
		status.ConnectedAt = &at
		status.Uptime = int64(now.Sub(at).Seconds())
	}
	return status
}

// Done is closed once the lifecycle goroutine has exited and the
// connection is released
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns why the session closed, nil while it is running
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closeErr
}

// Stop cancels the lifecycle goroutine and waits for it to exit. Safe to
// call more than once, never from the lifecycle goroutine itself.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	if s.cancel != nil {
		<-s.done
	}
}

func (s *Session) setState(state models.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Session) markOpen(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = models.StateOpen
	s.connectedAt = at
}

func (s *Session) markClosed(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = models.StateClosed
	s.connectedAt = time.Time{}
	if s.closeErr == nil {
		s.closeErr = cause
	}
}

func (s *Session) incMessages() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messagesProcessed++
	return s.messagesProcessed
}

func (s *Session) setConnection(conn protocol.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

// connection returns the live connection, nil between attempts
func (s *Session) connection() protocol.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}
