package services

import (
	"sync"

	"github.com/Ananth-NQI/botfleet-backend/internal/models"
)

// Registry is the authoritative map of active sessions. It enforces the
// capacity limit and one session per user.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxBots  int
	closed   bool
}

// NewRegistry creates a registry holding at most maxBots sessions
func NewRegistry(maxBots int) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		maxBots:  maxBots,
	}
}

// insert admits s, checking capacity and uniqueness in one critical section
func (r *Registry) insert(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrShutdown
	}
	if _, exists := r.sessions[s.UserID]; exists {
		return ErrAlreadyExists
	}
	if len(r.sessions) >= r.maxBots {
		return ErrCapacityExceeded
	}
	r.sessions[s.UserID] = s
	return nil
}

// Lookup returns the session registered for userID
func (r *Registry) Lookup(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[userID]
	return s, exists
}

// Remove deletes the session for userID, then stops it and waits for its
// connection to close. Removing an unknown user is a no-op.
func (r *Registry) Remove(userID string) (*Session, bool) {
	r.mu.Lock()
	s, exists := r.sessions[userID]
	if exists {
		delete(r.sessions, userID)
	}
	r.mu.Unlock()

	if !exists {
		return nil, false
	}
	s.Stop()
	return s, true
}

// release drops s if it is still the registered session for its user. Used
// by a lifecycle goroutine that is closing itself.
func (r *Registry) release(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, exists := r.sessions[s.UserID]; exists && cur == s {
		delete(r.sessions, s.UserID)
		return true
	}
	return false
}

// drain removes and returns every session and refuses later inserts
func (r *Registry) drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	out := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, id)
	}
	return out
}

// Len returns the number of registered sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Stats counts registered and open sessions
func (r *Registry) Stats() models.FleetStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := models.FleetStats{
		Total:   len(r.sessions),
		MaxBots: r.maxBots,
	}
	for _, s := range r.sessions {
		if s.State() == models.StateOpen {
			stats.Connected++
		}
	}
	if r.maxBots > 0 {
		stats.UsagePercentage = float64(stats.Total) / float64(r.maxBots) * 100
	}
	return stats
}
