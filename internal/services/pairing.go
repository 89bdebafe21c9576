package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/botfleet-backend/internal/models"
	"github.com/Ananth-NQI/botfleet-backend/internal/observability"
	"github.com/Ananth-NQI/botfleet-backend/internal/protocol"
	"github.com/Ananth-NQI/botfleet-backend/internal/storage"
)

// PairingCoordinator runs the unauthenticated handshake that issues a
// pairing code, and keeps issued codes until they are confirmed or expire
type PairingCoordinator struct {
	factory protocol.Factory
	timeout time.Duration
	ttl     time.Duration
	now     func() time.Time
	newID   func() string
	logger  zerolog.Logger

	mu      sync.Mutex
	pending map[string]*pendingPairing
}

type pendingPairing struct {
	req   models.PairingRequest
	timer *time.Timer
}

// NewPairingCoordinator creates a coordinator that waits at most timeout for
// a code and keeps issued requests for ttl
func NewPairingCoordinator(factory protocol.Factory, timeout, ttl time.Duration, logger zerolog.Logger) *PairingCoordinator {
	return &PairingCoordinator{
		factory: factory,
		timeout: timeout,
		ttl:     ttl,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  logger.With().Str("component", "pairing").Logger(),
		pending: make(map[string]*pendingPairing),
	}
}

// RequestPairingCode opens an ephemeral connection for phone and returns the
// first pairing code it issues. The connection is always closed before
// returning.
func (p *PairingCoordinator) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// handshake credentials never reach the durable store
	scratch := storage.NewMemoryStore()
	key := "pairing-" + phone

	conn, err := p.factory.Open(ctx, protocol.OpenOptions{
		SessionKey:  key,
		PhoneNumber: phone,
		Ephemeral:   true,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			observability.RecordPairing("timeout")
			return "", ErrPairingTimeout
		}
		observability.RecordPairing("failed")
		return "", fmt.Errorf("%w: %v", ErrPairingFailed, err)
	}
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				observability.RecordPairing("timeout")
				return "", ErrPairingTimeout
			}
			return "", ctx.Err()

		case ev, ok := <-conn.Events():
			if !ok {
				observability.RecordPairing("failed")
				return "", ErrPairingFailed
			}
			switch ev.Kind {
			case protocol.EventPairingCode:
				if ev.PairingCode == "" {
					continue
				}
				observability.RecordPairing("issued")
				return ev.PairingCode, nil
			case protocol.EventCredentialsUpdated:
				if err := scratch.Save(ctx, key, ev.Credentials); err != nil {
					p.logger.Debug().Err(err).Msg("discarding handshake credentials")
				}
			case protocol.EventClosed:
				observability.RecordPairing("failed")
				return "", fmt.Errorf("%w (%s)", ErrPairingFailed, ev.Reason)
			}
		}
	}
}

// Begin requests a pairing code and stores it under a new ephemeral ID
func (p *PairingCoordinator) Begin(ctx context.Context, phone string) (models.PairingRequest, error) {
	code, err := p.RequestPairingCode(ctx, phone)
	if err != nil {
		return models.PairingRequest{}, err
	}

	now := p.now()
	req := models.PairingRequest{
		EphemeralID: p.newID(),
		PhoneNumber: phone,
		PairingCode: code,
		CreatedAt:   now,
		ExpiresAt:   now.Add(p.ttl),
	}
	p.store(req, p.ttl)
	p.logger.Info().Str("ephemeral_id", req.EphemeralID).Msg("pairing code issued")
	return req, nil
}

// Claim removes and returns the request for id. Unknown and expired
// requests yield ErrNotFound.
func (p *PairingCoordinator) Claim(id string) (models.PairingRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.pending[id]
	if !ok {
		return models.PairingRequest{}, ErrNotFound
	}
	delete(p.pending, id)
	entry.timer.Stop()

	if entry.req.Expired(p.now()) {
		return models.PairingRequest{}, ErrNotFound
	}
	return entry.req, nil
}

// Restore puts back a claimed request whose promotion failed, unless it has
// expired in the meantime
func (p *PairingCoordinator) Restore(req models.PairingRequest) {
	remaining := req.ExpiresAt.Sub(p.now())
	if remaining <= 0 {
		return
	}
	p.store(req, remaining)
}

// Pending returns the number of unconfirmed requests
func (p *PairingCoordinator) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Close discards every pending request
func (p *PairingCoordinator) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, entry := range p.pending {
		entry.timer.Stop()
		delete(p.pending, id)
	}
}

func (p *PairingCoordinator) store(req models.PairingRequest, ttl time.Duration) {
	entry := &pendingPairing{req: req}

	p.mu.Lock()
	defer p.mu.Unlock()
	entry.timer = time.AfterFunc(ttl, func() { p.expire(req.EphemeralID, entry) })
	p.pending[req.EphemeralID] = entry
}

// expire drops entry only if it is still the one stored under id
func (p *PairingCoordinator) expire(id string, entry *pendingPairing) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.pending[id]; ok && cur == entry {
		delete(p.pending, id)
		p.logger.Debug().Str("ephemeral_id", id).Msg("pairing request expired")
	}
}
