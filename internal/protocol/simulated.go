package protocol

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ananth-NQI/botfleet-backend/internal/utils"
)

// Simulated is an in-process driver used when no messaging backend is
// configured. Ephemeral connections issue a pairing code after PairingDelay;
// durable connections initialise credentials if needed and open after
// OpenDelay.
type Simulated struct {
	PairingDelay time.Duration
	OpenDelay    time.Duration
}

// NewSimulated returns a driver with short, human-visible delays
func NewSimulated() *Simulated {
	return &Simulated{
		PairingDelay: 500 * time.Millisecond,
		OpenDelay:    time.Second,
	}
}

func (s *Simulated) Open(ctx context.Context, opts OpenOptions) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := &simulatedConn{
		events: make(chan Event, 4),
		done:   make(chan struct{}),
	}
	go c.drive(s, opts)
	return c, nil
}

type simulatedConn struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (c *simulatedConn) drive(s *Simulated, opts OpenOptions) {
	if opts.Ephemeral {
		if !c.wait(s.PairingDelay) {
			return
		}
		code, err := utils.GeneratePairingCode()
		if err != nil {
			c.emit(Event{Kind: EventClosed, Reason: ReasonBadSession, Err: err})
			return
		}
		c.emit(Event{Kind: EventPairingCode, PairingCode: code})
		return
	}

	if opts.Credentials == nil {
		creds := make([]byte, 32)
		if _, err := rand.Read(creds); err != nil {
			c.emit(Event{Kind: EventClosed, Reason: ReasonBadSession, Err: err})
			return
		}
		c.emit(Event{Kind: EventCredentialsUpdated, Credentials: creds})
	}
	if !c.wait(s.OpenDelay) {
		return
	}
	c.emit(Event{Kind: EventOpened})
}

func (c *simulatedConn) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.done:
		return false
	}
}

func (c *simulatedConn) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *simulatedConn) Events() <-chan Event {
	return c.events
}

func (c *simulatedConn) Send(ctx context.Context, to, text string) error {
	select {
	case <-c.done:
		return errors.New("simulated connection closed")
	default:
	}
	if to == "" {
		return fmt.Errorf("simulated send: empty recipient")
	}
	return ctx.Err()
}

func (c *simulatedConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
