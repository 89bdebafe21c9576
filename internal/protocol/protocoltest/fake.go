// Package protocoltest provides a scriptable protocol.Factory for tests.
package protocoltest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Ananth-NQI/botfleet-backend/internal/protocol"
)

// ErrClosed is returned by Send on a closed connection
var ErrClosed = errors.New("protocoltest: connection closed")

// Factory records every Open call and hands out Conns the test can drive
type Factory struct {
	mu      sync.Mutex
	conns   []*Conn
	openErr []error
	opened  chan *Conn

	// PairingCode, when set, is emitted immediately by ephemeral connections
	PairingCode string
	// AutoOpen makes durable connections emit EventOpened immediately
	AutoOpen bool
}

func NewFactory() *Factory {
	return &Factory{opened: make(chan *Conn, 64)}
}

// FailNextOpen queues an error for the next Open call
func (f *Factory) FailNextOpen(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = append(f.openErr, err)
}

func (f *Factory) Open(ctx context.Context, opts protocol.OpenOptions) (protocol.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	if len(f.openErr) > 0 {
		err := f.openErr[0]
		f.openErr = f.openErr[1:]
		f.mu.Unlock()
		return nil, err
	}
	c := &Conn{
		Options: opts,
		events:  make(chan protocol.Event, 16),
		closed:  make(chan struct{}),
	}
	f.conns = append(f.conns, c)
	code, autoOpen := f.PairingCode, f.AutoOpen
	f.mu.Unlock()

	if opts.Ephemeral && code != "" {
		c.Emit(protocol.Event{Kind: protocol.EventPairingCode, PairingCode: code})
	}
	if !opts.Ephemeral && autoOpen {
		c.Emit(protocol.Event{Kind: protocol.EventOpened})
	}

	select {
	case f.opened <- c:
	default:
	}
	return c, nil
}

// Opens returns the number of successful Open calls
func (f *Factory) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// Live returns the number of connections not yet closed
func (f *Factory) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.conns {
		if !c.IsClosed() {
			n++
		}
	}
	return n
}

// Conns returns a copy of every connection opened so far
func (f *Factory) Conns() []*Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Conn(nil), f.conns...)
}

// NextOpen waits for the next opened connection
func (f *Factory) NextOpen(timeout time.Duration) (*Conn, bool) {
	select {
	case c := <-f.opened:
		return c, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Sent is a message passed to Conn.Send
type Sent struct {
	To   string
	Text string
}

// Conn is a fake protocol.Connection
type Conn struct {
	Options protocol.OpenOptions

	events chan protocol.Event
	closed chan struct{}
	once   sync.Once

	mu   sync.Mutex
	sent []Sent
}

func (c *Conn) Events() <-chan protocol.Event {
	return c.events
}

// Emit delivers ev unless the connection has been closed
func (c *Conn) Emit(ev protocol.Event) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.closed:
		return false
	}
}

func (c *Conn) Send(ctx context.Context, to, text string) error {
	if c.IsClosed() {
		return ErrClosed
	}
	c.mu.Lock()
	c.sent = append(c.sent, Sent{To: to, Text: text})
	c.mu.Unlock()
	return ctx.Err()
}

// SentMessages returns the messages passed to Send
func (c *Conn) SentMessages() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *Conn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
