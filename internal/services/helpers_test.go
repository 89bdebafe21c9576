package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/botfleet-backend/internal/models"
	"github.com/Ananth-NQI/botfleet-backend/internal/protocol/protocoltest"
	"github.com/Ananth-NQI/botfleet-backend/internal/storage"
)

const phone = "15551234567"

func testOptions() Options {
	return Options{
		MaxBots: 10,
		Reconnect: ReconnectPolicy{
			InitialDelay: 30 * time.Millisecond,
			Multiplier:   1.0,
			MaxAttempts:  5,
		},
		PairingTimeout: 200 * time.Millisecond,
		PairingTTL:     time.Minute,
		RestartDelay:   20 * time.Millisecond,
		EventBacklog:   64,
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (n *recordingNotifier) SendWhatsAppMessage(to string, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[string][]string)
	}
	n.sent[to] = append(n.sent[to], message)
	return nil
}

func (n *recordingNotifier) count(to string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent[to])
}

type harness struct {
	m        *BotManager
	factory  *protocoltest.Factory
	store    *storage.MemoryStore
	notifier *recordingNotifier
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		factory:  protocoltest.NewFactory(),
		store:    storage.NewMemoryStore(),
		notifier: &recordingNotifier{},
	}
	h.m = NewBotManager(h.factory, h.store, h.notifier, opts, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.m.Shutdown(ctx)
	})
	return h
}

func (h *harness) nextConn(t *testing.T) *protocoltest.Conn {
	t.Helper()
	c, ok := h.factory.NextOpen(2 * time.Second)
	require.True(t, ok, "expected a connection to be opened")
	return c
}

func (h *harness) waitState(t *testing.T, userID string, state models.SessionState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.m.GetStatus(userID).State == state
	}, 2*time.Second, 5*time.Millisecond, "user %s never reached %s", userID, state)
}

// waitEvent skips events until one of type typ arrives
func waitEvent(t *testing.T, sub *Subscription, typ models.EventType) models.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			require.True(t, ok, "subscription closed")
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event for %s", typ, sub.UserID)
			return models.Event{}
		}
	}
}
