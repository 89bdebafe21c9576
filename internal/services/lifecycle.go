package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/botfleet-backend/internal/models"
	"github.com/Ananth-NQI/botfleet-backend/internal/observability"
	"github.com/Ananth-NQI/botfleet-backend/internal/protocol"
	"github.com/Ananth-NQI/botfleet-backend/internal/storage"
)

// lifecycle drives one Session through
//
//	connecting -> open -> reconnecting -> closed
//
// with reconnecting -> open and reconnecting -> closed. All transitions run
// on the goroutine started by run, so at most one is in flight. The
// reconnect timer is only read by that goroutine; cancelling its context is
// enough to guarantee no reconnect happens afterwards.
type lifecycle struct {
	session  *Session
	factory  protocol.Factory
	store    storage.CredentialStore
	events   *Broadcaster
	registry *Registry
	notifier Notifier
	policy   ReconnectPolicy
	now      func() time.Time
	logger   zerolog.Logger

	conn     protocol.Connection
	attempts int
	retry    *time.Timer
}

func (l *lifecycle) run(ctx context.Context) {
	defer close(l.session.done)
	defer l.stopRetry()
	defer l.dropConnection()

	if err := l.connect(ctx); err != nil {
		if ctx.Err() != nil {
			l.stopped()
			return
		}
		if l.transient(protocol.ReasonConnectionLost, err) {
			return
		}
	}

	for {
		var events <-chan protocol.Event
		if l.conn != nil {
			events = l.conn.Events()
		}
		var retry <-chan time.Time
		if l.retry != nil {
			retry = l.retry.C
		}

		select {
		case <-ctx.Done():
			l.stopped()
			return
		case ev, ok := <-events:
			if !ok {
				ev = protocol.Event{Kind: protocol.EventClosed, Reason: protocol.ReasonConnectionClosed}
			}
			if l.handle(ctx, ev) {
				return
			}
		case <-retry:
			l.retry = nil
			if l.reconnect(ctx) {
				return
			}
		}
	}
}

// handle applies one connection event and reports whether the session is
// finished
func (l *lifecycle) handle(ctx context.Context, ev protocol.Event) bool {
	switch ev.Kind {
	case protocol.EventOpened:
		l.attempts = 0
		l.session.markOpen(l.now())
		l.logger.Info().Msg("bot connected")
		l.publish(models.Event{Type: models.EventConnected, Message: "Bot connected"})

	case protocol.EventCredentialsUpdated:
		if err := l.store.Save(ctx, l.session.UserID, ev.Credentials); err != nil {
			l.logger.Error().Err(err).Msg("failed to persist credentials")
		}

	case protocol.EventMessage:
		msg := ev.Message
		if msg.FromMe || msg.Text == "" {
			return false
		}
		n := l.session.incMessages()
		observability.RecordMessageReceived()
		l.logger.Debug().Str("from", msg.From).Uint64("processed", n).Msg("message received")
		l.publish(models.Event{Type: models.EventMessage, From: msg.From, Text: msg.Text})

	case protocol.EventPairingCode:
		l.publish(models.Event{Type: models.EventPairingCode, Code: ev.PairingCode})

	case protocol.EventClosed:
		l.dropConnection()
		if ev.Reason.Terminal() {
			l.terminate(ctx, ErrTerminalClosure)
			return true
		}
		return l.transient(ev.Reason, ev.Err)
	}
	return false
}

// transient schedules exactly one reconnect attempt, or closes the session
// once the policy is exhausted
func (l *lifecycle) transient(reason protocol.CloseReason, cause error) bool {
	l.dropConnection()
	l.attempts++
	if l.policy.Exhausted(l.attempts) {
		l.logger.Warn().Int("attempts", l.attempts-1).Msg("reconnect attempts exhausted")
		l.terminate(context.Background(), ErrReconnectExhausted)
		return true
	}

	delay := l.policy.Delay(l.attempts)
	l.session.setState(models.StateReconnecting)
	l.stopRetry()
	l.retry = time.NewTimer(delay)
	observability.RecordReconnectAttempt()

	l.logger.Info().
		Err(cause).
		Str("reason", reason.String()).
		Int("attempt", l.attempts).
		Dur("delay", delay).
		Msg("connection dropped, reconnecting")
	l.publish(models.Event{
		Type:    models.EventReconnecting,
		Message: fmt.Sprintf("Reconnecting in %s (%s)", delay, reason),
		Attempt: l.attempts,
	})
	return false
}

func (l *lifecycle) reconnect(ctx context.Context) bool {
	if err := l.connect(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		return l.transient(protocol.ReasonConnectionLost, err)
	}
	return false
}

// connect opens a fresh connection with the persisted credentials, or none
// when the session has never been authenticated
func (l *lifecycle) connect(ctx context.Context) error {
	creds, found, err := l.store.Load(ctx, l.session.UserID)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if !found {
		creds = nil
	}

	conn, err := l.factory.Open(ctx, protocol.OpenOptions{
		SessionKey:  l.session.UserID,
		PhoneNumber: l.session.PhoneNumber,
		Credentials: creds,
	})
	if err != nil {
		return fmt.Errorf("open connection: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = conn.Close()
		return err
	}
	l.conn = conn
	l.session.setConnection(conn)
	return nil
}

// terminate closes the session for good and frees its registry slot
func (l *lifecycle) terminate(ctx context.Context, cause error) {
	l.dropConnection()
	l.stopRetry()
	l.session.markClosed(cause)
	l.registry.release(l.session)

	if err := l.store.Delete(ctx, l.session.UserID); err != nil {
		l.logger.Error().Err(err).Msg("failed to delete credentials")
	}

	label := "logged_out"
	message := "Bot logged out"
	if errors.Is(cause, ErrReconnectExhausted) {
		label = "reconnect_exhausted"
		message = "Bot disconnected after repeated connection failures"
	}
	observability.RecordSessionClosed(label)
	l.logger.Warn().Err(cause).Msg("bot disconnected")
	l.publish(models.Event{Type: models.EventDisconnected, Message: message})
	l.notify(message)
}

// stopped records a manual stop; the caller publishes the user-facing event
func (l *lifecycle) stopped() {
	l.session.markClosed(ErrDisconnected)
	observability.RecordSessionClosed("disconnected")
	l.logger.Info().Msg("bot stopped")
}

func (l *lifecycle) notify(message string) {
	if l.notifier == nil {
		return
	}
	text := fmt.Sprintf("%s. Pair your number again from the dashboard to restart it.", message)
	if err := l.notifier.SendWhatsAppMessage(l.session.PhoneNumber, text); err != nil {
		l.logger.Error().Err(err).Msg("failed to send disconnect notice")
	}
}

func (l *lifecycle) publish(ev models.Event) {
	l.events.Publish(l.session.UserID, ev)
}

func (l *lifecycle) dropConnection() {
	if l.conn == nil {
		return
	}
	if err := l.conn.Close(); err != nil {
		l.logger.Debug().Err(err).Msg("close connection")
	}
	l.conn = nil
	l.session.setConnection(nil)
}

func (l *lifecycle) stopRetry() {
	if l.retry != nil {
		l.retry.Stop()
		l.retry = nil
	}
}
