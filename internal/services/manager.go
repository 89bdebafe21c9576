package services

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/botfleet-backend/internal/models"
	"github.com/Ananth-NQI/botfleet-backend/internal/protocol"
	"github.com/Ananth-NQI/botfleet-backend/internal/storage"
	"github.com/Ananth-NQI/botfleet-backend/internal/utils"
)

// MaxMessageLength bounds outbound message text, in characters
const MaxMessageLength = 1000

// Notifier delivers out-of-band notices to a phone number
type Notifier interface {
	SendWhatsAppMessage(to string, message string) error
}

// Options configures a BotManager
type Options struct {
	MaxBots        int
	Reconnect      ReconnectPolicy
	PairingTimeout time.Duration
	PairingTTL     time.Duration
	RestartDelay   time.Duration
	EventBacklog   int
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		MaxBots:        100,
		Reconnect:      DefaultReconnectPolicy(),
		PairingTimeout: 30 * time.Second,
		PairingTTL:     10 * time.Minute,
		RestartDelay:   3 * time.Second,
		EventBacklog:   256,
	}
}

// PairingResult is returned by StartPairing
type PairingResult struct {
	EphemeralID string    `json:"user_id"`
	PairingCode string    `json:"pairing_code"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// BotManager hosts every bot session of the process
type BotManager struct {
	registry *Registry
	pairing  *PairingCoordinator
	events   *Broadcaster
	factory  protocol.Factory
	store    storage.CredentialStore
	notifier Notifier
	opts     Options
	now      func() time.Time
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	restartMu sync.Mutex
	restarts  map[string]*pendingRestart
}

// pendingRestart is a scheduled re-creation waiting out RestartDelay
type pendingRestart struct {
	cancel context.CancelFunc
}

// NewBotManager wires a manager. notifier may be nil.
func NewBotManager(factory protocol.Factory, store storage.CredentialStore, notifier Notifier, opts Options, logger zerolog.Logger) *BotManager {
	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With().Str("component", "bot_manager").Logger()
	return &BotManager{
		registry: NewRegistry(opts.MaxBots),
		pairing:  NewPairingCoordinator(factory, opts.PairingTimeout, opts.PairingTTL, logger),
		events:   NewBroadcaster(opts.EventBacklog, logger),
		factory:  factory,
		store:    store,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		restarts: make(map[string]*pendingRestart),
	}
}

// CreateBot admits a durable session for userID and starts connecting it
func (m *BotManager) CreateBot(userID, phoneNumber string) (*Session, error) {
	if m.ctx.Err() != nil {
		return nil, ErrShutdown
	}

	s := newSession(userID, phoneNumber)
	ctx, cancel := context.WithCancel(m.ctx)
	s.cancel = cancel
	if err := m.registry.insert(s); err != nil {
		cancel()
		return nil, err
	}

	lc := &lifecycle{
		session:  s,
		factory:  m.factory,
		store:    m.store,
		events:   m.events,
		registry: m.registry,
		notifier: m.notifier,
		policy:   m.opts.Reconnect,
		now:      m.now,
		logger:   m.logger.With().Str("user_id", userID).Logger(),
	}
	go lc.run(ctx)

	m.logger.Info().Str("user_id", userID).Msg("bot session created")
	return s, nil
}

// StartPairing validates phone and issues a pairing code for it
func (m *BotManager) StartPairing(ctx context.Context, phone string) (PairingResult, error) {
	digits, err := utils.NormalizePhone(phone)
	if err != nil {
		return PairingResult{}, err
	}
	req, err := m.pairing.Begin(ctx, digits)
	if err != nil {
		m.logger.Warn().Err(err).Msg("pairing code request failed")
		return PairingResult{}, err
	}
	return PairingResult{
		EphemeralID: req.EphemeralID,
		PairingCode: req.PairingCode,
		ExpiresAt:   req.ExpiresAt,
	}, nil
}

// ConfirmPairing promotes a pending pairing request into a bot session and
// returns its user ID. A failed promotion leaves the request in place.
func (m *BotManager) ConfirmPairing(ephemeralID string) (string, error) {
	req, err := m.pairing.Claim(ephemeralID)
	if err != nil {
		return "", err
	}
	if _, err := m.CreateBot(req.EphemeralID, req.PhoneNumber); err != nil {
		m.pairing.Restore(req)
		return "", fmt.Errorf("confirm pairing: %w", err)
	}
	return req.EphemeralID, nil
}

// GetStatus reports the session of userID, or StateAbsent
func (m *BotManager) GetStatus(userID string) models.BotStatus {
	s, ok := m.registry.Lookup(userID)
	if !ok {
		return models.BotStatus{State: models.StateAbsent}
	}
	return s.Status(m.now())
}

// Disconnect closes the session of userID from any state, cancels a pending
// reconnect or restart and forgets its credentials. Unknown users are not an
// error.
func (m *BotManager) Disconnect(ctx context.Context, userID string) error {
	m.restartMu.Lock()
	restarting := m.cancelRestartLocked(userID)
	m.restartMu.Unlock()

	if _, ok := m.registry.Remove(userID); !ok && !restarting {
		return nil
	}
	if err := m.store.Delete(ctx, userID); err != nil {
		m.logger.Error().Err(err).Str("user_id", userID).Msg("failed to delete credentials")
	}
	m.logger.Info().Str("user_id", userID).Msg("bot disconnected manually")
	m.events.Publish(userID, models.Event{Type: models.EventLog, Level: models.LogInfo, Message: "Bot disconnected"})
	m.events.Publish(userID, models.Event{Type: models.EventDisconnected, Message: "Bot disconnected manually"})
	return nil
}

// Restart stops the session of userID and recreates it with the same phone
// number after the restart delay. Completion is reported through events.
func (m *BotManager) Restart(userID string) error {
	if m.ctx.Err() != nil {
		return ErrShutdown
	}

	// removal and scheduling happen under restartMu so a Disconnect sees
	// either the session or the pending restart
	m.restartMu.Lock()
	s, ok := m.registry.Remove(userID)
	if !ok {
		m.restartMu.Unlock()
		return ErrNotFound
	}
	ctx, cancel := context.WithCancel(m.ctx)
	pr := &pendingRestart{cancel: cancel}
	m.cancelRestartLocked(userID)
	m.restarts[userID] = pr
	m.restartMu.Unlock()

	m.events.Publish(userID, models.Event{Type: models.EventLog, Level: models.LogWarning, Message: "Restarting bot..."})
	m.wg.Add(1)
	go m.recreate(ctx, pr, userID, s.PhoneNumber)
	return nil
}

// cancelRestartLocked cancels the pending restart of userID and reports
// whether there was one. Callers hold restartMu.
func (m *BotManager) cancelRestartLocked(userID string) bool {
	pr, ok := m.restarts[userID]
	if !ok {
		return false
	}
	pr.cancel()
	delete(m.restarts, userID)
	return true
}

func (m *BotManager) recreate(ctx context.Context, pr *pendingRestart, userID, phone string) {
	defer m.wg.Done()
	defer pr.cancel()

	t := time.NewTimer(m.opts.RestartDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return
	}

	// restartMu is held across CreateBot so a concurrent Disconnect either
	// cancels the restart first or removes the recreated session after it
	m.restartMu.Lock()
	if cur, ok := m.restarts[userID]; !ok || cur != pr || ctx.Err() != nil {
		m.restartMu.Unlock()
		return
	}
	delete(m.restarts, userID)
	_, err := m.CreateBot(userID, phone)
	m.restartMu.Unlock()

	if err != nil {
		m.logger.Error().Err(err).Str("user_id", userID).Msg("failed to recreate bot")
		m.events.Publish(userID, models.Event{Type: models.EventLog, Level: models.LogError, Message: "Restart failed: " + err.Error()})
		return
	}
	m.events.Publish(userID, models.Event{Type: models.EventLog, Level: models.LogSuccess, Message: "Bot restarted"})
}

// SendMessage sends text to jid through the open session of userID
func (m *BotManager) SendMessage(ctx context.Context, userID, jid, text string) error {
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	s, ok := m.registry.Lookup(userID)
	if !ok {
		return ErrNotFound
	}
	conn := s.connection()
	if s.State() != models.StateOpen || conn == nil {
		return ErrNotConnected
	}
	if err := conn.Send(ctx, jid, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	preview := text
	if utf8.RuneCountInString(preview) > 50 {
		preview = string([]rune(preview)[:50]) + "..."
	}
	m.events.Publish(userID, models.Event{
		Type:    models.EventLog,
		Level:   models.LogInfo,
		Message: fmt.Sprintf("Message sent to %s: %s", jid, preview),
	})
	return nil
}

// GetGlobalStats reports registry occupancy
func (m *BotManager) GetGlobalStats() models.FleetStats {
	return m.registry.Stats()
}

// Subscribe opens an observer stream for userID
func (m *BotManager) Subscribe(userID string) *Subscription {
	return m.events.Subscribe(userID)
}

// PendingPairings returns the number of unconfirmed pairing codes
func (m *BotManager) PendingPairings() int {
	return m.pairing.Pending()
}

// Shutdown stops every session without deleting credentials, ends every
// observer stream and waits for pending restarts to give up
func (m *BotManager) Shutdown(ctx context.Context) error {
	m.cancel()
	for _, s := range m.registry.drain() {
		s.Stop()
	}
	m.pairing.Close()
	m.events.CloseAll()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.logger.Info().Msg("bot manager stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
