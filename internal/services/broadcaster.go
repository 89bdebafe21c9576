package services

import (
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/botfleet-backend/internal/models"
	"github.com/Ananth-NQI/botfleet-backend/internal/observability"
)

// Broadcaster fans events out to the observers of each user. Delivery is
// FIFO per subscriber and best effort: events for a user with no
// subscribers are dropped, as are events beyond a subscriber's backlog.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	backlog int
	now     func() time.Time
	logger  zerolog.Logger
}

// NewBroadcaster creates a broadcaster whose subscribers buffer at most
// backlog undelivered events
func NewBroadcaster(backlog int, logger zerolog.Logger) *Broadcaster {
	if backlog <= 0 {
		backlog = 256
	}
	return &Broadcaster{
		subs:    make(map[string]map[*Subscription]struct{}),
		backlog: backlog,
		now:     time.Now,
		logger:  logger.With().Str("component", "broadcaster").Logger(),
	}
}

// Subscribe opens an observer stream for userID. Callers must Close it.
func (b *Broadcaster) Subscribe(userID string) *Subscription {
	s := &Subscription{
		UserID:  userID,
		out:     make(chan models.Event),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: queue.New(),
		limit:   b.backlog,
		b:       b,
	}

	b.mu.Lock()
	set, ok := b.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[userID] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()

	go s.pump()
	return s
}

// Publish queues ev for every subscriber of userID and reports how many
// subscribers accepted it
func (b *Broadcaster) Publish(userID string, ev models.Event) int {
	ev.UserID = userID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for s := range b.subs[userID] {
		if s.enqueue(ev) {
			delivered++
			continue
		}
		observability.RecordEventDropped()
		b.logger.Warn().Str("user_id", userID).Str("event", string(ev.Type)).Msg("subscriber backlog full, event dropped")
	}
	return delivered
}

// Subscribers returns the number of open subscriptions for userID
func (b *Broadcaster) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

// CloseAll closes every open subscription, ending their Events channels
func (b *Broadcaster) CloseAll() {
	b.mu.RLock()
	var all []*Subscription
	for _, set := range b.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range all {
		s.Close()
	}
}

func (b *Broadcaster) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[s.UserID]
	delete(set, s)
	if len(set) == 0 {
		delete(b.subs, s.UserID)
	}
}

// Subscription is one observer of a user's events
type Subscription struct {
	UserID string

	out  chan models.Event
	wake chan struct{}
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	pending *queue.Queue
	limit   int

	b *Broadcaster
}

// Events delivers the user's events in publish order. It is closed after
// Close.
func (s *Subscription) Events() <-chan models.Event {
	return s.out
}

// Close detaches the subscription and discards undelivered events
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.b.unsubscribe(s)
		close(s.done)
	})
}

func (s *Subscription) enqueue(ev models.Event) bool {
	s.mu.Lock()
	if s.pending.Length() >= s.limit {
		s.mu.Unlock()
		return false
	}
	s.pending.Add(ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Subscription) next() (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Length() == 0 {
		return models.Event{}, false
	}
	return s.pending.Remove().(models.Event), true
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		ev, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}
