// Package broadcast fans session events out to every live connection watching
// that session. Delivery is best effort: a subscriber that falls behind its
// buffer misses events rather than slowing the publisher down.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/mcoot/chessgame-go/internal/model"
)

// SubscriberBufferSize is the number of events queued per subscriber before
// further events are dropped for it
const SubscriberBufferSize = 64

// Registry maps session identifiers to their broadcast channel.
// Channels are created lazily and kept for the process lifetime, except
// that Discard drops a channel nobody is subscribed to.
type Registry struct {
	channels map[model.SessionID]*Channel
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewRegistry creates a new Registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		channels: make(map[model.SessionID]*Channel),
		logger:   logger.With(slog.String("component", "broadcast")),
	}
}

// GetOrCreate returns the channel for a session, creating one if it doesn't exist
func (r *Registry) GetOrCreate(id model.SessionID) *Channel {
	r.mu.RLock()
	ch, ok := r.channels[id]
	r.mu.RUnlock()
	if ok {
		return ch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have won the race between the locks
	if ch, ok := r.channels[id]; ok {
		return ch
	}

	ch = newChannel(id, r.logger)
	r.channels[id] = ch
	r.logger.Debug("broadcast channel created", slog.String("game_id", string(id)))
	return ch
}

// Get returns the channel for a session, or nil if it doesn't exist
func (r *Registry) Get(id model.SessionID) *Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[id]
}

// Publish sends an event to a session's subscribers.
// It is a no-op when nobody has opened the session's channel yet.
func (r *Registry) Publish(id model.SessionID, event model.Event) {
	if ch := r.Get(id); ch != nil {
		ch.Publish(event)
	}
}

// Discard removes a session's channel if it has no subscribers. Connections
// use it to undo GetOrCreate for a session that turned out not to exist.
func (r *Registry) Discard(id model.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[id]
	if !ok || ch.SubscriberCount() > 0 {
		return false
	}
	delete(r.channels, id)
	r.logger.Debug("broadcast channel discarded", slog.String("game_id", string(id)))
	return true
}

// Len returns the number of live channels
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Channel fans events for one session out to its subscribers
type Channel struct {
	sessionID   model.SessionID
	subscribers map[*Subscription]struct{}
	mu          sync.RWMutex
	logger      *slog.Logger
}

func newChannel(id model.SessionID, logger *slog.Logger) *Channel {
	return &Channel{
		sessionID:   id,
		subscribers: make(map[*Subscription]struct{}),
		logger:      logger.With(slog.String("game_id", string(id))),
	}
}

// Subscribe registers a new subscriber
func (c *Channel) Subscribe() *Subscription {
	sub := &Subscription{
		channel: c,
		events:  make(chan model.Event, SubscriberBufferSize),
	}

	c.mu.Lock()
	c.subscribers[sub] = struct{}{}
	count := len(c.subscribers)
	c.mu.Unlock()

	c.logger.Debug("subscriber added", slog.Int("total_subscribers", count))
	return sub
}

// Publish delivers event to every subscriber without blocking.
// Subscribers whose buffer is full miss the event.
func (c *Channel) Publish(event model.Event) {
	c.mu.RLock()
	sent, dropped := 0, 0
	for sub := range c.subscribers {
		select {
		case sub.events <- event:
			sent++
		default:
			dropped++
		}
	}
	c.mu.RUnlock()

	if dropped > 0 {
		c.logger.Warn("broadcast dropped for slow subscribers",
			slog.String("event", string(event.EventType())),
			slog.Int("sent", sent),
			slog.Int("dropped", dropped))
	}
}

// SubscriberCount returns the number of live subscribers
func (c *Channel) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers)
}

func (c *Channel) remove(sub *Subscription) {
	c.mu.Lock()
	delete(c.subscribers, sub)
	count := len(c.subscribers)
	c.mu.Unlock()

	c.logger.Debug("subscriber removed", slog.Int("total_subscribers", count))
}

// Subscription is one subscriber's view of a channel
type Subscription struct {
	channel   *Channel
	events    chan model.Event
	closeOnce sync.Once
}

// Events yields published events until the subscription is closed
func (s *Subscription) Events() <-chan model.Event {
	return s.events
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.channel.remove(s)
		// Publish holds the read lock while sending, so once remove has taken
		// the write lock no sender can still reach this channel
		close(s.events)
	})
}
