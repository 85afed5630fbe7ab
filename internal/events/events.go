// Package events carries cross-service notifications out of the combat
// controller, decoupling it from quest progression.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// QuestActionCompleted is published when a hero wins an encounter that
// was tagged with an external quest action.
type QuestActionCompleted struct {
	HeroID   string `json:"heroId"`
	ActionID string `json:"actionId"`
}

// Bus delivers combat events to interested subscribers.
type Bus interface {
	// PublishQuestActionCompleted enqueues the event for all
	// subscribers. Delivery is best-effort: a subscriber that is not
	// draining its channel misses events rather than blocking combat.
	PublishQuestActionCompleted(ev QuestActionCompleted)

	// SubscribeQuestActionCompleted registers a new subscriber and
	// returns its receive channel.
	SubscribeQuestActionCompleted() <-chan QuestActionCompleted

	// Close closes all subscriber channels.
	Close()
}

// ChannelBus is an in-process Bus fanning events out over buffered
// channels.
type ChannelBus struct {
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	subs   []chan QuestActionCompleted
	buffer int
}

// NewChannelBus creates a ChannelBus with the given per-subscriber
// buffer size.
//
// Postcondition: Returns an open bus; bufferSize <= 0 selects a default.
func NewChannelBus(logger *zap.Logger, bufferSize int) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &ChannelBus{logger: logger, buffer: bufferSize}
}

// PublishQuestActionCompleted fans the event out without blocking.
//
// Postcondition: Subscribers with full buffers are skipped.
func (b *ChannelBus) PublishQuestActionCompleted(ev QuestActionCompleted) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub <- ev:
		default:
			b.logger.Warn("dropping quest action event",
				zap.String("hero_id", ev.HeroID),
				zap.String("action_id", ev.ActionID))
		}
	}
}

// SubscribeQuestActionCompleted registers a subscriber.
//
// Postcondition: The returned channel is closed when the bus closes.
func (b *ChannelBus) SubscribeQuestActionCompleted() <-chan QuestActionCompleted {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan QuestActionCompleted, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Close closes all subscriber channels. Publishing after Close is a
// no-op.
func (b *ChannelBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub)
	}
	b.subs = nil
}
