// Package events implements a minimal publish/subscribe bus used to surface
// authorization state transitions to subscribers (audit logging, notification
// dispatch) without those subscribers participating in any authorization
// critical section. Publishers must only publish after releasing their locks.
package events

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Event is any value published on the bus. Subscribers select events by
// their concrete type.
type Event interface{}

// Bus delivers published events to all subscribers whose subscription type
// matches.
type Bus struct {
	mu          sync.Mutex
	subscribers []func(Event)
	log         *zap.Logger
}

// NewBus returns a bus that logs subscriber panics with the given logger. A
// nil logger disables logging.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log}
}

func (b *Bus) subscribe(sub func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Publish delivers the event to every matching subscriber. Synchronous
// subscribers run on the calling goroutine; a panicking subscriber is
// recovered and logged so publishing never fails.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	subs := b.subscribers
	n := len(subs)
	b.mu.Unlock()

	for _, sub := range subs[:n] {
		sub(event)
	}
}

// SubscribeSync registers a subscriber that runs on the publisher's
// goroutine for every event of type T.
func SubscribeSync[T Event](b *Bus, sub func(T)) {
	b.subscribe(func(e Event) {
		et, ok := e.(T)
		if !ok {
			return
		}

		defer func() {
			if err := recover(); err != nil {
				b.log.Error("event subscriber panicked",
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())))
			}
		}()

		sub(et)
	})
}

// SubscribeAsync registers a subscriber that runs on its own goroutine for
// every event of type T. Delivery order across events is not guaranteed.
func SubscribeAsync[T Event](b *Bus, sub func(T)) {
	b.subscribe(func(e Event) {
		et, ok := e.(T)
		if !ok {
			return
		}

		go func() {
			defer func() {
				if err := recover(); err != nil {
					b.log.Error("event subscriber panicked",
						zap.Any("error", err),
						zap.String("stack", string(debug.Stack())))
				}
			}()

			sub(et)
		}()
	})
}
