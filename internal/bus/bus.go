// Package bus broadcasts "storage changed" notifications between the
// components that read or mutate the persisted session and cart records.
//
// Delivery is best-effort and at-least-once: subscribers must treat a
// notification as a hint to re-read the store, never as the data itself.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
	"github.com/niloyhakimai/medistore-client/pkg/metrics"
)

// Notification announces that one or more store keys changed
type Notification struct {
	Keys   []string  `json:"keys,omitempty"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Handler receives notifications
type Handler func(Notification)

// Bridge relays notifications between processes sharing a profile
type Bridge interface {
	Publish(ctx context.Context, n Notification) error
	// Run delivers notifications received from other processes until ctx is done
	Run(ctx context.Context, deliver func(Notification)) error
}

// Bus fans notifications out to in-process subscribers synchronously and,
// when a bridge is attached, to other processes
type Bus struct {
	id      string
	log     *logger.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	subs   map[uint64]Handler
	nextID uint64
	bridge Bridge
}

// New creates a Bus with a unique origin id
func New() *Bus {
	return &Bus{
		id:      uuid.NewString(),
		log:     logger.Get(),
		metrics: metrics.Default(),
		subs:    make(map[uint64]Handler),
	}
}

// ID returns the origin id stamped on notifications published here
func (b *Bus) ID() string {
	return b.id
}

// Subscribe registers h and returns an idempotent unsubscribe func
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish announces that keys changed. Local subscribers have been called by
// the time Publish returns; bridge failures are logged and swallowed.
func (b *Bus) Publish(ctx context.Context, keys ...string) {
	n := Notification{Keys: keys, Origin: b.id, At: time.Now()}
	b.metrics.Notifications.WithLabelValues("local").Inc()
	b.deliver(n)

	b.mu.RLock()
	bridge := b.bridge
	b.mu.RUnlock()
	if bridge == nil {
		return
	}
	if err := bridge.Publish(ctx, n); err != nil {
		b.log.Warn("Failed to relay storage notification", "error", err)
	}
}

// Attach starts relaying through bridge until ctx is cancelled.
// Notifications this bus published itself are not delivered twice.
func (b *Bus) Attach(ctx context.Context, bridge Bridge) {
	b.mu.Lock()
	b.bridge = bridge
	b.mu.Unlock()

	go func() {
		err := bridge.Run(ctx, func(n Notification) {
			if n.Origin == b.id {
				return
			}
			b.metrics.Notifications.WithLabelValues("remote").Inc()
			b.deliver(n)
		})
		if err != nil && ctx.Err() == nil {
			b.log.Warn("Storage notification bridge stopped", "error", err)
		}

		b.mu.Lock()
		if b.bridge == bridge {
			b.bridge = nil
		}
		b.mu.Unlock()
	}()
}

// deliver calls a snapshot of the subscribers so handlers may (un)subscribe
// while being called
func (b *Bus) deliver(n Notification) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.call(h, n)
	}
}

func (b *Bus) call(h Handler, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Storage notification handler panicked", "panic", r)
		}
	}()
	h(n)
}
