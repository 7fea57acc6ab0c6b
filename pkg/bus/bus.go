package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler consumes one message.
type Handler[T any] func(ctx context.Context, msg T)

// Bus is a typed in-process publish/subscribe channel. Each subscriber owns a
// buffered queue drained by its own goroutine; a full queue drops the message
// for that subscriber only.
type Bus[T any] struct {
	name   string
	buffer int
	log    zerolog.Logger

	mu     sync.RWMutex
	subs   map[uuid.UUID]*subscription[T]
	closed bool
}

type subscription[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

// New creates a bus. buffer is the per-subscriber queue length.
func New[T any](name string, buffer int, logger zerolog.Logger) *Bus[T] {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus[T]{
		name:   name,
		buffer: buffer,
		log:    logger.With().Str("bus", name).Logger(),
		subs:   make(map[uuid.UUID]*subscription[T]),
	}
}

// Subscribe registers handler until the returned func is called or ctx ends.
// The unsubscribe func waits for the handler goroutine to exit, so it must
// not be called from inside handler. Calling it twice is fine.
func (b *Bus[T]) Subscribe(ctx context.Context, handler Handler[T]) (unsubscribe func()) {
	id := uuid.New()
	sub := &subscription[T]{
		ch:   make(chan T, b.buffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.done)
		return func() {}
	}
	b.subs[id] = sub
	count := len(b.subs)
	b.mu.Unlock()

	b.log.Debug().Str("subscription", id.String()).Int("subscribers", count).Msg("subscribed")

	go func() {
		defer close(sub.done)
		for msg := range sub.ch {
			handler(ctx, msg)
		}
	}()

	stop := context.AfterFunc(ctx, func() { b.remove(id) })

	return func() {
		stop()
		b.remove(id)
		<-sub.done
	}
}

// Publish fans msg out to every subscriber and returns how many queued it.
func (b *Bus[T]) Publish(msg T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for id, sub := range b.subs {
		select {
		case sub.ch <- msg:
			delivered++
		default:
			b.log.Warn().Str("subscription", id.String()).Msg("subscriber queue full, message dropped")
		}
	}
	return delivered
}

// Subscribers returns the current subscriber count.
func (b *Bus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close removes every subscriber; later Subscribe calls are no-ops.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = make(map[uuid.UUID]*subscription[T])
	b.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
		<-sub.done
	}
}

func (b *Bus[T]) remove(id uuid.UUID) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		sub.once.Do(func() { close(sub.ch) })
		b.log.Debug().Str("subscription", id.String()).Msg("unsubscribed")
	}
}
