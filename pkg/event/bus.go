// Package event provides a typed publish/subscribe bus.
//
// Each component that broadcasts changes owns one [Bus] per event type.
// Subscribers are registered explicitly and can be enumerated, so a session
// can tell at any time who listens to what.
//
//	var changes event.Bus[theme.Changed]
//	cancel := changes.Subscribe(func(c theme.Changed) { ... })
//	defer cancel()
//	changes.Publish(theme.Changed{...})
//
// Publish delivers synchronously on the caller's goroutine, in subscription
// order. The bus is safe for concurrent use; handlers may subscribe or cancel
// from inside a delivery.
package event

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Handler receives published events.
type Handler[T any] func(T)

type subscriber[T any] struct {
	id uuid.UUID
	fn Handler[T]
}

// Bus is a typed event bus. The zero value is ready to use.
type Bus[T any] struct {
	mu   sync.Mutex
	subs []subscriber[T]
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is a no-op.
func (b *Bus[T]) Subscribe(fn Handler[T]) (cancel func()) {
	id := uuid.New()
	b.mu.Lock()
	b.subs = append(b.subs, subscriber[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = slices.DeleteFunc(b.subs, func(s subscriber[T]) bool { return s.id == id })
}

// Publish delivers v to every current subscriber.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Subscribers returns the ids of the current subscribers in subscription order.
func (b *Bus[T]) Subscribers() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]uuid.UUID, len(b.subs))
	for i, s := range b.subs {
		ids[i] = s.id
	}
	return ids
}

// Len returns the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
