// Package eventbridge decouples the map and chat sides of the agent with a
// minimal in-process publish/subscribe surface. Delivery is synchronous
// fan-out, at-most-once: subscribers attaching after a publish miss it, and
// nothing is buffered or replayed.
package eventbridge

import (
	"sync"
)

// Topic is one named channel. The agent wires two of them: map clicks
// flowing to the chat panel, and extracted places flowing to the map. Topics
// are created by the composition root and passed by reference; there is no
// package-level state.
type Topic[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(T)
}

// NewTopic returns an empty topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[int]func(T))}
}

// Subscribe registers fn and returns its cancel func. Cancel is idempotent.
func (t *Topic[T]) Subscribe(fn func(T)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Publish delivers v to every current subscriber on the caller's goroutine.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	fns := make([]func(T), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// SubscriberCount reports how many subscribers are attached.
func (t *Topic[T]) SubscriberCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
