package events

import (
	"sync"
)

// Listener receives published values. Listeners run on the publisher's
// goroutine and must not block.
type Listener[T any] func(T)

// Broadcaster fans a value out to every subscribed listener
type Broadcaster[T any] struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]Listener[T]
	order     []uint64
}

// NewBroadcaster creates a broadcaster with no listeners
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		listeners: make(map[uint64]Listener[T]),
	}
}

// Subscribe registers a listener and returns the function that removes it.
// The returned function is safe to call more than once.
func (b *Broadcaster[T]) Subscribe(listener Listener[T]) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners[id] = listener
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Broadcaster[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.listeners, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish delivers value to the listeners in subscription order
func (b *Broadcaster[T]) Publish(value T) {
	b.mu.RLock()
	snapshot := make([]Listener[T], 0, len(b.order))
	for _, id := range b.order {
		snapshot = append(snapshot, b.listeners[id])
	}
	b.mu.RUnlock()

	for _, listener := range snapshot {
		listener(value)
	}
}

// Len returns the number of subscribed listeners
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
