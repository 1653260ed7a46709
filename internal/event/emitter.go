// Package event provides a typed listener registry.
package event

import (
	"sync"

	"github.com/google/uuid"
)

type listener[E any] struct {
	id string
	fn func(E)
}

// Emitter dispatches events of kind K carrying payload E to listeners
// registered for that kind. Listeners run synchronously, in registration
// order, on the goroutine calling Emit.
type Emitter[K comparable, E any] struct {
	mu        sync.Mutex
	listeners map[K][]listener[E]
	kinds     map[string]K
}

// NewEmitter returns an empty Emitter.
func NewEmitter[K comparable, E any]() *Emitter[K, E] {
	return &Emitter[K, E]{
		listeners: make(map[K][]listener[E]),
		kinds:     make(map[string]K),
	}
}

// On registers fn for kind and returns an id for Off.
func (e *Emitter[K, E]) On(kind K, fn func(E)) string {
	id := uuid.NewString()
	e.mu.Lock()
	e.listeners[kind] = append(e.listeners[kind], listener[E]{id: id, fn: fn})
	e.kinds[id] = kind
	e.mu.Unlock()
	return id
}

// Off removes the listener registered under id.
func (e *Emitter[K, E]) Off(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	kind, ok := e.kinds[id]
	if !ok {
		return false
	}
	delete(e.kinds, id)
	ls := e.listeners[kind]
	for i, l := range ls {
		if l.id == id {
			e.listeners[kind] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(e.listeners[kind]) == 0 {
		delete(e.listeners, kind)
	}
	return true
}

// Emit calls every listener registered for kind. Listeners added or removed
// during dispatch take effect on the next Emit.
func (e *Emitter[K, E]) Emit(kind K, ev E) {
	e.mu.Lock()
	ls := e.listeners[kind]
	e.mu.Unlock()
	for _, l := range ls {
		l.fn(ev)
	}
}

// ListenerCount returns the number of listeners registered for kind.
func (e *Emitter[K, E]) ListenerCount(kind K) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[kind])
}
