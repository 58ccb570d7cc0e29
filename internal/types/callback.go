// Package types contains small generic types shared across the module.
package types

import (
	"iter"
	"sync"
)

// CallbackManager is a thread-safe registry of callbacks.
// Callbacks are yielded in registration order. The zero value is ready to use.
type CallbackManager[T any] struct {
	mu     sync.RWMutex
	cbs    []callback[T]
	nextID int
}

type callback[T any] struct {
	id int
	cb T
}

// Len returns the number of registered callbacks.
func (m *CallbackManager[T]) Len() int {
	if m == nil {
		return 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cbs)
}

// Add registers the callback and returns a function that removes it.
// The remove function is safe to call multiple times.
func (m *CallbackManager[T]) Add(cb T) (remove func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.cbs = append(m.cbs, callback[T]{id, cb})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			for i, entry := range m.cbs {
				if entry.id == id {
					m.cbs = append(m.cbs[:i], m.cbs[i+1:]...)
					break
				}
			}
			m.mu.Unlock()
		})
	}
}

// All returns an iterator over a snapshot of the registered callbacks,
// so callbacks may register or remove callbacks while iterating.
func (m *CallbackManager[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if m == nil {
			return
		}

		m.mu.RLock()
		callbacks := make([]T, len(m.cbs))
		for i, entry := range m.cbs {
			callbacks[i] = entry.cb
		}
		m.mu.RUnlock()

		for _, cb := range callbacks {
			if !yield(cb) {
				return
			}
		}
	}
}
