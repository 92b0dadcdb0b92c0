package feed

import "sync"

// Notifier is a typed fan-out point for payload-carrying events, the payload
// counterpart of the dispatcher's Signal. Listeners run synchronously on the
// emitting goroutine, in subscription order.
type Notifier[T any] struct {
	mu       sync.Mutex
	handlers []*listener[T]
}

type listener[T any] struct {
	fn func(T)
}

// Subscribe registers fn and returns a cancel func.
func (n *Notifier[T]) Subscribe(fn func(T)) func() {
	l := &listener[T]{fn: fn}

	n.mu.Lock()
	n.handlers = append(n.handlers, l)
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, cur := range n.handlers {
			if cur == l {
				n.handlers = append(n.handlers[:i], n.handlers[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers v to every listener.
func (n *Notifier[T]) Emit(v T) {
	n.mu.Lock()
	snapshot := make([]*listener[T], len(n.handlers))
	copy(snapshot, n.handlers)
	n.mu.Unlock()

	for _, l := range snapshot {
		l.fn(v)
	}
}
