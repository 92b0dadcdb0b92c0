package dispatch

import "sync"

// Signal is a synchronous fan-out notification point. Listeners run in
// subscription order on the goroutine that calls Emit. Emit works on a
// snapshot of the listener list, so a listener may subscribe, cancel, or call
// Dispatcher.Stop from inside its callback.
type Signal struct {
	mu       sync.Mutex
	handlers []*handler
}

type handler struct {
	fn func()
}

// Subscribe registers fn and returns a cancel func that removes it.
func (s *Signal) Subscribe(fn func()) func() {
	h := &handler{fn: fn}

	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, cur := range s.handlers {
			if cur == h {
				s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
				return
			}
		}
	}
}

// Emit invokes every subscribed listener, in subscription order.
func (s *Signal) Emit() {
	s.mu.Lock()
	snapshot := make([]*handler, len(s.handlers))
	copy(snapshot, s.handlers)
	s.mu.Unlock()

	for _, h := range snapshot {
		h.fn()
	}
}
