package feed

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ahroberts/tickflow/internal/dispatch"
	"github.com/ahroberts/tickflow/internal/log"
)

// BarFeed adapts a BarSource into a historical dispatch subject. It keeps a
// one-bar lookahead so the dispatcher can peek the next datetime, and emits
// each delivered bar to its subscribers. Eof, PeekDateTime and CurrentBar
// are safe to call from other goroutines while the dispatcher is running.
type BarFeed struct {
	name     string
	src      BarSource
	priority dispatch.Priority
	logger   *slog.Logger

	disp *dispatch.Dispatcher

	mu      sync.Mutex
	next    *Bar
	last    *Bar
	eof     bool
	started bool

	onBar Notifier[Bar]
}

// NewBarFeed creates a feed named name over src. Zero priority defaults to
// PriorityBarFeed.
func NewBarFeed(name string, src BarSource, priority dispatch.Priority) *BarFeed {
	if priority == 0 {
		priority = dispatch.PriorityBarFeed
	}
	return &BarFeed{
		name:     name,
		src:      src,
		priority: priority,
		logger:   log.WithSubject("barfeed:" + name),
	}
}

func (f *BarFeed) String() string { return "barfeed:" + f.name }

// OnBar subscribes fn to delivered bars and returns a cancel func.
func (f *BarFeed) OnBar(fn func(Bar)) func() {
	return f.onBar.Subscribe(fn)
}

// CurrentBar returns the most recently delivered bar, nil before the first
// dispatch.
func (f *BarFeed) CurrentBar() *Bar {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Start primes the lookahead. An empty source is not an error; the feed just
// reports eof immediately.
func (f *BarFeed) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return fmt.Errorf("%s: already started", f)
	}
	f.started = true
	if err := f.advance(); err != nil {
		return fmt.Errorf("%s: prime: %w", f, err)
	}
	return nil
}

func (f *BarFeed) Stop() error { return nil }
func (f *BarFeed) Join() error { return nil }

func (f *BarFeed) Eof() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eof
}

func (f *BarFeed) PeekDateTime() *time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next == nil {
		return nil
	}
	t := f.next.DateTime
	return &t
}

// Dispatch delivers the buffered bar to subscribers and advances the
// lookahead. Subscribers run outside the lock so they may call back into
// CurrentBar.
func (f *BarFeed) Dispatch() (bool, error) {
	f.mu.Lock()
	if f.next == nil {
		f.mu.Unlock()
		return false, nil
	}
	bar := *f.next
	f.last = &bar
	err := f.advance()
	f.mu.Unlock()
	if err != nil {
		return true, fmt.Errorf("%s: %w", f, err)
	}
	f.onBar.Emit(bar)
	return true, nil
}

func (f *BarFeed) DispatchPriority() dispatch.Priority { return f.priority }

func (f *BarFeed) OnDispatcherRegistered(d *dispatch.Dispatcher) {
	f.disp = d
}

// Dispatcher returns the dispatcher the feed is registered with, nil before
// registration.
func (f *BarFeed) Dispatcher() *dispatch.Dispatcher { return f.disp }

// advance requires f.mu held.
func (f *BarFeed) advance() error {
	b, err := f.src.Next()
	if errors.Is(err, io.EOF) {
		f.next = nil
		f.eof = true
		f.logger.Debug("source drained")
		return nil
	}
	if err != nil {
		f.next = nil
		f.eof = true
		return err
	}

	// Sources must be time-ordered; a regression here would corrupt the
	// dispatcher's monotonic clock.
	if f.last != nil && b.DateTime.Before(f.last.DateTime) {
		f.next = nil
		f.eof = true
		return fmt.Errorf("source out of order: %s after %s",
			b.DateTime.Format(time.RFC3339), f.last.DateTime.Format(time.RFC3339))
	}

	f.next = b
	return nil
}
