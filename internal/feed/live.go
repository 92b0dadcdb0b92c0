package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahroberts/tickflow/internal/dispatch"
	"github.com/ahroberts/tickflow/internal/log"
)

// Producer pushes ticks into a live feed until ctx is cancelled. push reports
// whether the tick was accepted (false means the buffer was full and the tick
// was dropped).
type Producer func(ctx context.Context, push func(Tick) bool) error

// TickFeed is a realtime dispatch subject: it never exposes a peek datetime,
// so the dispatcher considers it due on every step. Ticks arrive from a
// background producer (or external Push calls) through a bounded buffer;
// each dispatch delivers at most one tick.
type TickFeed struct {
	name     string
	priority dispatch.Priority
	produce  Producer
	logger   *slog.Logger

	disp   *dispatch.Dispatcher
	buf    chan Tick
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
	closed  atomic.Bool
	dropped atomic.Int64

	onTick Notifier[Tick]
}

// NewTickFeed creates a live feed with the given buffer size. producer may be
// nil when ticks arrive solely via Push. Zero priority defaults to
// PriorityExtraBarFeed so historical bars at the same instant deliver first.
func NewTickFeed(name string, bufSize int, producer Producer, priority dispatch.Priority) *TickFeed {
	if bufSize <= 0 {
		bufSize = 256
	}
	if priority == 0 {
		priority = dispatch.PriorityExtraBarFeed
	}
	return &TickFeed{
		name:     name,
		priority: priority,
		produce:  producer,
		logger:   log.WithSubject("tickfeed:" + name),
		buf:      make(chan Tick, bufSize),
	}
}

func (f *TickFeed) String() string { return "tickfeed:" + f.name }

// OnTick subscribes fn to delivered ticks and returns a cancel func.
func (f *TickFeed) OnTick(fn func(Tick)) func() {
	return f.onTick.Subscribe(fn)
}

// Push offers a tick to the feed. It never blocks; a full buffer drops the
// tick and returns false.
func (f *TickFeed) Push(t Tick) bool {
	if f.closed.Load() {
		return false
	}
	select {
	case f.buf <- t:
		return true
	default:
		f.dropped.Add(1)
		return false
	}
}

// Dropped reports how many ticks were discarded due to a full buffer.
func (f *TickFeed) Dropped() int64 { return f.dropped.Load() }

func (f *TickFeed) Start() error {
	if !f.started.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: already started", f)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	if f.produce != nil {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			defer f.closed.Store(true)
			if err := f.produce(ctx, f.Push); err != nil && ctx.Err() == nil {
				f.logger.Error("producer failed", "error", err)
			}
		}()
	}
	return nil
}

// Stop cancels the producer. Remaining buffered ticks still dispatch before
// the feed reports eof.
func (f *TickFeed) Stop() error {
	if f.cancel != nil {
		f.cancel()
	}
	f.closed.Store(true)
	return nil
}

// Join blocks until the producer goroutine has exited. This is the one
// blocking point of the feed.
func (f *TickFeed) Join() error {
	f.wg.Wait()
	return nil
}

// Eof is permanent once the producer has finished and the buffer is drained.
func (f *TickFeed) Eof() bool {
	return f.closed.Load() && len(f.buf) == 0
}

// PeekDateTime always returns nil: a live feed is eligible on every step.
func (f *TickFeed) PeekDateTime() *time.Time { return nil }

func (f *TickFeed) Dispatch() (bool, error) {
	select {
	case t := <-f.buf:
		f.onTick.Emit(t)
		return true, nil
	default:
		return false, nil
	}
}

func (f *TickFeed) DispatchPriority() dispatch.Priority { return f.priority }

func (f *TickFeed) OnDispatcherRegistered(d *dispatch.Dispatcher) {
	f.disp = d
}
