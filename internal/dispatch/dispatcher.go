package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahroberts/tickflow/internal/events"
	"github.com/ahroberts/tickflow/internal/log"
	"github.com/ahroberts/tickflow/internal/proc"
)

// Config holds dispatcher construction options.
type Config struct {
	// Hub, when non-nil, receives lifecycle and step events for observers.
	Hub *events.Hub

	// NeverStop makes subject exhaustion terminate the whole process via
	// Proc and re-enter the run loop instead of returning. Operational
	// watchdog policy, not part of the scheduling algorithm.
	NeverStop bool

	// Proc defaults to proc.Self().
	Proc proc.Controller

	Logger *slog.Logger
}

// Dispatcher merges events from multiple subjects, advancing a shared current
// datetime in lockstep and delivering each subject's events in globally
// non-decreasing timestamp order. Registration order breaks ties among
// subjects with equal priority. The dispatch loop itself is single-threaded;
// only CurrentDateTime, Subjects, StopRequested and Stop are safe to call
// from other goroutines while a run is in progress.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger

	mu           sync.Mutex
	subjects     []Subject
	currDateTime *time.Time

	stop    atomic.Bool
	running atomic.Bool

	startSignal Signal
	idleSignal  Signal
}

// New creates a Dispatcher. The zero Config is valid.
func New(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = log.WithComponent("dispatch")
	}
	if cfg.Proc == nil {
		cfg.Proc = proc.Self()
	}
	return &Dispatcher{cfg: cfg, logger: cfg.Logger}
}

// CurrentDateTime returns the datetime of the most recently dispatched step.
// It is nil before the first dispatch, after a run finishes, and in
// pure-realtime runs where no subject carries timestamps.
func (d *Dispatcher) CurrentDateTime() *time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.currDateTime == nil {
		return nil
	}
	t := *d.currDateTime
	return &t
}

func (d *Dispatcher) setCurrentDateTime(t *time.Time) {
	d.mu.Lock()
	if t == nil {
		d.currDateTime = nil
	} else {
		cp := *t
		d.currDateTime = &cp
	}
	d.mu.Unlock()
}

// StartSignal fires exactly once per run, after every subject has started and
// before the first dispatch step.
func (d *Dispatcher) StartSignal() *Signal {
	return &d.startSignal
}

// IdleSignal fires on every step in which no subject delivered an event,
// except the terminal all-exhausted step.
func (d *Dispatcher) IdleSignal() *Signal {
	return &d.idleSignal
}

// Stop requests loop termination. Safe to call from any goroutine, including
// from inside a signal listener or a subject's Dispatch; the current step
// always completes first.
func (d *Dispatcher) Stop() {
	d.stop.Store(true)
}

// StopRequested reports whether Stop has been called during the current run.
func (d *Dispatcher) StopRequested() bool {
	return d.stop.Load()
}

// Running reports whether a run is in progress.
func (d *Dispatcher) Running() bool {
	return d.running.Load()
}

// Subjects returns a copy of the registry in dispatch order.
func (d *Dispatcher) Subjects() []Subject {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.subjects)
}

// AddSubject inserts a subject into the registry keeping priority-ascending
// order with FIFO tie-breaking; PriorityLast subjects always form the tail.
// Adding the same subject twice is a no-op. A nil subject is a registration
// error.
func (d *Dispatcher) AddSubject(s Subject) error {
	if s == nil {
		return fmt.Errorf("add subject: subject is nil")
	}

	d.mu.Lock()
	if slices.Contains(d.subjects, s) {
		d.mu.Unlock()
		return nil
	}

	if s.DispatchPriority() == PriorityLast {
		d.subjects = append(d.subjects, s)
	} else {
		pos := len(d.subjects)
		for i, cur := range d.subjects {
			p := cur.DispatchPriority()
			if p == PriorityLast || s.DispatchPriority() < p {
				pos = i
				break
			}
		}
		d.subjects = slices.Insert(d.subjects, pos, s)
	}
	d.mu.Unlock()

	s.OnDispatcherRegistered(d)
	return nil
}

// dispatchSubject delivers one event from s if its next event is due at curr,
// or unconditionally for realtime subjects (nil peek).
func (d *Dispatcher) dispatchSubject(s Subject, curr *time.Time) (bool, error) {
	if s.Eof() {
		return false, nil
	}
	peek := s.PeekDateTime()
	if peek != nil && (curr == nil || !peek.Equal(*curr)) {
		return false, nil
	}
	return s.Dispatch()
}

// dispatchOnce runs a single step: scan for the smallest pending datetime,
// then dispatch every subject due at it. Reports whether every subject is
// exhausted and whether anything was delivered.
func (d *Dispatcher) dispatchOnce() (eof bool, dispatched bool, err error) {
	subjects := d.Subjects()

	var smallest *time.Time
	eof = true
	for _, s := range subjects {
		if !s.Eof() {
			eof = false
			smallest = minDateTime(smallest, s.PeekDateTime())
		} else if d.cfg.NeverStop {
			d.logger.Info("subject reached eof with never-stop active, terminating process",
				"subject", subjectName(s))
			if terr := d.cfg.Proc.Terminate(); terr != nil {
				d.logger.Error("self-terminate failed", "error", terr)
			}
		}
	}

	if eof {
		return true, false, nil
	}

	// The step datetime must be visible before any subject fires so subjects
	// can read it from within their own Dispatch call.
	d.setCurrentDateTime(smallest)
	d.publish(events.TypeDispatchStep, stepPayload(smallest))

	for _, s := range subjects {
		ok, derr := d.dispatchSubject(s, smallest)
		if derr != nil {
			return false, dispatched, fmt.Errorf("dispatch %s: %w", subjectName(s), derr)
		}
		if ok {
			dispatched = true
		}
	}
	return false, dispatched, nil
}

// Run drives the dispatch loop until every subject is exhausted, Stop is
// called, or ctx is cancelled. Subject faults (errors and panics) are logged
// and converted into loop termination; they never propagate. Teardown (Stop
// then Join across all subjects, collect-and-continue) executes on every exit
// path, and only its failures are returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher is already running")
	}
	d.stop.Store(false)

	d.loop(ctx)

	err := d.teardown()
	d.setCurrentDateTime(nil)
	d.publish(events.TypeDispatchStopped, nil)
	d.running.Store(false)

	if d.cfg.NeverStop && ctx.Err() == nil {
		d.logger.Info("never-stop active, terminating process and re-entering run loop")
		if terr := d.cfg.Proc.Terminate(); terr != nil {
			d.logger.Error("self-terminate failed", "error", terr)
		}
		return d.Run(ctx)
	}
	return err
}

// loop contains everything that may fault: subject startup and the dispatch
// iterations. A panic here is logged and falls through to teardown.
func (d *Dispatcher) loop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic during dispatch, shutting down", "panic", r)
		}
	}()

	for _, s := range d.Subjects() {
		d.logger.Info("starting subject", "subject", subjectName(s))
		if err := s.Start(); err != nil {
			d.logger.Error("subject failed to start", "subject", subjectName(s), "error", err)
			return
		}
	}

	d.publish(events.TypeDispatchStart, map[string]any{"subjects": len(d.Subjects())})
	d.startSignal.Emit()

	for !d.stop.Load() {
		if ctx.Err() != nil {
			d.logger.Info("context cancelled, stopping dispatch")
			return
		}

		eof, dispatched, err := d.dispatchOnce()
		if err != nil {
			d.logger.Error("dispatch step failed", "error", err)
			return
		}

		switch {
		case eof:
			d.logger.Info("all subjects exhausted", "events_dispatched", dispatched)
			d.publish(events.TypeDispatchEOF, nil)
			d.stop.Store(true)
		case !dispatched:
			d.publish(events.TypeDispatchIdle, nil)
			d.idleSignal.Emit()
		}
	}
}

// teardown stops every subject, then joins every subject. One faulty subject
// must not block shutdown of the others, so errors are collected and the
// passes continue.
func (d *Dispatcher) teardown() error {
	subjects := d.Subjects()
	var errs []error

	for _, s := range subjects {
		d.logger.Info("stopping subject", "subject", subjectName(s))
		if err := s.Stop(); err != nil {
			d.logger.Error("subject stop failed", "subject", subjectName(s), "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", subjectName(s), err))
		}
	}
	for _, s := range subjects {
		d.logger.Info("joining subject", "subject", subjectName(s))
		if err := s.Join(); err != nil {
			d.logger.Error("subject join failed", "subject", subjectName(s), "error", err)
			errs = append(errs, fmt.Errorf("join %s: %w", subjectName(s), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) publish(eventType string, data any) {
	if d.cfg.Hub == nil {
		return
	}
	d.cfg.Hub.Publish(eventType, data)
}

func stepPayload(t *time.Time) map[string]any {
	if t == nil {
		return map[string]any{"datetime": nil}
	}
	return map[string]any{"datetime": t.UTC().Format(time.RFC3339Nano)}
}

// minDateTime returns the smaller of a and b, ignoring nils.
func minDateTime(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}

func subjectName(s Subject) string {
	if str, ok := s.(fmt.Stringer); ok {
		return str.String()
	}
	return fmt.Sprintf("%T", s)
}
