package dispatch

import (
	"math"
	"time"
)

//go:generate mockgen -destination=mocks/mock_subject.go -package=mocks github.com/ahroberts/tickflow/internal/dispatch Subject

// Priority orders delivery among subjects that share a timestamp. Lower
// values dispatch first. PriorityLast is a sentinel: subjects carrying it
// always dispatch after every prioritized subject, in registration order.
type Priority int

const (
	PriorityBarFeed      Priority = 100
	PriorityExtraBarFeed Priority = 150
	PriorityLast         Priority = math.MaxInt
)

// Subject is an independent source of timed or realtime events driven by the
// Dispatcher. Implementations are free to run background goroutines as long
// as Eof, PeekDateTime and Dispatch are safe to call from the dispatch
// goroutine and reflect current state.
type Subject interface {
	// Start is called once per run, before the start signal fires.
	Start() error

	// Stop requests shutdown. It is always followed by Join.
	Stop() error

	// Join blocks until the subject's internal activity has fully quiesced.
	Join() error

	// Eof reports whether the subject has no further events. It is permanent
	// for historical sources.
	Eof() bool

	// PeekDateTime returns the timestamp of the next pending event, or nil
	// for realtime sources that are eligible on every step.
	PeekDateTime() *time.Time

	// Dispatch delivers at most one pending unit of work and reports whether
	// anything was actually delivered.
	Dispatch() (bool, error)

	// DispatchPriority is consulted once, at registration time.
	DispatchPriority() Priority

	// OnDispatcherRegistered notifies the subject it has been added, passing
	// the dispatcher so the subject may later query the current datetime.
	OnDispatcherRegistered(d *Dispatcher)
}
