// Package dispatch implements the event dispatch core: a deterministic
// k-way merge over independently produced event streams ("subjects"), keyed
// by timestamp and generalized to admit realtime streams with no timestamp.
//
// The dispatcher owns a priority-ordered subject registry and a single
// cooperative run loop. Each iteration scans every live subject for the
// smallest pending datetime, advances the shared current datetime, and
// delivers one event from every subject due at that instant. Registry order
// (priority ascending, FIFO ties, PriorityLast suffix) decides delivery order
// within a tied timestamp only; it never affects which timestamp is chosen.
//
// Lifecycle guarantees:
//   - every subject is started before the start signal fires
//   - the idle signal fires on steps that delivered nothing, never on the
//     terminal all-exhausted step
//   - stop+join runs for every subject on every exit path, including subject
//     faults and panics ("never crash the scheduler")
//
// Error handling:
//   - registration misuse (nil subject) fails fast at AddSubject
//   - subject faults during start/dispatch are logged and end the run
//   - teardown collects errors and continues, so one faulty subject cannot
//     block shutdown of the others
//
// The loop is single-threaded. Subjects may run internal goroutines, but
// Eof/PeekDateTime/Dispatch are always invoked from the dispatch goroutine.
package dispatch
