package feed

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/ahroberts/tickflow/internal/dispatch"
	"github.com/ahroberts/tickflow/internal/log"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR")
	os.Exit(m.Run())
}

func bar(minute int, close float64) Bar {
	return Bar{
		Symbol:   "SPY",
		DateTime: time.Date(2024, 3, 1, 9, minute, 0, 0, time.UTC),
		Open:     close,
		High:     close + 1,
		Low:      close - 1,
		Close:    close,
		Volume:   100,
	}
}

func TestSliceSourceSortsAndValidates(t *testing.T) {
	t.Parallel()

	src, err := NewSliceSource([]Bar{bar(3, 10), bar(1, 11), bar(2, 12)})
	if err != nil {
		t.Fatalf("NewSliceSource: %v", err)
	}

	var minutes []int
	for {
		b, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		minutes = append(minutes, b.DateTime.Minute())
	}
	if len(minutes) != 3 || minutes[0] != 1 || minutes[1] != 2 || minutes[2] != 3 {
		t.Fatalf("bars out of order: %v", minutes)
	}

	bad := bar(1, 10)
	bad.Low = bad.High + 5
	if _, err := NewSliceSource([]Bar{bad}); err == nil {
		t.Fatal("expected validation error for inverted range")
	}
}

func TestBarFeedPeekAndDispatch(t *testing.T) {
	t.Parallel()

	src, _ := NewSliceSource([]Bar{bar(1, 10), bar(2, 11)})
	f := NewBarFeed("SPY", src, 0)

	var got []Bar
	f.OnBar(func(b Bar) { got = append(got, b) })

	if err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	peek := f.PeekDateTime()
	if peek == nil || peek.Minute() != 1 {
		t.Fatalf("unexpected peek %v", peek)
	}

	ok, err := f.Dispatch()
	if err != nil || !ok {
		t.Fatalf("Dispatch: ok=%v err=%v", ok, err)
	}
	if f.CurrentBar() == nil || f.CurrentBar().Close != 10 {
		t.Fatalf("unexpected current bar %+v", f.CurrentBar())
	}

	ok, err = f.Dispatch()
	if err != nil || !ok {
		t.Fatalf("Dispatch 2: ok=%v err=%v", ok, err)
	}
	if !f.Eof() {
		t.Fatal("feed should be exhausted")
	}
	if ok, _ := f.Dispatch(); ok {
		t.Fatal("dispatch after eof delivered something")
	}

	if len(got) != 2 || got[0].Close != 10 || got[1].Close != 11 {
		t.Fatalf("subscriber saw %v", got)
	}
}

func TestBarFeedEmptySourceIsEofNotError(t *testing.T) {
	t.Parallel()

	src, _ := NewSliceSource(nil)
	f := NewBarFeed("SPY", src, 0)
	if err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !f.Eof() {
		t.Fatal("empty feed should report eof after start")
	}
}

type brokenSource struct{ calls int }

func (s *brokenSource) Next() (*Bar, error) {
	s.calls++
	if s.calls == 1 {
		b := bar(1, 10)
		return &b, nil
	}
	return nil, errors.New("disk on fire")
}

func TestBarFeedSourceErrorSurfacesOnDispatch(t *testing.T) {
	t.Parallel()

	f := NewBarFeed("SPY", &brokenSource{}, 0)
	if err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ok, err := f.Dispatch()
	if !ok {
		t.Fatal("the buffered bar should still have been delivered")
	}
	if err == nil {
		t.Fatal("expected source error to surface")
	}
	if !f.Eof() {
		t.Fatal("feed should be terminally exhausted after a source error")
	}
}

type regressingSource struct{ calls int }

func (s *regressingSource) Next() (*Bar, error) {
	s.calls++
	switch s.calls {
	case 1:
		b := bar(5, 10)
		return &b, nil
	case 2:
		b := bar(1, 11) // goes back in time
		return &b, nil
	default:
		return nil, io.EOF
	}
}

func TestBarFeedRejectsOutOfOrderSource(t *testing.T) {
	t.Parallel()

	f := NewBarFeed("SPY", &regressingSource{}, 0)
	if err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.Dispatch(); err == nil {
		t.Fatal("expected out-of-order source to be rejected")
	}
}

func TestBarFeedConcurrentObservation(t *testing.T) {
	t.Parallel()

	bars := make([]Bar, 5000)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = Bar{
			Symbol:   "SPY",
			DateTime: base.Add(time.Duration(i) * time.Second),
			Open:     10, High: 11, Low: 9, Close: 10,
			Volume: 100,
		}
	}
	src, err := NewSliceSource(bars)
	if err != nil {
		t.Fatalf("NewSliceSource: %v", err)
	}
	f := NewBarFeed("SPY", src, 0)

	d := dispatch.New(dispatch.Config{})
	if err := d.AddSubject(f); err != nil {
		t.Fatalf("AddSubject: %v", err)
	}

	// Read the observation surface from another goroutine for the whole run,
	// the way the status API does while the dispatch loop advances the feed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for !f.Eof() {
			if dt := f.PeekDateTime(); dt != nil && dt.Before(base) {
				t.Errorf("peek went before the stream start: %v", dt)
				return
			}
			f.CurrentBar()
		}
	}()

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	<-done

	if !f.Eof() {
		t.Fatal("feed should be exhausted after the run")
	}
}

func TestBarFeedThroughDispatcher(t *testing.T) {
	t.Parallel()

	srcA, _ := NewSliceSource([]Bar{bar(1, 10), bar(3, 12)})
	srcB, _ := NewSliceSource([]Bar{bar(2, 20)})
	a := NewBarFeed("A", srcA, 0)
	b := NewBarFeed("B", srcB, 0)

	d := dispatch.New(dispatch.Config{})
	if err := d.AddSubject(a); err != nil {
		t.Fatalf("AddSubject: %v", err)
	}
	if err := d.AddSubject(b); err != nil {
		t.Fatalf("AddSubject: %v", err)
	}

	var minutes []int
	record := func(bb Bar) { minutes = append(minutes, bb.DateTime.Minute()) }
	a.OnBar(record)
	b.OnBar(record)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []int{1, 2, 3}
	if len(minutes) != len(want) {
		t.Fatalf("delivered %v, want %v", minutes, want)
	}
	for i := range want {
		if minutes[i] != want[i] {
			t.Fatalf("delivered %v, want %v", minutes, want)
		}
	}
}
