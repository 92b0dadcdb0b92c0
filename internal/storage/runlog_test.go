package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunStoreBeginFinishGet(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	s := NewRunStore(db)
	ctx := context.Background()

	id, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if id == "" {
		t.Fatal("Begin returned empty id")
	}

	open, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get open run: %v", err)
	}
	if open.FinishedAt != nil {
		t.Fatalf("open run already finished: %v", open.FinishedAt)
	}
	if open.StartedAt.IsZero() {
		t.Fatal("started_at not recorded")
	}

	last := time.Date(2024, 3, 1, 9, 3, 0, 0, time.UTC)
	err = s.Finish(ctx, id, RunStats{
		Bars:        5,
		Ticks:       2,
		Fills:       1,
		LastEventAt: &last,
		Err:         errors.New("feed fault"),
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	done, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get finished run: %v", err)
	}
	if done.FinishedAt == nil {
		t.Fatal("finished_at not recorded")
	}
	if done.Bars != 5 || done.Ticks != 2 || done.Fills != 1 {
		t.Fatalf("stats not recorded: %+v", done)
	}
	if done.LastEventAt == nil || !done.LastEventAt.Equal(last) {
		t.Fatalf("last_event_at=%v, want %v", done.LastEventAt, last)
	}
	if done.Error != "feed fault" {
		t.Fatalf("error=%q, want %q", done.Error, "feed fault")
	}
}

func TestRunStoreFinishCleanRun(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	s := NewRunStore(db)
	ctx := context.Background()

	id, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.Finish(ctx, id, RunStats{Bars: 3}); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	r, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.Error != "" {
		t.Fatalf("clean run recorded error %q", r.Error)
	}
	if r.LastEventAt != nil {
		t.Fatalf("clean run recorded last_event_at %v", r.LastEventAt)
	}
}

func TestRunStoreFinishUnknownRun(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	s := NewRunStore(db)

	err := s.Finish(context.Background(), "no-such-run", RunStats{})
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}
