package events

import (
	"testing"
	"time"
)

func TestHubPublishSubscribe(t *testing.T) {
	t.Parallel()

	h := NewHub(16)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(TypeDispatchStart, map[string]any{"subjects": 2})

	select {
	case ev := <-ch:
		if ev.Type != TypeDispatchStart {
			t.Fatalf("unexpected type %q", ev.Type)
		}
		if ev.ID != 1 {
			t.Fatalf("expected ID 1, got %d", ev.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHubSnapshotSince(t *testing.T) {
	t.Parallel()

	h := NewHub(4)
	for i := 0; i < 6; i++ {
		h.Publish(TypeDispatchStep, nil)
	}

	// Ring capacity 4, so IDs 3..6 remain.
	all := h.SnapshotSince(0)
	if len(all) != 4 {
		t.Fatalf("expected 4 buffered events, got %d", len(all))
	}
	if all[0].ID != 3 || all[3].ID != 6 {
		t.Fatalf("unexpected window: first=%d last=%d", all[0].ID, all[3].ID)
	}

	tail := h.SnapshotSince(5)
	if len(tail) != 1 || tail[0].ID != 6 {
		t.Fatalf("unexpected tail: %#v", tail)
	}

	if h.LastID() != 6 {
		t.Fatalf("expected LastID 6, got %d", h.LastID())
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	h := NewHub(8)
	_, cancel := h.Subscribe()
	defer cancel()

	// Subscriber buffer is 128; overflow must not deadlock Publish.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			h.Publish(TypeDispatchIdle, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}
