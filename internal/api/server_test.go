package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ahroberts/tickflow/internal/dispatch"
	"github.com/ahroberts/tickflow/internal/events"
	"github.com/ahroberts/tickflow/internal/feed"
	"github.com/ahroberts/tickflow/internal/log"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR")
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*Server, *dispatch.Dispatcher, *events.Hub) {
	t.Helper()

	hub := events.NewHub(16)
	d := dispatch.New(dispatch.Config{Hub: hub})

	src, err := feed.NewSliceSource([]feed.Bar{{
		Symbol:   "SPY",
		DateTime: time.Date(2024, 3, 1, 9, 1, 0, 0, time.UTC),
		Open:     10, High: 11, Low: 9, Close: 10, Volume: 100,
	}})
	if err != nil {
		t.Fatalf("NewSliceSource: %v", err)
	}
	if err := d.AddSubject(feed.NewBarFeed("spy", src, 0)); err != nil {
		t.Fatalf("AddSubject: %v", err)
	}

	s := New(Config{Listen: "127.0.0.1:0", APIKey: "sekrit"}, d, hub, log.WithComponent("api"))
	return s, d, hub
}

func get(t *testing.T, s *Server, path, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHealthzNoAuth(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	rec := get(t, s, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}

	var resp HealthzResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Running {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestStatusRequiresAuth(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	if rec := get(t, s, "/v1/status", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status=%d, want 401", rec.Code)
	}
	if rec := get(t, s, "/v1/status", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status=%d, want 401", rec.Code)
	}
	if rec := get(t, s, "/v1/status", "sekrit"); rec.Code != http.StatusOK {
		t.Fatalf("good token: status=%d, want 200", rec.Code)
	}
}

func TestStatusReportsDispatcherState(t *testing.T) {
	t.Parallel()

	s, _, hub := newTestServer(t)
	hub.Publish(events.TypeDispatchStart, nil)

	rec := get(t, s, "/v1/status", "sekrit")
	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Running || resp.StopRequested {
		t.Fatalf("dispatcher should be idle: %+v", resp)
	}
	if resp.Subjects != 1 {
		t.Fatalf("subjects=%d, want 1", resp.Subjects)
	}
	if resp.LastEventID != 1 {
		t.Fatalf("last_event_id=%d, want 1", resp.LastEventID)
	}
}

func TestSubjectsListsRegistered(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	rec := get(t, s, "/v1/subjects", "sekrit")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}

	var resp SubjectsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Subjects) != 1 {
		t.Fatalf("got %d subjects, want 1", len(resp.Subjects))
	}
	got := resp.Subjects[0]
	if got.Name != "barfeed:spy" {
		t.Fatalf("name=%q", got.Name)
	}
	if got.Priority != int(dispatch.PriorityBarFeed) {
		t.Fatalf("priority=%d", got.Priority)
	}
}

func TestSubjectsDuringRun(t *testing.T) {
	t.Parallel()

	hub := events.NewHub(16)
	d := dispatch.New(dispatch.Config{Hub: hub})

	bars := make([]feed.Bar, 5000)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = feed.Bar{
			Symbol:   "SPY",
			DateTime: base.Add(time.Duration(i) * time.Second),
			Open:     10, High: 11, Low: 9, Close: 10, Volume: 100,
		}
	}
	src, err := feed.NewSliceSource(bars)
	if err != nil {
		t.Fatalf("NewSliceSource: %v", err)
	}
	if err := d.AddSubject(feed.NewBarFeed("spy", src, 0)); err != nil {
		t.Fatalf("AddSubject: %v", err)
	}

	s := New(Config{Listen: "127.0.0.1:0", APIKey: "sekrit"}, d, hub, log.WithComponent("api"))

	runDone := make(chan error, 1)
	go func() { runDone <- d.Run(context.Background()) }()

	// Poll the subject table for the whole run, like the watch TUI does.
	for {
		rec := get(t, s, "/v1/subjects", "sekrit")
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d, want 200", rec.Code)
		}
		var resp SubjectsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Subjects) != 1 {
			t.Fatalf("got %d subjects, want 1", len(resp.Subjects))
		}
		if resp.Subjects[0].Eof {
			break
		}
	}

	if err := <-runDone; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestStopRequestsDispatcherStop(t *testing.T) {
	t.Parallel()

	s, d, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/stop", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status=%d, want 202", rec.Code)
	}
	if !d.StopRequested() {
		t.Fatal("dispatcher stop not requested")
	}
}

func TestEventsStreamsSnapshot(t *testing.T) {
	t.Parallel()

	s, _, hub := newTestServer(t)
	hub.Publish(events.TypeDispatchStart, nil)
	hub.Publish(events.TypeDispatchStep, map[string]any{"datetime": "2024-03-01T09:01:00Z"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "id: 1") || !strings.Contains(body, "id: 2") {
		t.Fatalf("snapshot missing events:\n%s", body)
	}
	if !strings.Contains(body, "event: "+events.TypeDispatchStep) {
		t.Fatalf("step event missing:\n%s", body)
	}
	if !strings.Contains(body, "2024-03-01T09:01:00Z") {
		t.Fatalf("payload missing:\n%s", body)
	}
}

func TestEventsLivePublishNotLostOrDuplicated(t *testing.T) {
	t.Parallel()

	s, _, hub := newTestServer(t)
	hub.Publish(events.TypeDispatchStart, nil)
	hub.Publish(events.TypeDispatchStep, map[string]any{"datetime": "2024-03-01T09:01:00Z"})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Routes().ServeHTTP(rec, req)
	}()

	// Publish while the stream is open: the event must reach the client
	// exactly once whether it arrives via the snapshot or the live channel.
	time.Sleep(50 * time.Millisecond)
	hub.Publish(events.TypeDispatchIdle, nil)
	<-done

	body := rec.Body.String()
	for _, id := range []string{"id: 1\n", "id: 2\n", "id: 3\n"} {
		if n := strings.Count(body, id); n != 1 {
			t.Fatalf("%q appeared %d times, want 1:\n%s", strings.TrimSpace(id), n, body)
		}
	}
}

func TestEventsResumeWithLastEventID(t *testing.T) {
	t.Parallel()

	s, _, hub := newTestServer(t)
	hub.Publish(events.TypeDispatchStart, nil)
	hub.Publish(events.TypeDispatchIdle, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer sekrit")
	req.Header.Set("Last-Event-ID", "1")
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, "id: 1\n") {
		t.Fatalf("replayed already-seen event:\n%s", body)
	}
	if !strings.Contains(body, "id: 2\n") {
		t.Fatalf("missing newer event:\n%s", body)
	}
}
