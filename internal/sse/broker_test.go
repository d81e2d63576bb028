package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/index"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "note.created", Data: map[string]string{"path": "a.org"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: note.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.org"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishNoteEvent_GraphThrottle(t *testing.T) {
	b := NewBroker(500*time.Millisecond, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger graph.updated.
	b.PublishNoteEvent("created", "a.org")
	// Second event immediately should NOT trigger another graph.updated.
	b.PublishNoteEvent("updated", "b.org")

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	graphCount := 0
	noteCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "graph.updated") {
				graphCount++
			} else {
				noteCount++
			}
		default:
			break loop
		}
	}

	if noteCount != 2 {
		t.Errorf("note events = %d, want 2", noteCount)
	}
	if graphCount != 1 {
		t.Errorf("graph events = %d, want 1 (throttled)", graphCount)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "note.updated", Data: map[string]string{"path": "x.org"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "note.updated", Data: map[string]string{"path": "x.org"}})
	b.PublishNoteEvent("updated", "x.org")
}

func TestPublishNoteEvent_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Hour, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("renamed", "a.org")
	b.PublishNoteEvent("deleted", "b.org")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: "+EventNoteDeleted) || !strings.Contains(s, `"path":"b.org"`) {
			t.Errorf("first message = %q, want the delete event", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSSEHandler_Heartbeat(t *testing.T) {
	b := NewBroker(time.Second, 20*time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	b.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), ": ping\n\n") {
		t.Errorf("no heartbeat in %q", w.Body.String())
	}
}

func TestSubscribeFrom_Replay(t *testing.T) {
	b := NewBroker(time.Hour, 0)
	defer b.Close()
	first := b.Subscribe()
	defer b.Unsubscribe(first)

	for _, p := range []string{"a.org", "b.org", "c.org"} {
		b.Publish(Event{Type: EventNoteUpdated, Data: NoteEvent{Path: p}})
	}
	for i := 0; i < 3; i++ {
		<-first
	}

	late := b.SubscribeFrom(1)
	defer b.Unsubscribe(late)
	for _, want := range []string{"id: 2\n", "id: 3\n"} {
		select {
		case msg := <-late:
			if !strings.HasPrefix(string(msg), want) {
				t.Errorf("replayed %q, want prefix %q", msg, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for replay of %q", want)
		}
	}
}

func TestSubscribeFrom_Resync(t *testing.T) {
	b := NewBroker(time.Hour, 0)
	defer b.Close()

	b.Publish(Event{Type: EventNoteUpdated, Data: NoteEvent{Path: "a.org"}})
	ch := b.SubscribeFrom(99)
	defer b.Unsubscribe(ch)

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: "+EventResync) {
			t.Errorf("got %q, want a resync event", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for resync")
	}
}

func TestPublishNoteEvent_TrailingGraphUpdate(t *testing.T) {
	b := NewBroker(100*time.Millisecond, 0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent(index.ChangeCreated, "a.org")
	b.PublishNoteEvent(index.ChangeUpdated, "a.org")
	b.PublishNoteEvent(index.ChangeUpdated, "a.org")

	graphCount := 0
	deadline := time.After(400 * time.Millisecond)
loop:
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), "event: "+EventGraphUpdated) {
				graphCount++
			}
		case <-deadline:
			break loop
		}
	}
	if graphCount != 2 {
		t.Errorf("graph events = %d, want leading and trailing", graphCount)
	}
}

func TestSSEHandler_LastEventID(t *testing.T) {
	b := NewBroker(time.Hour, 0)
	defer b.Close()
	probe := b.Subscribe()
	b.Publish(Event{Type: EventNoteCreated, Data: NoteEvent{Path: "a.org"}})
	b.Publish(Event{Type: EventNoteCreated, Data: NoteEvent{Path: "b.org"}})
	<-probe
	<-probe
	b.Unsubscribe(probe)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	w := httptest.NewRecorder()

	b.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: ") {
		t.Errorf("missing retry hint in %q", body)
	}
	if strings.Contains(body, `"path":"a.org"`) || !strings.Contains(body, "id: 2\n") {
		t.Errorf("replay = %q, want only event 2", body)
	}
}
