// Package sse implements a Server-Sent Events broker for real-time vault
// updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/starford/ansuz/internal/index"
)

// Event types.
const (
	EventNoteCreated  = "note.created"
	EventNoteUpdated  = "note.updated"
	EventNoteDeleted  = "note.deleted"
	EventGraphUpdated = "graph.updated"
	// EventResync tells a reconnecting client that events were lost and it
	// should reload its state.
	EventResync = "resync"
)

// backlogSize is the number of recent events kept for replay to clients that
// reconnect with a Last-Event-ID header. It matches the client buffer.
const backlogSize = 64

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NoteEvent is the payload of the note.* events.
type NoteEvent struct {
	Path string `json:"path"`
}

var noteEventTypes = map[string]string{
	index.ChangeCreated: EventNoteCreated,
	index.ChangeUpdated: EventNoteUpdated,
	index.ChangeDeleted: EventNoteDeleted,
}

type noteEventReq struct {
	kind string
	path string
}

type subscription struct {
	ch chan []byte
	// after is the last event id the client saw; 0 means a fresh client.
	after uint64
}

type sent struct {
	id  uint64
	raw []byte
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + graph throttle timestamp). Public methods communicate with this loop
// through channels, so no mutexes are required.
type Broker struct {
	graphMin  time.Duration
	heartbeat time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	noteEventCh   chan noteEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given graph throttle interval.
// Connected clients receive a comment line every heartbeat so idle proxies
// keep the stream open; zero means 30s.
func NewBroker(graphThrottle, heartbeat time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		heartbeat:     heartbeat,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		noteEventCh:   make(chan noteEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq          uint64
		backlog      []sent
		lastGraph    time.Time
		graphDue     <-chan time.Time
		graphPending bool
	)

	frame := func(event Event, id uint64) []byte {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return nil
		}
		if id == 0 {
			return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
		}
		return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, event.Type, payload))
	}

	broadcast := func(event Event) {
		raw := frame(event, seq+1)
		if raw == nil {
			return
		}
		seq++
		backlog = append(backlog, sent{id: seq, raw: raw})
		if len(backlog) > backlogSize {
			backlog = backlog[len(backlog)-backlogSize:]
		}

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	graphUpdated := func() {
		lastGraph = time.Now()
		graphPending = false
		broadcast(Event{Type: EventGraphUpdated, Data: map[string]string{}})
	}

	replay := func(sub subscription) {
		if sub.after == 0 || sub.after == seq {
			return
		}
		if sub.after > seq || len(backlog) == 0 || backlog[0].id > sub.after+1 {
			// Ids from another broker run, or the gap left the backlog.
			select {
			case sub.ch <- frame(Event{Type: EventResync, Data: map[string]string{}}, 0):
			default:
			}
			return
		}
		for _, e := range backlog {
			if e.id <= sub.after {
				continue
			}
			select {
			case sub.ch <- e.raw:
			default:
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = struct{}{}
			replay(sub)

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.noteEventCh:
			typ, ok := noteEventTypes[req.kind]
			if !ok {
				continue
			}
			broadcast(Event{Type: typ, Data: NoteEvent{Path: req.path}})

			// Leading edge now, trailing edge once the window closes.
			if wait := b.graphMin - time.Since(lastGraph); wait <= 0 {
				graphUpdated()
			} else if !graphPending {
				graphPending = true
				graphDue = time.After(wait)
			}

		case <-graphDue:
			graphDue = nil
			graphUpdated()

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeFrom(0)
}

// SubscribeFrom adds a client that last saw event lastID. Buffered events
// after it are queued on the returned channel first; when they are no longer
// buffered the client gets a single resync event instead.
func (b *Broker) SubscribeFrom(lastID uint64) chan []byte {
	ch := make(chan []byte, backlogSize)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, after: lastID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent publishes a note change and a throttled graph.updated event.
// kind is one of the index.Change kinds; other kinds are ignored. It has the
// signature of index.EventCallback.
func (b *Broker) PublishNoteEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.noteEventCh <- noteEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// retryMillis is the reconnect delay suggested to EventSource clients.
const retryMillis = 3000

// ServeHTTP is the SSE endpoint handler (GET /api/events). Clients that
// reconnect with Last-Event-ID get the events they missed.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	ch := b.SubscribeFrom(lastID)
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
