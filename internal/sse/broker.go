// Package sse implements a Server-Sent Events broker for real-time note updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/notely/internal/identity"
)

// Event represents an SSE event to deliver.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ownedEvent with an empty owner goes to every client.
type ownedEvent struct {
	owner string
	event Event
}

type noteEventReq struct {
	kind  string
	owner string
	id    string
}

type subscriber struct {
	owner string
	ch    chan []byte
}

// Broker manages SSE client connections and delivers events to the
// subscribers of the owner they concern.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + per-owner tag throttle timestamps). Public methods communicate with
// this loop through channels, so no mutexes are required.
type Broker struct {
	tagsMin time.Duration

	subscribeCh   chan subscriber
	unsubscribeCh chan chan []byte
	publishCh     chan ownedEvent
	noteEventCh   chan noteEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. tagsThrottle bounds how often a
// tags.updated event is sent to one owner.
func NewBroker(tagsThrottle time.Duration) *Broker {
	if tagsThrottle <= 0 {
		tagsThrottle = 2 * time.Second
	}

	b := &Broker{
		tagsMin:       tagsThrottle,
		subscribeCh:   make(chan subscriber),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan ownedEvent, 256),
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

	clients := make(map[chan []byte]string)
	lastTags := make(map[string]time.Time)

	deliver := func(owner string, event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, o := range clients {
			if owner != "" && o != owner {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
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
			clients[sub.ch] = sub.owner

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case oe := <-b.publishCh:
			deliver(oe.owner, oe.event)

		case req := <-b.noteEventCh:
			data := map[string]string{"id": req.id}
			switch req.kind {
			case "created":
				deliver(req.owner, Event{Type: "note.created", Data: data})
			case "updated":
				deliver(req.owner, Event{Type: "note.updated", Data: data})
			case "deleted":
				deliver(req.owner, Event{Type: "note.deleted", Data: data})
			}

			now := time.Now()
			if now.Sub(lastTags[req.owner]) >= b.tagsMin {
				lastTags[req.owner] = now
				deliver(req.owner, Event{Type: "tags.updated", Data: map[string]string{}})
			}

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

// Subscribe adds a client for owner and returns its channel.
func (b *Broker) Subscribe(owner string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscriber{owner: owner, ch: ch}:
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

// Publish sends an event to owner's connected clients.
func (b *Broker) Publish(owner string, event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ownedEvent{owner: owner, event: event}:
	case <-b.stopped:
	}
}

// Broadcast sends an event to every connected client regardless of owner.
func (b *Broker) Broadcast(event Event) {
	b.Publish("", event)
}

// PublishNoteEvent publishes a note change and a throttled tags.updated
// event to the note owner's clients. Its signature matches
// noteservice.EventFunc.
func (b *Broker) PublishNoteEvent(kind, owner, noteID string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.noteEventCh <- noteEventReq{kind: kind, owner: owner, id: noteID}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). It must run
// behind the auth middleware, which puts the caller in the context.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(user.ID)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
