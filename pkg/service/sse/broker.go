package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const defaultHeartbeat = 25 * time.Second

/*
Broker fans tool-call events out to every connected /events client. Each
event is written as a named SSE message:

event: <name>
data: {json}
*/
type Broker struct {
	mu        sync.RWMutex
	clients   map[chan []byte]struct{}
	closed    bool
	heartbeat time.Duration
}

/*
NewBroker creates a broker. A non-positive heartbeat uses the default, which
keeps idle connections open through proxies.
*/
func NewBroker(heartbeat time.Duration) *Broker {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	return &Broker{
		clients:   make(map[chan []byte]struct{}),
		heartbeat: heartbeat,
	}
}

// ErrClosed is returned by Join once the broker has been closed.
var ErrClosed = errors.New("event broker closed")

/*
Join registers a subscriber. The returned channel yields framed SSE messages
and is closed when the broker closes or leave is called.
*/
func (broker *Broker) Join() (<-chan []byte, func(), error) {
	ch := make(chan []byte, 16)

	broker.mu.Lock()
	defer broker.mu.Unlock()

	if broker.closed {
		return nil, nil, ErrClosed
	}

	broker.clients[ch] = struct{}{}

	return ch, func() { broker.remove(ch) }, nil
}

/*
Subscribe serves the event stream over net/http and blocks until the client
disconnects or the broker closes.
*/
func (broker *Broker) Subscribe(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)

	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, leave, err := broker.Join()

	if err != nil {
		http.Error(w, err.Error(), http.StatusGone)
		return
	}

	defer leave()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	_ = broker.pump(r.Context().Done(), ch, func(b []byte) error {
		if _, err := w.Write(b); err != nil {
			return err
		}

		flusher.Flush()
		return nil
	})
}

/*
pump writes the connected comment followed by messages and heartbeats until
the client goes away or the broker closes.
*/
func (broker *Broker) pump(done <-chan struct{}, ch <-chan []byte, write func([]byte) error) error {
	if err := write([]byte(": connected\n\n")); err != nil {
		return err
	}

	ticker := time.NewTicker(broker.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case msg, open := <-ch:
			if !open {
				return nil
			}

			if err := write(msg); err != nil {
				return err
			}
		case <-ticker.C:
			if err := write([]byte(": heartbeat\n\n")); err != nil {
				return err
			}
		}
	}
}

/*
Broadcast marshals v and queues it for every client. A client whose queue is
full misses the event instead of stalling the tool call that produced it.
*/
func (broker *Broker) Broadcast(name string, v any) error {
	data, err := json.Marshal(v)

	if err != nil {
		return err
	}

	msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", name, data))

	broker.mu.RLock()
	defer broker.mu.RUnlock()

	if broker.closed {
		return nil
	}

	for ch := range broker.clients {
		select {
		case ch <- msg:
		default:
			log.Debug("dropping event for slow client", "event", name)
		}
	}

	return nil
}

// Clients returns the number of connected subscribers.
func (broker *Broker) Clients() int {
	broker.mu.RLock()
	defer broker.mu.RUnlock()

	return len(broker.clients)
}

/*
Close disconnects all clients and refuses further subscriptions.
*/
func (broker *Broker) Close() {
	broker.mu.Lock()
	defer broker.mu.Unlock()

	if broker.closed {
		return
	}

	broker.closed = true

	for ch := range broker.clients {
		close(ch)
	}

	broker.clients = map[chan []byte]struct{}{}
}

func (broker *Broker) remove(ch chan []byte) {
	broker.mu.Lock()
	defer broker.mu.Unlock()

	if _, ok := broker.clients[ch]; ok {
		delete(broker.clients, ch)
		close(ch)
	}
}
