// Package hub fans out alert and position events to every connected
// situation-room display. Delivery is best-effort and at-most-once per
// registered connection: there is no backlog, and a display that connects
// after an alert fires never sees it.
package hub

import (
	"encoding/json"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Hub manages display connections and broadcasts events.
//
// Concurrency model: a single internal loop goroutine owns the client set.
// Public methods talk to the loop through channels, so registration,
// removal and broadcast never race — an unregister landing mid-broadcast
// simply takes effect before the next event.
type Hub struct {
	log zerolog.Logger

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan []byte
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// clientBuffer is the per-connection send queue. A display that falls this
// far behind starts losing events rather than stalling everyone else.
const clientBuffer = 64

// New creates a hub and starts its event loop.
func New(log zerolog.Logger) *Hub {
	h := &Hub{
		log:           log,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan []byte, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)

	clients := make(map[chan []byte]struct{})

	for {
		select {
		case <-h.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-h.subscribeCh:
			clients[ch] = struct{}{}
			h.log.Debug().Int("clients", len(clients)).Msg("display connected")

		case ch := <-h.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}
			h.log.Debug().Int("clients", len(clients)).Msg("display disconnected")

		case msg := <-h.publishCh:
			for ch := range clients {
				select {
				case ch <- msg:
				default:
					// Client buffer full; drop for this display only.
					h.log.Warn().Msg("display behind, event dropped")
				}
			}

		case resp := <-h.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (h *Hub) Close() {
	if h.closed.CompareAndSwap(false, true) {
		close(h.stopCh)
	}
	<-h.stopped
}

// Subscribe registers a new display connection and returns its channel.
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if h.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case h.subscribeCh <- ch:
	case <-h.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a display connection and closes its channel.
func (h *Hub) Unsubscribe(ch chan []byte) {
	if h.closed.Load() {
		return
	}
	select {
	case h.unsubscribeCh <- ch:
	case <-h.stopped:
	}
}

// ClientCount returns the number of connected displays.
func (h *Hub) ClientCount() int {
	if h.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case h.countReqCh <- resp:
	case <-h.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-h.stopped:
		return 0
	}
}

// Broadcast marshals an event and delivers it to every currently
// registered display. It never fails from the publisher's point of view:
// marshal problems and unreachable displays are logged and swallowed.
func (h *Hub) Broadcast(event any) {
	if h.closed.Load() {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("unmarshalable broadcast event")
		return
	}
	select {
	case h.publishCh <- payload:
	case <-h.stopped:
	}
}
