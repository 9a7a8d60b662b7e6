// Package hub streams events to HTTP clients as server-sent events.
//
// Each message is written as a named SSE event with a sequence id:
//
//	id: 7
//	event: relation_added
//	data: {"type":"relation_added","edition":"uuid:..."}
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	clientBuffer      = 64
	broadcastBuffer   = 256
	defaultKeepAlive  = 30 * time.Second
	streamUnavailable = "event stream closed"
)

// message is an event queued for fan-out
type message struct {
	name string
	data any
}

type subscriber struct {
	id    string
	queue chan []byte
}

// Hub fans events out to every connected SSE client
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	seq         uint64

	joins    chan *subscriber
	leaves   chan *subscriber
	messages chan message
	stopped  chan struct{}

	keepAlive time.Duration
	logger    *slog.Logger
}

// New creates a hub. Call Run to start delivering events.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		joins:       make(chan *subscriber),
		leaves:      make(chan *subscriber),
		messages:    make(chan message, broadcastBuffer),
		stopped:     make(chan struct{}),
		keepAlive:   defaultKeepAlive,
		logger:      logger,
	}
}

// Run delivers events until ctx is done, then ends every open stream
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			h.dropAll()
			return
		case s := <-h.joins:
			h.join(s)
		case s := <-h.leaves:
			h.leave(s)
		case m := <-h.messages:
			h.fanOut(m)
		}
	}
}

// Broadcast queues data as an SSE event called name. The event is dropped
// when the queue is full.
func (h *Hub) Broadcast(name string, data any) {
	select {
	case h.messages <- message{name: name, data: data}:
	default:
		h.logger.Warn("event queue full, dropping event", "event", name)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) join(s *subscriber) {
	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	n := len(h.subscribers)
	h.mu.Unlock()
	h.logger.Debug("event client connected", "client", s.id, "clients", n)
}

func (h *Hub) leave(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[s]; ok {
		delete(h.subscribers, s)
		close(s.queue)
	}
	n := len(h.subscribers)
	h.mu.Unlock()
	h.logger.Debug("event client disconnected", "client", s.id, "clients", n)
}

func (h *Hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subscribers {
		delete(h.subscribers, s)
		close(s.queue)
	}
}

func (h *Hub) fanOut(m message) {
	h.seq++
	frame, err := encodeFrame(h.seq, m)
	if err != nil {
		h.logger.Warn("failed to encode event", "event", m.name, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subscribers {
		select {
		case s.queue <- frame:
		default:
			h.logger.Debug("event client is behind, skipping event", "client", s.id, "event", m.name)
		}
	}
}

func encodeFrame(seq uint64, m message) ([]byte, error) {
	data, err := json.Marshal(m.data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "id: %d\n", seq)
	if m.name != "" {
		fmt.Fprintf(&buf, "event: %s\n", m.name)
	}
	fmt.Fprintf(&buf, "data: %s\n\n", data)
	return buf.Bytes(), nil
}

// ServeHTTP streams events to one client until it disconnects or the hub stops
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	s := &subscriber{id: uuid.NewString(), queue: make(chan []byte, clientBuffer)}

	select {
	case h.joins <- s:
	case <-h.stopped:
		http.Error(w, streamUnavailable, http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.leaves <- s:
		case <-h.stopped:
		}
	}()

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case frame, open := <-s.queue:
			if !open {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
		flusher.Flush()
	}
}
