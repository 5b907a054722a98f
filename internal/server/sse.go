package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/gridq/internal/events"
)

const (
	// eventRingSize is the number of recent events kept for Last-Event-ID replay.
	eventRingSize = 256

	sseKeepaliveInterval = 15 * time.Second
)

type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// EventHub is an events.Publisher that fans dataset events out to SSE
// clients of GET /v1/events/stream and forwards every event to next.
type EventHub struct {
	next events.Publisher

	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	nextID  atomic.Uint64

	ringMu  sync.RWMutex
	ring    [eventRingSize]streamEvent
	ringPos int
	ringLen int
}

type streamClient struct {
	topics []string // NATS-style patterns; empty matches everything
	ch     chan *streamEvent
}

var _ events.Publisher = (*EventHub)(nil)

// NewEventHub returns a hub forwarding to next. A nil next discards.
func NewEventHub(next events.Publisher) *EventHub {
	if next == nil {
		next = &events.NoopPublisher{}
	}
	return &EventHub{
		next:    next,
		clients: make(map[*streamClient]struct{}),
	}
}

// Publish broadcasts event to stream clients, then forwards it.
func (h *EventHub) Publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}
	h.broadcast(topic, payload)
	return h.next.Publish(ctx, topic, event)
}

func (h *EventHub) Close() error {
	return h.next.Close()
}

func (h *EventHub) broadcast(topic string, payload []byte) {
	evt := &streamEvent{ID: h.nextID.Add(1), Topic: topic, Data: payload}

	h.ringMu.Lock()
	h.ring[h.ringPos] = *evt
	h.ringPos = (h.ringPos + 1) % eventRingSize
	if h.ringLen < eventRingSize {
		h.ringLen++
	}
	h.ringMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.matches(topic) {
			continue
		}
		// Slow clients miss events rather than stall the loader.
		select {
		case c.ch <- evt:
		default:
		}
	}
}

func (h *EventHub) subscribe(topics []string) *streamClient {
	c := &streamClient{topics: topics, ch: make(chan *streamEvent, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *EventHub) unsubscribe(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// eventsSince returns buffered events with ID > lastID, oldest first.
func (h *EventHub) eventsSince(lastID uint64) []*streamEvent {
	h.ringMu.RLock()
	defer h.ringMu.RUnlock()

	var out []*streamEvent
	start := (h.ringPos - h.ringLen + eventRingSize) % eventRingSize
	for i := range h.ringLen {
		evt := h.ring[(start+i)%eventRingSize]
		if evt.ID > lastID {
			out = append(out, &evt)
		}
	}
	return out
}

func (c *streamClient) matches(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, p := range c.topics {
		if matchTopicPattern(p, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches a dot-separated topic against a NATS-style
// pattern: "*" is one segment, a trailing ">" is one or more segments.
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")
	for i, pp := range patParts {
		if pp == ">" {
			return i < len(topParts)
		}
		if i >= len(topParts) {
			return false
		}
		if pp != "*" && pp != topParts[i] {
			return false
		}
	}
	return len(patParts) == len(topParts)
}

// handleEventStream handles GET /v1/events/stream.
func (s *QueryServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotFound, "event stream is not enabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	client := s.hub.subscribe(topics)
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if lastID, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
		for _, evt := range s.hub.eventsSince(lastID) {
			if client.matches(evt.Topic) {
				writeStreamEvent(w, evt)
			}
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			writeStreamEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, evt *streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
