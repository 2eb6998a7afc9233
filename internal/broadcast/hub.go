// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package broadcast is the SSE hub: a bounded subscriber registry that
// fans out event/session_update/stats frames with per-subscriber filters,
// heartbeats, and non-blocking backpressure-drop. Adapted from a
// WebSocket-transport hub to an http.Flusher-based SSE transport; there is
// no read pump since a client has nothing to send back.
package broadcast

import (
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/agentmonitor/internal/apierr"
	"github.com/tomtom215/agentmonitor/internal/logging"
)

// Hub maintains the set of connected SSE subscribers and fans out
// published frames to them.
type Hub struct {
	maxClients int

	mu      sync.RWMutex
	clients map[uint64]*Client

	register   chan registerRequest
	unregister chan *Client
	publish    chan publishedFrame
	done       chan struct{}
}

type publishedFrame struct {
	payload []byte
	filter  Filter
	msgType string
}

// registerRequest carries a candidate subscriber plus a one-shot result
// channel, so the admit-or-reject decision is made entirely on the Run
// goroutine: Subscribe never learns the outcome until Run has either
// added the client to the registry or rejected it as Saturated, closing
// the race between the capacity check and the registration itself.
type registerRequest struct {
	client *Client
	result chan error
}

// NewHub constructs a Hub bounded to maxClients concurrent subscribers.
func NewHub(maxClients int) *Hub {
	return &Hub{
		maxClients: maxClients,
		clients:    make(map[uint64]*Client),
		register:   make(chan registerRequest),
		unregister: make(chan *Client),
		publish:    make(chan publishedFrame, 256),
		done:       make(chan struct{}),
	}
}

// Run drives the hub's event loop until ctx-equivalent Stop is called.
// Priority-selects lifecycle events over publishes so the registry is
// always consistent before a frame is fanned out (teacher hub idiom,
// internal/websocket/hub.go).
func (h *Hub) Run() {
	for {
		select {
		case req := <-h.register:
			h.admit(req)
			continue
		case c := <-h.unregister:
			h.removeClient(c)
			continue
		case <-h.done:
			h.closeAll()
			return
		default:
		}

		select {
		case req := <-h.register:
			h.admit(req)
		case c := <-h.unregister:
			h.removeClient(c)
		case frame := <-h.publish:
			h.fanOut(frame)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop terminates Run and closes every connected subscriber.
func (h *Hub) Stop() {
	close(h.done)
}

// Subscribe admits a new subscriber with the given filter, or rejects it
// with Saturated if the registry is full. The admit-or-reject decision is
// made on the Run goroutine (see admit), so two callers racing for the
// last free slot can never both be admitted.
func (h *Hub) Subscribe(filter Filter, bufferSize int) (*Client, error) {
	c := newClient(filter, bufferSize)
	req := registerRequest{client: c, result: make(chan error, 1)}
	h.register <- req
	if err := <-req.result; err != nil {
		return nil, err
	}
	return c, nil
}

// Unsubscribe removes a subscriber from the registry (client disconnect,
// write failure, or heartbeat failure).
func (h *Hub) Unsubscribe(c *Client) {
	h.unregister <- c
}

// PublishEvent fans an event frame out to matching subscribers.
func (h *Hub) PublishEvent(payload []byte, filter Filter) {
	h.enqueue(publishedFrame{payload: payload, filter: filter, msgType: MessageEvent})
}

// PublishSessionUpdate fans a session_update frame out to matching
// subscribers.
func (h *Hub) PublishSessionUpdate(payload []byte, filter Filter) {
	h.enqueue(publishedFrame{payload: payload, filter: filter, msgType: MessageSessionUpdate})
}

// PublishStats fans the periodic unfiltered stats snapshot out to every
// subscriber.
func (h *Hub) PublishStats(payload []byte) {
	h.enqueue(publishedFrame{payload: payload, msgType: MessageStats})
}

// Dispatch decodes one bus payload and routes it to the matching
// Publish* method, deriving the broadcast Filter from the envelope's own
// event/session field rather than requiring the publisher to carry a
// Filter across the bus alongside the bytes.
func (h *Hub) Dispatch(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		logging.Warn().Err(err).Msg("broadcast: failed to decode bus payload")
		return
	}

	switch env.Type {
	case MessageEvent:
		if env.Event == nil {
			return
		}
		h.PublishEvent(payload, Filter{AgentType: env.Event.AgentKind, EventType: string(env.Event.EventType)})
	case MessageSessionUpdate:
		if env.Session == nil {
			return
		}
		h.PublishSessionUpdate(payload, Filter{AgentType: env.Session.AgentKind})
	case MessageStats:
		h.PublishStats(payload)
	default:
		logging.Warn().Str("type", env.Type).Msg("broadcast: unrecognized bus payload type")
	}
}

func (h *Hub) enqueue(frame publishedFrame) {
	select {
	case h.publish <- frame:
	default:
		logging.Warn().Str("type", frame.msgType).Msg("broadcast publish channel full, dropping frame")
	}
}

// ClientCount returns the number of connected subscribers, feeding the
// health endpoint's sse_clients field.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// admit performs the capacity check and the registration as one step.
// Called only from Run, so it never races with another admit call.
func (h *Hub) admit(req registerRequest) {
	h.mu.Lock()
	if len(h.clients) >= h.maxClients {
		h.mu.Unlock()
		req.result <- apierr.New(apierr.Saturated, "SSE client limit reached").
			WithFlatDetails(map[string]int{"max_clients": h.maxClients})
		return
	}
	h.clients[req.client.id] = req.client
	h.mu.Unlock()

	req.client.sendConnected()
	logging.Info().Uint64("client_id", req.client.id).Int("total_clients", h.ClientCount()).Msg("sse client connected")
	req.result <- nil
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.close()
	}
	h.mu.Unlock()
	logging.Info().Uint64("client_id", c.id).Int("total_clients", h.ClientCount()).Msg("sse client disconnected")
}

// fanOut sends frame to every matching subscriber in deterministic
// (client id) order, dropping any subscriber whose buffer is full instead
// of blocking the rest (spec §4.8 backpressure rule).
func (h *Hub) fanOut(frame publishedFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]uint64, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var drop []uint64
	for _, id := range ids {
		c := h.clients[id]
		if !c.filter.matches(frame.filter, frame.msgType) {
			continue
		}
		if !c.send(frame.payload) {
			drop = append(drop, id)
		}
	}
	for _, id := range drop {
		c := h.clients[id]
		c.close()
		delete(h.clients, id)
		logging.Warn().Uint64("client_id", id).Msg("sse client buffer full, dropping subscriber")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]uint64, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		h.clients[id].close()
		delete(h.clients, id)
	}
	logging.Info().Msg("closed all sse clients during shutdown")
}
