// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package broadcast

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

var nextClientID uint64

// Client is one SSE subscriber. Unlike a WebSocket client it has no read
// pump — an SSE connection is server-to-client only, so disconnects are
// observed through the request context rather than a failed read.
type Client struct {
	id     uint64
	filter Filter
	out    chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(filter Filter, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Client{
		id:     atomic.AddUint64(&nextClientID, 1),
		filter: filter,
		out:    make(chan []byte, bufferSize),
	}
}

// send enqueues payload without blocking, reporting whether it was
// accepted. The hub drops a subscriber whose buffer is saturated rather
// than stall the fan-out loop for the rest of the registry.
func (c *Client) send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.out <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

func (c *Client) sendConnected() {
	payload, err := json.Marshal(envelope{Type: MessageConnected})
	if err != nil {
		return
	}
	c.send(payload)
}

// Serve blocks, writing frames to w as Server-Sent Events until the
// request context is canceled (client disconnect) or the hub closes this
// subscriber's channel (shutdown or backpressure eviction). Call after
// Hub.Subscribe has returned c successfully.
func (c *Client) Serve(w http.ResponseWriter, r *http.Request, heartbeat time.Duration) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("broadcast: response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(": heartbeat\n\n")); err != nil {
				return err
			}
			flusher.Flush()
		case payload, open := <-c.out:
			if !open {
				return nil
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}
