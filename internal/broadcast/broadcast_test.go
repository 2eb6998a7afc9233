// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/agentmonitor/internal/apierr"
	"github.com/tomtom215/agentmonitor/internal/domain"
)

func TestSubscribeSaturated(t *testing.T) {
	h := NewHub(1)
	go h.Run()
	defer h.Stop()

	c1, err := h.Subscribe(Filter{}, 4)
	if err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	defer h.Unsubscribe(c1)

	waitForCount(t, h, 1)

	_, err = h.Subscribe(Filter{}, 4)
	if err == nil {
		t.Fatal("expected second subscribe to be rejected")
	}
	apiErr, ok := err.(*apierr.Error)
	if !ok || apiErr.Kind != apierr.Saturated {
		t.Fatalf("expected Saturated apierr.Error, got %v", err)
	}
}

// TestSubscribeConcurrentNeverExceedsCapacity races many concurrent
// Subscribe calls against a small hub and asserts the admitted count
// never exceeds maxClients, guarding against the capacity check and the
// registration racing across two different goroutines.
func TestSubscribeConcurrentNeverExceedsCapacity(t *testing.T) {
	const maxClients = 4
	const attempts = 32

	h := NewHub(maxClients)
	go h.Run()
	defer h.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var admitted []*Client
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			c, err := h.Subscribe(Filter{}, 4)
			if err != nil {
				return
			}
			mu.Lock()
			admitted = append(admitted, c)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(admitted) != maxClients {
		t.Fatalf("expected exactly %d admitted subscribers, got %d", maxClients, len(admitted))
	}
	if n := h.ClientCount(); n != maxClients {
		t.Fatalf("expected hub client count %d, got %d", maxClients, n)
	}
	for _, c := range admitted {
		h.Unsubscribe(c)
	}
}

func TestPublishEventMatchesFilter(t *testing.T) {
	h := NewHub(4)
	go h.Run()
	defer h.Stop()

	c, err := h.Subscribe(Filter{AgentType: "claude_code"}, 4)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer h.Unsubscribe(c)
	waitForCount(t, h, 1)

	drainConnected(t, c)

	ev := domain.Event{AgentKind: "claude_code", EventType: domain.EventToolUse}
	payload, filter, err := NewEventMessage(ev)
	if err != nil {
		t.Fatalf("NewEventMessage: %v", err)
	}
	h.PublishEvent(payload, filter)

	select {
	case got := <-c.out:
		if len(got) == 0 {
			t.Fatal("expected non-empty frame")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for matching event frame")
	}
}

func TestPublishEventSkipsNonMatchingFilter(t *testing.T) {
	h := NewHub(4)
	go h.Run()
	defer h.Stop()

	c, err := h.Subscribe(Filter{AgentType: "codex"}, 4)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer h.Unsubscribe(c)
	waitForCount(t, h, 1)
	drainConnected(t, c)

	ev := domain.Event{AgentKind: "claude_code", EventType: domain.EventToolUse}
	payload, filter, err := NewEventMessage(ev)
	if err != nil {
		t.Fatalf("NewEventMessage: %v", err)
	}
	h.PublishEvent(payload, filter)

	select {
	case <-c.out:
		t.Fatal("did not expect a frame for a non-matching filter")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStatsBroadcastIgnoresFilter(t *testing.T) {
	h := NewHub(4)
	go h.Run()
	defer h.Stop()

	c, err := h.Subscribe(Filter{AgentType: "codex"}, 4)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer h.Unsubscribe(c)
	waitForCount(t, h, 1)
	drainConnected(t, c)

	payload, err := NewStatsMessage(map[string]int{"total_events": 3})
	if err != nil {
		t.Fatalf("NewStatsMessage: %v", err)
	}
	h.PublishStats(payload)

	select {
	case got := <-c.out:
		if len(got) == 0 {
			t.Fatal("expected non-empty stats frame")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for stats frame")
	}
}

func waitForCount(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("hub never reached client count %d (at %d)", n, h.ClientCount())
}

func drainConnected(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.out:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connected frame")
	}
}
