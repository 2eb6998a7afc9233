// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package supervisor

import (
	"context"

	"github.com/tomtom215/agentmonitor/internal/broadcast"
	"github.com/tomtom215/agentmonitor/internal/bus"
)

// HubService wraps the SSE Hub's run loop as a supervised service. Hub.Run
// has no context parameter of its own, so this translates suture's
// context-cancellation shutdown into a call to Hub.Stop (the same pattern
// HTTPServerService uses for ListenAndServe/Shutdown).
type HubService struct {
	hub *broadcast.Hub
}

// NewHubService constructs a HubService around an already-built Hub.
func NewHubService(hub *broadcast.Hub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.hub.Run()
		close(done)
	}()

	<-ctx.Done()
	s.hub.Stop()
	<-done
	return ctx.Err()
}

// String implements fmt.Stringer for suture's logging.
func (s *HubService) String() string {
	return "sse-hub"
}

// BusBridgeService subscribes to the bus and forwards every message to the
// Hub's Dispatch method, decoupling Ingest (the publisher) from Broadcast
// (the subscriber) per spec §4.8. A bridge-layer crash never touches the
// Store, and a Store-layer crash never drops a connected subscriber.
type BusBridgeService struct {
	bus *bus.Bus
	hub *broadcast.Hub
}

// NewBusBridgeService constructs a BusBridgeService wiring bus to hub.
func NewBusBridgeService(b *bus.Bus, hub *broadcast.Hub) *BusBridgeService {
	return &BusBridgeService{bus: b, hub: hub}
}

// Serve implements suture.Service.
func (s *BusBridgeService) Serve(ctx context.Context) error {
	msgs, err := s.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			s.hub.Dispatch(msg.Payload)
			msg.Ack()
		}
	}
}

// String implements fmt.Stringer for suture's logging.
func (s *BusBridgeService) String() string {
	return "bus-bridge"
}
