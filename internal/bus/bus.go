// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

// Package bus is the internal publish/subscribe fabric decoupling Ingest
// (the publisher) from Broadcast (the sole subscriber).
// It is in-process only — a single node's Non-goals rule out cross-node
// delivery, so Watermill's gochannel transport is used instead of a
// network broker.
package bus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/agentmonitor/internal/logging"
)

// Topic is the single channel carrying every live message kind (event,
// session_update, stats); Broadcast discriminates by the message's "type"
// field after unmarshaling, matching the SSE frame shape in spec §6.
const Topic = "live"

// Bus wraps a Watermill gochannel pub/sub pair.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// New constructs a Bus with a bounded output buffer per subscriber so a
// slow consumer cannot grow memory unboundedly; Broadcast applies its own
// backpressure-drop on top of this.
func New() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			watermillLogger{},
		),
	}
}

// Publish sends payload (pre-marshaled JSON) onto the live topic.
func (b *Bus) Publish(payload []byte) error {
	return b.pubsub.Publish(Topic, message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe returns a channel of messages on the live topic. The channel
// closes when ctx is done or Close is called.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

// Close shuts down the underlying pub/sub, closing every subscriber
// channel.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// watermillLogger adapts the zerolog-based logging package to Watermill's
// LoggerAdapter interface so bus internals log through the same pipeline
// as the rest of the process.
type watermillLogger struct{}

func (watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	logging.Error().Err(err).Fields(map[string]any(fields)).Msg(msg)
}

func (watermillLogger) Info(msg string, fields watermill.LogFields) {
	logging.Info().Fields(map[string]any(fields)).Msg(msg)
}

func (watermillLogger) Debug(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (watermillLogger) Trace(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{}
}
