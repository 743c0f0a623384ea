// Notify Relay Gateway
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package wsrelay adapts a single outbound WebSocket connection to a public
// message relay into a carrier.Client, grounded on the teacher's
// pkg/agent/transport/websocket WSTransport.
package wsrelay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/notifyrelay/gateway/internal/metrics"
	"github.com/notifyrelay/gateway/pkg/carrier"
	"github.com/notifyrelay/gateway/pkg/notifyerr"
)

// relayRequest is the JSON-RPC-ish control frame the relay speaks.
type relayRequest struct {
	ID     uint64         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// relayPush is an inbound publish notification from the relay.
type relayPush struct {
	Method string `json:"method"`
	Params struct {
		Topic   string `json:"topic"`
		Message string `json:"message"` // base64-standard envelope
		Tag     uint32 `json:"tag"`
	} `json:"params"`
}

// Relay is a carrier.Client backed by one persistent WebSocket connection.
// On a read error it redials with reconnectDelay between attempts and
// re-subscribes to every topic Subscribe was called with, rather than
// dying permanently.
type Relay struct {
	url            string
	dialTimeout    time.Duration
	writeTimeout   time.Duration
	reconnectDelay time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	nextID   uint64
	messages chan carrier.Message
	closed   bool
	topics   map[string]struct{}
}

// New creates a Relay for the given WebSocket URL; call Connect before use.
func New(url string) *Relay {
	return &Relay{
		url:            url,
		dialTimeout:    30 * time.Second,
		writeTimeout:   10 * time.Second,
		reconnectDelay: 5 * time.Second,
		messages:       make(chan carrier.Message, 256),
		topics:         make(map[string]struct{}),
	}
}

// SetReconnectDelay overrides the delay between redial attempts after a
// read error. Must be called before Connect.
func (r *Relay) SetReconnectDelay(d time.Duration) {
	if d > 0 {
		r.reconnectDelay = d
	}
}

// Connect dials the relay and starts the inbound-push reader loop.
func (r *Relay) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return nil
	}

	conn, err := r.dial(ctx)
	if err != nil {
		return err
	}
	r.conn = conn
	go r.readLoop()
	return nil
}

func (r *Relay) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: r.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: relay dial failed (HTTP %d): %v", notifyerr.ErrCarrierError, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: relay dial failed: %v", notifyerr.ErrCarrierError, err)
	}
	return conn, nil
}

func (r *Relay) readLoop() {
	for {
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if !r.reconnect() {
				return
			}
			continue
		}

		var push relayPush
		if err := json.Unmarshal(data, &push); err != nil {
			continue // malformed relay frame, drop
		}
		if push.Method != "relay_subscription" {
			continue
		}
		payload, err := base64.StdEncoding.DecodeString(push.Params.Message)
		if err != nil {
			continue
		}
		metrics.CarrierMessagesProcessed.WithLabelValues("receive", "success").Inc()
		metrics.CarrierMessageSize.Observe(float64(len(payload)))

		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return
		}
		r.messages <- carrier.Message{Topic: push.Params.Topic, Payload: payload, Tag: push.Params.Tag}
	}
}

// reconnect redials after a read error, waiting reconnectDelay between
// attempts, and re-subscribes to every topic Subscribe was called with. It
// returns false once the relay has been explicitly closed.
func (r *Relay) reconnect() bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	_ = r.conn.Close()
	r.conn = nil
	delay := r.reconnectDelay
	r.mu.Unlock()

	for {
		time.Sleep(delay)

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return false
		}
		r.mu.Unlock()

		metrics.CarrierReconnects.Inc()
		conn, err := r.dial(context.Background())
		if err != nil {
			metrics.CarrierMessagesProcessed.WithLabelValues("receive", "failure").Inc()
			continue
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			_ = conn.Close()
			return false
		}
		r.conn = conn
		topics := make([]string, 0, len(r.topics))
		for t := range r.topics {
			topics = append(topics, t)
		}
		r.mu.Unlock()

		for _, t := range topics {
			_ = r.Subscribe(context.Background(), t)
		}
		return true
	}
}

func (r *Relay) Subscribe(ctx context.Context, topic string) error {
	if err := r.send(ctx, "irn_subscribe", map[string]any{"topic": topic}); err != nil {
		return err
	}
	r.mu.Lock()
	r.topics[topic] = struct{}{}
	r.mu.Unlock()
	return nil
}

func (r *Relay) Publish(ctx context.Context, topic string, payload []byte, tag uint32, ttl time.Duration, prompt bool) error {
	start := time.Now()
	err := r.send(ctx, "irn_publish", map[string]any{
		"topic":   topic,
		"message": base64.StdEncoding.EncodeToString(payload),
		"tag":     tag,
		"ttl":     int64(ttl.Seconds()),
		"prompt":  prompt,
	})
	metrics.CarrierMessageProcessingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CarrierMessagesProcessed.WithLabelValues("publish", "failure").Inc()
		return err
	}
	metrics.CarrierMessagesProcessed.WithLabelValues("publish", "success").Inc()
	metrics.CarrierMessageSize.Observe(float64(len(payload)))
	return nil
}

func (r *Relay) send(ctx context.Context, method string, params map[string]any) error {
	r.mu.Lock()
	conn := r.conn
	if conn == nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: not connected", notifyerr.ErrCarrierError)
	}
	r.nextID++
	req := relayRequest{ID: r.nextID, Method: method, Params: params}
	r.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: marshal relay request: %v", notifyerr.ErrCarrierError, err)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrCarrierError, err)
	}
	return nil
}

func (r *Relay) Messages() <-chan carrier.Message {
	return r.messages
}

func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.conn != nil {
		_ = r.conn.Close()
	}
	close(r.messages)
	return nil
}

var _ carrier.Client = (*Relay)(nil)
