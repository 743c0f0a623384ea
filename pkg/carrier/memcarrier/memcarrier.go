// Package memcarrier is an in-process carrier.Client backed by channels,
// used by dispatcher and handler tests that don't need a real relay.
package memcarrier

import (
	"context"
	"sync"
	"time"

	"github.com/notifyrelay/gateway/pkg/carrier"
)

// Published records one Publish call, for test assertions.
type Published struct {
	Topic   string
	Payload []byte
	Tag     uint32
	TTL     time.Duration
	Prompt  bool
}

// Carrier is a fake relay: Subscribe records interest, Publish records the
// call and (if another test goroutine wants it) can be fed back in via
// Deliver to simulate an inbound message.
type Carrier struct {
	mu         sync.Mutex
	subscribed map[string]bool
	published  []Published
	messages   chan carrier.Message
	closed     bool
}

// New creates an empty in-process carrier.
func New() *Carrier {
	return &Carrier{
		subscribed: make(map[string]bool),
		messages:   make(chan carrier.Message, 64),
	}
}

func (c *Carrier) Subscribe(ctx context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[topic] = true
	return nil
}

func (c *Carrier) Publish(ctx context.Context, topic string, payload []byte, tag uint32, ttl time.Duration, prompt bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, Published{Topic: topic, Payload: append([]byte(nil), payload...), Tag: tag, TTL: ttl, Prompt: prompt})
	return nil
}

func (c *Carrier) Messages() <-chan carrier.Message {
	return c.messages
}

// Deliver simulates the relay pushing an inbound message to a subscribed topic.
func (c *Carrier) Deliver(msg carrier.Message) {
	c.messages <- msg
}

// PublishedMessages returns a snapshot of every Publish call observed so far.
func (c *Carrier) PublishedMessages() []Published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Published(nil), c.published...)
}

// IsSubscribed reports whether Subscribe was ever called for topic.
func (c *Carrier) IsSubscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed[topic]
}

func (c *Carrier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.messages)
	}
	return nil
}

var _ carrier.Client = (*Carrier)(nil)
