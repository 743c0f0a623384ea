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

// Package dispatcher routes carrier messages to the notify handler's two
// protocol entry points and runs them on a bounded worker pool.
package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/notifyrelay/gateway/internal/logger"
	"github.com/notifyrelay/gateway/internal/metrics"
	"github.com/notifyrelay/gateway/pkg/carrier"
	"github.com/notifyrelay/gateway/pkg/notifyerr"
	"github.com/notifyrelay/gateway/pkg/store"
)

// requestIDContextKey is the context key internal/logger reads to tag log
// lines with a message's correlation id.
const requestIDContextKey = "request_id"

// role classifies a topic observed on the carrier as belonging to one of
// the protocol's two inbound message shapes.
type role int

const (
	roleUnknown role = iota
	roleSubscribe
	roleNotify
)

// Handler is the subset of *notify.Handler the dispatcher calls, narrowed
// so tests can swap in a fake.
type Handler interface {
	HandleNotifySubscribe(ctx context.Context, subscribeTopic string, frame []byte) error
	HandleNotifyUpdate(ctx context.Context, notifyTopic string, frame []byte) error
}

// Classifier is the subset of store.Store the dispatcher needs to resolve
// an unrecognized topic to a role the first time it is seen.
type Classifier interface {
	GetProjectBySubscribeTopic(ctx context.Context, topic string) (*store.Project, error)
	GetLookup(ctx context.Context, notifyTopic string) (*store.LookupEntry, error)
}

// Config tunes the worker pool and queue sizing.
type Config struct {
	// MaxWorkers bounds the number of HandleNotify* calls running at once.
	MaxWorkers int

	// QueueSize bounds how many inbound messages may wait for a free
	// worker before the dispatcher starts dropping them.
	QueueSize int

	// ClassifyTimeout bounds the store round trip used to resolve a
	// topic's role the first time it's observed.
	ClassifyTimeout time.Duration
}

// DefaultConfig returns the dispatcher's default pool sizing.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:      32,
		QueueSize:       256,
		ClassifyTimeout: 5 * time.Second,
	}
}

// Dispatcher consumes a carrier.Client's inbound message stream, classifies
// each message's topic as a project subscribe-topic or a registered
// notify-topic, and runs the matching notify.Handler method on a bounded
// worker pool. Routing decisions are cached in routes, guarded by mu, the
// same way session.Manager guards its session map.
type Dispatcher struct {
	handler    Handler
	carrier    carrier.Client
	classifier Classifier
	cfg        Config
	log        logger.Logger

	mu     sync.RWMutex
	routes map[string]role

	// queue bounds how many accepted messages may be waiting for or
	// running on a worker at once; sem further bounds how many of those
	// are actually executing concurrently.
	queue chan struct{}
	sem   *semaphore.Weighted
	wg    sync.WaitGroup

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New builds a Dispatcher. classifier may be nil if every topic the
// carrier will ever deliver is pre-registered via AddSubscribeTopic and
// the Watch callback.
func New(handler Handler, c carrier.Client, classifier Classifier, cfg Config) *Dispatcher {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultConfig().MaxWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = DefaultConfig().ClassifyTimeout
	}
	return &Dispatcher{
		handler:    handler,
		carrier:    c,
		classifier: classifier,
		cfg:        cfg,
		log:        logger.GetDefaultLogger(),
		routes:     make(map[string]role),
		queue:      make(chan struct{}, cfg.QueueSize),
		sem:        semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// SetLogger overrides the dispatcher's logger.
func (d *Dispatcher) SetLogger(l logger.Logger) {
	if l != nil {
		d.log = l
	}
}

// SetHandler wires the notify handler in, for callers that must build the
// handler after the dispatcher (the handler's Watch callback is the
// dispatcher's own Watch method). Must be called before Run.
func (d *Dispatcher) SetHandler(h Handler) {
	d.handler = h
}

// AddSubscribeTopic registers a project's subscribe-topic up front, so the
// first message on it doesn't pay for a store round trip to classify.
func (d *Dispatcher) AddSubscribeTopic(topic string) {
	d.mu.Lock()
	d.routes[topic] = roleSubscribe
	d.mu.Unlock()
}

// Watch registers a notify-topic as soon as a subscription is created. Its
// signature matches store.TopicWatcher, so it can be passed directly as
// the watch argument to notify.NewHandler.
func (d *Dispatcher) Watch(notifyTopic string) {
	d.mu.Lock()
	d.routes[notifyTopic] = roleNotify
	d.mu.Unlock()
}

// Run starts the dispatch loop, reading from c.Messages() until ctx is
// canceled or Close is called. Run blocks until the loop exits.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)

	msgs := d.carrier.Messages()
	for {
		select {
		case <-ctx.Done():
			d.drainAndWait()
			return ctx.Err()
		case <-d.stop:
			d.drainAndWait()
			return nil
		case msg, ok := <-msgs:
			if !ok {
				d.drainAndWait()
				return nil
			}
			d.enqueue(ctx, msg)
		}
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, msg carrier.Message) {
	metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
	select {
	case d.queue <- struct{}{}:
		d.wg.Add(1)
		go d.worker(ctx, msg)
	default:
		metrics.DispatchDropped.WithLabelValues("queue_full").Inc()
		d.log.Warn("dispatcher queue full, dropping message", logger.String("topic", msg.Topic))
	}
}

func (d *Dispatcher) worker(ctx context.Context, msg carrier.Message) {
	defer d.wg.Done()
	defer func() { <-d.queue }()

	acquireCtx, cancelAcquire := context.WithCancel(ctx)
	defer cancelAcquire()
	go func() {
		select {
		case <-d.stop:
			cancelAcquire()
		case <-acquireCtx.Done():
		}
	}()

	if err := d.sem.Acquire(acquireCtx, 1); err != nil {
		metrics.DispatchDropped.WithLabelValues("shutting_down").Inc()
		return
	}
	metrics.DispatchWorkersActive.Inc()
	defer func() {
		d.sem.Release(1)
		metrics.DispatchWorkersActive.Dec()
	}()

	d.handle(ctx, msg)
}

func (d *Dispatcher) handle(ctx context.Context, msg carrier.Message) {
	ctx = context.WithValue(ctx, requestIDContextKey, uuid.NewString())
	log := d.log.WithContext(ctx)

	r, err := d.classify(ctx, msg.Topic)
	if err != nil {
		log.Warn("unable to classify topic", logger.String("topic", msg.Topic), logger.Error(err))
		return
	}

	start := time.Now()
	switch r {
	case roleSubscribe:
		err = d.handler.HandleNotifySubscribe(ctx, msg.Topic, msg.Payload)
		metrics.HandlerDuration.WithLabelValues("subscribe").Observe(time.Since(start).Seconds())
		metrics.NotifySubscribeTotal.WithLabelValues(resultLabel(err)).Inc()
	case roleNotify:
		err = d.handler.HandleNotifyUpdate(ctx, msg.Topic, msg.Payload)
		metrics.HandlerDuration.WithLabelValues("update").Observe(time.Since(start).Seconds())
		metrics.NotifyUpdateTotal.WithLabelValues(resultLabel(err)).Inc()
	default:
		log.Warn("dropping message on unroutable topic", logger.String("topic", msg.Topic))
		return
	}

	if err != nil {
		log.Error("handler failed", logger.String("topic", msg.Topic), logger.Error(err))
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, notifyerr.ErrIdentityNotAuthorized):
		return "denied"
	case errors.Is(err, notifyerr.ErrNoProjectDataForTopic), errors.Is(err, notifyerr.ErrNoClientDataForTopic):
		return "unknown_project"
	case errors.Is(err, notifyerr.ErrInvalidAct), errors.Is(err, notifyerr.ErrInvalidIssuer), errors.Is(err, notifyerr.ErrBadSignature):
		return "invalid_auth"
	default:
		return "error"
	}
}

func (d *Dispatcher) classify(ctx context.Context, topic string) (role, error) {
	d.mu.RLock()
	r, ok := d.routes[topic]
	d.mu.RUnlock()
	if ok {
		return r, nil
	}

	if d.classifier == nil {
		return roleUnknown, errors.New("dispatcher: no classifier configured for unregistered topic")
	}

	cctx, cancel := context.WithTimeout(ctx, d.cfg.ClassifyTimeout)
	defer cancel()

	if _, err := d.classifier.GetProjectBySubscribeTopic(cctx, topic); err == nil {
		d.AddSubscribeTopic(topic)
		return roleSubscribe, nil
	}
	if _, err := d.classifier.GetLookup(cctx, topic); err == nil {
		d.Watch(topic)
		return roleNotify, nil
	}
	return roleUnknown, notifyerr.ErrNoProjectDataForTopic
}

// Close stops the dispatch loop and waits for in-flight handlers to drain.
func (d *Dispatcher) Close() error {
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.done
	return nil
}

func (d *Dispatcher) drainAndWait() {
	d.wg.Wait()
}
