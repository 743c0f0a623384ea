package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyrelay/gateway/pkg/carrier"
	"github.com/notifyrelay/gateway/pkg/carrier/memcarrier"
	"github.com/notifyrelay/gateway/pkg/notifyerr"
	"github.com/notifyrelay/gateway/pkg/store"
	"github.com/notifyrelay/gateway/pkg/store/memory"
)

// fakeHandler records every call the dispatcher makes, instead of running
// the real crypto/store pipeline.
type fakeHandler struct {
	mu         sync.Mutex
	subscribes []string
	updates    []string
	err        error
}

func (f *fakeHandler) HandleNotifySubscribe(ctx context.Context, subscribeTopic string, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes = append(f.subscribes, subscribeTopic)
	return f.err
}

func (f *fakeHandler) HandleNotifyUpdate(ctx context.Context, notifyTopic string, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, notifyTopic)
	return f.err
}

func (f *fakeHandler) counts() (subs, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribes), len(f.updates)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestDispatcherRoutesPreregisteredSubscribeTopic(t *testing.T) {
	h := &fakeHandler{}
	c := memcarrier.New()
	d := New(h, c, nil, DefaultConfig())
	d.AddSubscribeTopic("subscribe-topic-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	defer d.Close()

	c.Deliver(carrier.Message{Topic: "subscribe-topic-1", Payload: []byte("frame")})

	waitFor(t, time.Second, func() bool {
		subs, _ := h.counts()
		return subs == 1
	})
}

func TestDispatcherRoutesViaWatchCallback(t *testing.T) {
	h := &fakeHandler{}
	c := memcarrier.New()
	d := New(h, c, nil, DefaultConfig())

	// Simulate notify.Handler calling d.Watch after registering a new
	// subscription, exactly as store.TopicWatcher is invoked.
	d.Watch("notify-topic-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	defer d.Close()

	c.Deliver(carrier.Message{Topic: "notify-topic-1", Payload: []byte("frame")})

	waitFor(t, time.Second, func() bool {
		_, updates := h.counts()
		return updates == 1
	})
}

func TestDispatcherClassifiesUnknownTopicViaStore(t *testing.T) {
	h := &fakeHandler{}
	c := memcarrier.New()
	s := memory.NewStore()
	s.PutProject(&store.Project{
		ProjectID:      "proj-1",
		SubscribeTopic: "subscribe-topic-2",
	})

	d := New(h, c, s, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	defer d.Close()

	c.Deliver(carrier.Message{Topic: "subscribe-topic-2", Payload: []byte("frame")})

	waitFor(t, time.Second, func() bool {
		subs, _ := h.counts()
		return subs == 1
	})

	// The classification should now be cached; a second message on the
	// same topic must not need the store again to be routed correctly.
	c.Deliver(carrier.Message{Topic: "subscribe-topic-2", Payload: []byte("frame-2")})
	waitFor(t, time.Second, func() bool {
		subs, _ := h.counts()
		return subs == 2
	})
}

func TestDispatcherDropsUnroutableTopic(t *testing.T) {
	h := &fakeHandler{}
	c := memcarrier.New()
	s := memory.NewStore()
	d := New(h, c, s, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	defer d.Close()

	c.Deliver(carrier.Message{Topic: "nobody-registered-this", Payload: []byte("frame")})

	time.Sleep(50 * time.Millisecond)
	subs, updates := h.counts()
	assert.Equal(t, 0, subs)
	assert.Equal(t, 0, updates)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	h := &blockingHandler{release: block}
	c := memcarrier.New()
	cfg := Config{MaxWorkers: 1, QueueSize: 1, ClassifyTimeout: time.Second}
	d := New(h, c, nil, cfg)
	d.AddSubscribeTopic("t")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	defer func() {
		close(block)
		d.Close()
	}()

	// Fill the single queue slot with a message that blocks until released.
	c.Deliver(carrier.Message{Topic: "t"})
	waitFor(t, time.Second, func() bool { return h.started() })

	// QueueSize is 1 and it is occupied by the in-flight message above, so
	// this second delivery has nowhere to go and must be dropped.
	c.Deliver(carrier.Message{Topic: "t"})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), h.callCount())
}

type blockingHandler struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int32
	begun   bool
}

func (b *blockingHandler) HandleNotifySubscribe(ctx context.Context, subscribeTopic string, frame []byte) error {
	b.mu.Lock()
	b.calls++
	b.begun = true
	b.mu.Unlock()
	<-b.release
	return nil
}

func (b *blockingHandler) HandleNotifyUpdate(ctx context.Context, notifyTopic string, frame []byte) error {
	return nil
}

func (b *blockingHandler) started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.begun
}

func (b *blockingHandler) callCount() int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func TestDispatcherCloseDrainsInFlightWork(t *testing.T) {
	h := &fakeHandler{}
	c := memcarrier.New()
	d := New(h, c, nil, DefaultConfig())
	d.AddSubscribeTopic("t")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	c.Deliver(carrier.Message{Topic: "t"})
	waitFor(t, time.Second, func() bool {
		subs, _ := h.counts()
		return subs == 1
	})

	require.NoError(t, d.Close())
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "success", resultLabel(nil))
	assert.Equal(t, "denied", resultLabel(notifyerr.ErrIdentityNotAuthorized))
	assert.Equal(t, "unknown_project", resultLabel(notifyerr.ErrNoProjectDataForTopic))
	assert.Equal(t, "invalid_auth", resultLabel(notifyerr.ErrInvalidAct))
	assert.Equal(t, "error", resultLabel(errors.New("boom")))
}
