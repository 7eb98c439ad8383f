package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietloop/aecore/pkg/events"
)

type collectingConsumer struct {
	mu   sync.Mutex
	seen []events.Envelope
}

func (c *collectingConsumer) Consume(_ context.Context, ev events.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, ev)
}

func (c *collectingConsumer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
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
	require.Fail(t, "condition not met before timeout")
}

func TestSink_FansOutToAllConsumers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := NewSink()
	a := &collectingConsumer{}
	b := &collectingConsumer{}
	sink.AddConsumer(ctx, a)
	sink.AddConsumer(ctx, b)

	ev := events.MessageAction{Action: events.Action{Event: events.Event{ID: 1}}}
	sink.Publish(ev)

	waitFor(t, time.Second, func() bool { return a.count() == 1 && b.count() == 1 })
}

// panickingConsumer always panics; Sink must detach it without affecting
// sibling consumers or the producer (spec §4.8).
type panickingConsumer struct{}

func (panickingConsumer) Consume(context.Context, events.Envelope) { panic("boom") }

func TestSink_DetachesPanickingConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := NewSink()
	sink.AddConsumer(ctx, panickingConsumer{})
	healthy := &collectingConsumer{}
	sink.AddConsumer(ctx, healthy)

	assert.NotPanics(t, func() {
		sink.Publish(events.MessageAction{Action: events.Action{Event: events.Event{ID: 1}}})
		sink.Publish(events.MessageAction{Action: events.Action{Event: events.Event{ID: 2}}})
	})

	waitFor(t, time.Second, func() bool { return healthy.count() == 2 })
}

func TestSink_ContextCancelStopsConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := NewSink()
	c := &collectingConsumer{}
	sink.AddConsumer(ctx, c)

	sink.Publish(events.MessageAction{Action: events.Action{Event: events.Event{ID: 1}}})
	waitFor(t, time.Second, func() bool { return c.count() == 1 })

	cancel()
	time.Sleep(10 * time.Millisecond)

	// Publishing after cancellation must not block or panic even though
	// the consumer's goroutine has exited.
	assert.NotPanics(t, func() {
		sink.Publish(events.MessageAction{Action: events.Action{Event: events.Event{ID: 2}}})
	})
}
