// Package eventbus implements the Event Sink and Session Store (component
// C8, spec §4.8): a bounded in-memory queue fanning out every Action and
// Observation the controller appends to a durable writer and, optionally,
// a remote observer, plus the session-keyed event-log/state store those
// consumers read and write.
package eventbus

import (
	"context"
	"sync"

	"github.com/quietloop/aecore/pkg/events"
)

// Consumer receives events published to a Sink. A Consumer that blocks or
// panics must not be able to stall the producer; Sink enforces this by
// running each consumer on its own goroutine reading from its own
// buffered channel (spec §4.8: "On consumer failure, the queue does not
// block the producer — the consumer is detached and the session
// continues").
type Consumer interface {
	Consume(ctx context.Context, ev events.Envelope)
}

// ConsumerFunc adapts a plain function to a Consumer.
type ConsumerFunc func(ctx context.Context, ev events.Envelope)

func (f ConsumerFunc) Consume(ctx context.Context, ev events.Envelope) { f(ctx, ev) }

// queuedConsumer pairs a Consumer with its own buffered channel and
// detached state, grounded on the teacher's ChanSink (drop-on-full,
// non-blocking send) generalized to a supervised per-consumer goroutine.
type queuedConsumer struct {
	consumer Consumer
	ch       chan events.Envelope
	detached chan struct{}
	once     sync.Once
}

// Sink is the bounded, at-least-once event queue of spec §4.8. Producers
// are the controller (C7) and the tool manager (C6); every Publish call
// fans the event out to each registered Consumer without blocking on any
// one of them.
type Sink struct {
	mu        sync.RWMutex
	queues    []*queuedConsumer
	queueSize int
}

// DefaultQueueSize bounds each consumer's per-event backlog before newer
// events start being dropped for that consumer (the durable writer should
// keep up; a slow remote observer should not be allowed to grow
// unbounded memory).
const DefaultQueueSize = 1024

// NewSink returns an empty Sink. Attach consumers with AddConsumer.
func NewSink() *Sink {
	return &Sink{queueSize: DefaultQueueSize}
}

// AddConsumer registers consumer and starts its delivery goroutine. ctx
// governs the consumer's lifetime; when ctx is done the goroutine exits
// and the consumer is detached.
func (s *Sink) AddConsumer(ctx context.Context, consumer Consumer) {
	qc := &queuedConsumer{
		consumer: consumer,
		ch:       make(chan events.Envelope, s.queueSize),
		detached: make(chan struct{}),
	}

	s.mu.Lock()
	s.queues = append(s.queues, qc)
	s.mu.Unlock()

	go s.run(ctx, qc)
}

func (s *Sink) run(ctx context.Context, qc *queuedConsumer) {
	defer s.detach(qc)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-qc.ch:
			if !ok {
				return
			}
			func() {
				defer func() {
					// A panicking consumer must not take down the
					// producer or other consumers; detach it instead.
					if r := recover(); r != nil {
						s.detach(qc)
					}
				}()
				qc.consumer.Consume(ctx, ev)
			}()
		}
	}
}

func (s *Sink) detach(qc *queuedConsumer) {
	qc.once.Do(func() { close(qc.detached) })
}

func isDetached(qc *queuedConsumer) bool {
	select {
	case <-qc.detached:
		return true
	default:
		return false
	}
}

// Publish fans ev out to every attached, non-detached consumer. It never
// blocks: a consumer whose queue is full has an event dropped for it
// (delivery is at-least-once overall, but a backlogged individual
// consumer may miss events rather than stall the session — spec §4.8).
func (s *Sink) Publish(ev events.Envelope) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, qc := range s.queues {
		if isDetached(qc) {
			continue
		}
		select {
		case qc.ch <- ev:
		default:
			// Backlogged consumer; drop rather than block the producer.
		}
	}
}
