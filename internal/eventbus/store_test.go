package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietloop/aecore/internal/controller"
	"github.com/quietloop/aecore/pkg/events"
)

func TestMemoryStore_CreateLoadAppendDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "s1"))

	ev := events.UserMessageObservation{
		Observation: events.Observation{Event: events.Event{ID: 1, Source: events.SourceUser, Type: events.KindUserMessageObservation}, Content: "hi"},
	}
	require.NoError(t, store.Append(ctx, "s1", ev))

	log, state, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, log, 1)
	assert.Equal(t, controller.StateInit, state.AgentState)

	require.NoError(t, store.SaveState(ctx, "s1", StateSnapshot{AgentState: controller.StateCompleted}))
	_, state, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, controller.StateCompleted, state.AgentState)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, _, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_AppendUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	err := store.Append(context.Background(), "nope", events.MessageAction{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDurableConsumer_AppendsToStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "s1"))

	var gotErr error
	consumer := &DurableConsumer{Store: store, SessionID: "s1", OnError: func(err error) { gotErr = err }}
	consumer.Consume(ctx, events.MessageAction{Action: events.Action{Event: events.Event{ID: 1}}})

	log, _, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, log, 1)
	assert.NoError(t, gotErr)

	// A session the store doesn't know about reports through OnError
	// instead of panicking or being silently lost.
	consumer2 := &DurableConsumer{Store: store, SessionID: "missing", OnError: func(err error) { gotErr = err }}
	consumer2.Consume(ctx, events.MessageAction{})
	assert.ErrorIs(t, gotErr, ErrSessionNotFound)
}
