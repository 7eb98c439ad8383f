package eventbus

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/quietloop/aecore/pkg/events"
)

func TestRemoteHub_BroadcastsToConnectedObservers(t *testing.T) {
	hub := NewRemoteHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	waitFor(t, time.Second, func() bool { return hub.ConnectionCount() == 1 })

	ev := events.MessageAction{
		Action:  events.Action{Event: events.Event{ID: 1, Source: events.SourceAgent, Type: events.KindMessageAction}},
		Content: "hi",
	}
	hub.Consume(context.Background(), ev)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(payload), `"message_action"`)
}

func TestRemoteHub_SkipsHiddenEvents(t *testing.T) {
	hub := NewRemoteHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	waitFor(t, time.Second, func() bool { return hub.ConnectionCount() == 1 })

	hidden := events.MessageAction{Action: events.Action{Event: events.Event{ID: 1, Hidden: true, Type: events.KindMessageAction}}}
	hub.Consume(context.Background(), hidden)

	visible := events.MessageAction{Action: events.Action{Event: events.Event{ID: 2, Type: events.KindMessageAction}}, Content: "visible"}
	hub.Consume(context.Background(), visible)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(payload), `"visible"`)
}
