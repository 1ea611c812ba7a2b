package realtime_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ridedesk/internal/realtime"
)

func TestHubDeliversToOwnerOnly(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop())
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(r.URL.Query().Get("user"), conn)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	alice, _, err := websocket.DefaultDialer.Dial(wsURL+"?user=alice", nil)
	require.NoError(t, err)
	defer alice.Close()

	require.Eventually(t, func() bool { return hub.Subscribers("alice") == 1 }, time.Second, 10*time.Millisecond)

	ev, err := realtime.NewEvent(realtime.EventUserStatus, "bob", map[string]string{"status": "verified"})
	require.NoError(t, err)
	require.Equal(t, 0, hub.Deliver(ev))

	ev, err = realtime.NewEvent(realtime.EventUserStatus, "alice", map[string]string{"status": "pending"})
	require.NoError(t, err)
	require.Equal(t, 1, hub.Deliver(ev))

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := alice.ReadMessage()
	require.NoError(t, err)

	var got realtime.Event
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, realtime.EventUserStatus, got.Type)
	require.JSONEq(t, `{"status":"pending"}`, string(got.Payload))

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool { return hub.Subscribers("alice") == 0 }, time.Second, 10*time.Millisecond)
}
