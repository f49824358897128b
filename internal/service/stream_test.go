package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GoPolymarket/ginauditor/pkg/auditor"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamHubBroadcast(t *testing.T) {
	hub := NewStreamHub(4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Handle(context.Background(), auditor.Record{auditor.AttrActionID: "CREATE_USER"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "CREATE_USER", got["actionId"])

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamHubDropsSlowClient(t *testing.T) {
	hub := NewStreamHub(1)
	c := &streamClient{send: make(chan []byte, 1), remote: "10.0.0.1:5000"}
	hub.clients[c] = struct{}{}
	c.send <- []byte("pending")

	require.NoError(t, hub.Handle(context.Background(), auditor.Record{}))
	assert.Zero(t, hub.Clients())

	// the queue is closed after the pending message
	<-c.send
	_, open := <-c.send
	assert.False(t, open)
}

func TestStreamHubUpgradeRejectsPlainHTTP(t *testing.T) {
	hub := NewStreamHub(0)
	w := httptest.NewRecorder()
	err := hub.ServeWS(w, httptest.NewRequest(http.MethodGet, "/audit/stream", nil))
	assert.Error(t, err)
	assert.Zero(t, hub.Clients())
}
