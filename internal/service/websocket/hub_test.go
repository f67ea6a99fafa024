package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trafficserver/internal/logger"
)

func startHub(t *testing.T) (*HubService, *httptest.Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHubService(logger.NewNop())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
	}))

	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubService_BroadcastCount(t *testing.T) {
	hub, server := startHub(t)

	first := dial(t, server)
	second := dial(t, server)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.BroadcastCount(3)

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"count":3}`, string(msg))
	}
}

func TestHubService_DropsWhenQueueFull(t *testing.T) {
	hub := NewHubService(logger.NewNop())
	for i := 0; i < cap(hub.broadcast)+5; i++ {
		hub.BroadcastCount(i)
	}
	assert.Len(t, hub.broadcast, cap(hub.broadcast))
}

func TestHubService_RegisterAfterStop(t *testing.T) {
	hub := NewHubService(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	assert.False(t, hub.Register(nil))
	hub.Unregister(nil)
	assert.Equal(t, 0, hub.GetClientCount())
}
