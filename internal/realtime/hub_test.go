package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	ws "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubBroadcastReachesClient(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	hub.Broadcast(Event{Type: TypeBookingCreated, ID: "b1", Action: "create"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, Event{Type: TypeBookingCreated, ID: "b1", Action: "create"}, evt)
}

func TestHubDropsClosedClient(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, hub, 1)
	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)
}

func TestBusRelaysThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	bus := NewBus(client, hub, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	go func() { _ = bus.Relay(ctx, ready) }()
	<-ready

	publisher := NewBus(client, nil, nil)
	require.NoError(t, publisher.Publish(ctx, Event{Type: TypeBookingUpdated, ID: "b2", Action: "update"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, "b2", evt.ID)
	assert.Equal(t, TypeBookingUpdated, evt.Type)
}

func TestBusWithoutRedisBroadcastsLocally(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	bus := NewBus(nil, hub, nil)
	require.NoError(t, bus.Publish(context.Background(), Event{Type: TypeCustomerUpdated, ID: "c1", Action: "update"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, TypeCustomerUpdated, evt.Type)
}
