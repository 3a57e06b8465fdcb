package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHubServer(t *testing.T, snapshot SnapshotFunc) (*Hub, string) {
	hub := NewHub(snapshot)
	go hub.Run()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, &Conn{conn}, r.URL.Query().Get("profile"))
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialProfile(t *testing.T, hub *Hub, url, profileID string, expected int) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url+"?profile="+profileID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return hub.SessionCount(profileID) == expected
	}, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) CartEvent {
	var event CartEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func sampleState() model.CartState {
	return model.CartState{
		Items: model.Cart{
			"tea": {UUID: "tea", Name: "Oolong", Quantity: 2, Price: 320, Stock: 5},
		},
		TotalPrice: 640,
		TotalItems: 1,
	}
}

func TestHub_NotifyCartReachesEveryTabOfProfile(t *testing.T) {
	hub, url := setupHubServer(t, nil)

	first := dialProfile(t, hub, url, "profile-a", 1)
	second := dialProfile(t, hub, url, "profile-a", 2)
	other := dialProfile(t, hub, url, "profile-b", 1)

	hub.NotifyCart("profile-a", sampleState())

	for _, conn := range []*websocket.Conn{first, second} {
		event := readEvent(t, conn)
		assert.Equal(t, EventCartUpdated, event.Type)
		assert.Equal(t, 640.0, event.State.TotalPrice)
		assert.Equal(t, 2, event.State.Items["tea"].Quantity)
	}

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_NotifyOfflineProfileIsNoop(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	assert.False(t, hub.IsProfileOnline("nobody"))
	assert.NoError(t, hub.SendToProfile("nobody", CartEvent{Type: EventCartUpdated}))
	hub.NotifyCart("nobody", sampleState())
}

func TestHub_CartSyncSendsSnapshotToRequester(t *testing.T) {
	var requested string
	hub, url := setupHubServer(t, func(ctx context.Context, profileID string) (model.CartState, error) {
		requested = profileID
		return sampleState(), nil
	})

	requester := dialProfile(t, hub, url, "profile-a", 1)
	sibling := dialProfile(t, hub, url, "profile-a", 2)

	require.NoError(t, requester.WriteJSON(ClientMessage{Type: "cart_sync"}))

	event := readEvent(t, requester)
	assert.Equal(t, EventCartSnapshot, event.Type)
	assert.Equal(t, 1, event.State.TotalItems)
	assert.Equal(t, "profile-a", requested)

	require.NoError(t, sibling.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := sibling.ReadMessage()
	assert.Error(t, err)
}

func TestHub_CartSyncReportsFailure(t *testing.T) {
	hub, url := setupHubServer(t, func(ctx context.Context, profileID string) (model.CartState, error) {
		return model.CartState{Items: model.Cart{}, Error: "Failed to load cart"}, errors.New("storage down")
	})

	conn := dialProfile(t, hub, url, "profile-a", 1)
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "cart_sync"}))

	event := readEvent(t, conn)
	assert.Equal(t, EventCartError, event.Type)
	assert.Equal(t, "Failed to load cart", event.State.Error)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, url := setupHubServer(t, nil)

	conn := dialProfile(t, hub, url, "profile-a", 1)
	require.True(t, hub.IsProfileOnline("profile-a"))

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return !hub.IsProfileOnline("profile-a")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CartSyncAfterUnregisterDoesNotPanic(t *testing.T) {
	hub := NewHub(func(ctx context.Context, profileID string) (model.CartState, error) {
		return sampleState(), nil
	})
	go hub.Run()

	client := NewClient(hub, nil, "profile-a")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsProfileOnline("profile-a") }, 2*time.Second, 10*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return !hub.IsProfileOnline("profile-a") }, 2*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		hub.HandleClientMessage(client, []byte(`{"type":"cart_sync"}`))
	})
	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_SlowClientDroppedWithoutPanic(t *testing.T) {
	hub := NewHub(func(ctx context.Context, profileID string) (model.CartState, error) {
		return sampleState(), nil
	})
	go hub.Run()

	// 버퍼가 없는 클라이언트는 첫 브로드캐스트에서 정리됨
	client := &Client{Hub: hub, ProfileID: "profile-a", Send: make(chan []byte)}
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsProfileOnline("profile-a") }, 2*time.Second, 10*time.Millisecond)

	hub.NotifyCart("profile-a", sampleState())
	require.Eventually(t, func() bool { return !hub.IsProfileOnline("profile-a") }, 2*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		for i := 0; i < 3; i++ {
			hub.HandleClientMessage(client, []byte(`{"type":"cart_sync"}`))
		}
	})
}

func TestClient_CloseSendIsIdempotent(t *testing.T) {
	client := NewClient(nil, nil, "profile-a")

	assert.True(t, client.trySend([]byte("x")))
	client.closeSend()
	assert.NotPanics(t, client.closeSend)
	assert.False(t, client.trySend([]byte("y")))
}
