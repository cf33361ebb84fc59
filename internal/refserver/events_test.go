package refserver

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialEvents(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// The first message confirms the subscription
	var first Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, EventSubscribed, first.Type)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	var e Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestEvents_MutationsAreBroadcast(t *testing.T) {
	srv, ts := newTestServer(t, DefaultOptions())
	conn := dialEvents(t, ts.URL)
	assert.Equal(t, 1, srv.Hub().Subscribers())

	api := ts.URL + "/api/v1"
	token := login(t, ts.URL)

	_, body, _ := doJSON(t, http.MethodPost, api+"/houses", token, map[string]string{"name": "Villa"})
	houseID := body["data"].(map[string]any)["_id"].(string)

	e := readEvent(t, conn)
	assert.Equal(t, EventCreated, e.Type)
	assert.Equal(t, KindHouse, e.Kind)
	assert.Equal(t, houseID, e.ID)
	assert.False(t, e.At.IsZero())

	doJSON(t, http.MethodPut, api+"/houses/"+houseID, token, map[string]string{"name": "Updated Villa"})
	e = readEvent(t, conn)
	assert.Equal(t, EventUpdated, e.Type)
	assert.Equal(t, houseID, e.ID)

	doJSON(t, http.MethodDelete, api+"/houses/"+houseID, token, nil)
	e = readEvent(t, conn)
	assert.Equal(t, EventDeleted, e.Type)
	assert.Equal(t, KindHouse, e.Kind)
}

func TestEvents_FailedMutationsAreNotBroadcast(t *testing.T) {
	srv, ts := newTestServer(t, DefaultOptions())
	conn := dialEvents(t, ts.URL)
	token := login(t, ts.URL)

	// Rejected requests publish nothing, so the next event seen is the create
	doJSON(t, http.MethodDelete, ts.URL+"/api/v1/houses/fake-id-12345", token, nil)
	doJSON(t, http.MethodPost, ts.URL+"/api/v1/houses", token, map[string]string{"name": ""})
	srv.Hub().Publish(Event{Type: EventCreated, Kind: KindHouse, ID: "marker"})

	e := readEvent(t, conn)
	assert.Equal(t, "marker", e.ID)
}

func TestHub_Close(t *testing.T) {
	srv, ts := newTestServer(t, DefaultOptions())
	conn := dialEvents(t, ts.URL)

	srv.Hub().Close()
	assert.Equal(t, 0, srv.Hub().Subscribers())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestEvents_SubscribedComesFirstUnderLoad(t *testing.T) {
	srv, ts := newTestServer(t, DefaultOptions())

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case <-done:
				return
			default:
				srv.Hub().Publish(Event{Type: EventCreated, Kind: KindHouse, ID: "noise"})
			}
		}
	}()
	defer func() {
		close(done)
		<-stopped
	}()

	for i := 0; i < 20; i++ {
		// Unread subscribers are closed right away so the hub drops them
		dialEvents(t, ts.URL).Close()
	}
}
