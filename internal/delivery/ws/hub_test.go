package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func connCount(h *Hub, userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if user != "" {
		header.Set("X-User-ID", user)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	return msg
}

func TestHandlerRejectsMissingUser(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(Handler(NewHub()))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSendReachesOwnerOnly(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	srv := httptest.NewServer(Handler(hub))
	defer srv.Close()

	owner := dial(t, srv, "7")
	other := dial(t, srv, "8")

	require.Eventually(t, func() bool {
		return connCount(hub, 7) == 1 && connCount(hub, 8) == 1
	}, 2*time.Second, 10*time.Millisecond)

	payload := []byte(`{"audioId":1,"transcription":"hello"}`)
	hub.SendToUser(7, payload)

	require.Equal(t, payload, readMessage(t, owner))

	require.NoError(t, other.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := other.ReadMessage()
	require.Error(t, err, "other users must not receive the message")
}

func TestSendFansOutToAllTabs(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	srv := httptest.NewServer(Handler(hub))
	defer srv.Close()

	tabA := dial(t, srv, "7")
	tabB := dial(t, srv, "7")

	require.Eventually(t, func() bool {
		return connCount(hub, 7) == 2
	}, 2*time.Second, 10*time.Millisecond)

	payload := []byte(`{"audioId":2,"transcription":"hola"}`)
	hub.SendToUser(7, payload)

	require.Equal(t, payload, readMessage(t, tabA))
	require.Equal(t, payload, readMessage(t, tabB))
}

func TestDisconnectRemovesConnection(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	srv := httptest.NewServer(Handler(hub))
	defer srv.Close()

	conn := dial(t, srv, "7")
	require.Eventually(t, func() bool {
		return connCount(hub, 7) == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return connCount(hub, 7) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendWithoutConnectionsIsNoop(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	hub.SendToUser(42, []byte("nobody listens"))
}
