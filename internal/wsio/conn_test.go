package wsio_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/sufield/trz-gateway/internal/wsio"
)

// dialPair spins up an httptest server that upgrades every request, and
// returns a client-side and server-side wsio.Conn wired to the same
// WebSocket connection.
func dialPair(t *testing.T) (client, server *wsio.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverCh := make(chan *websocket.Conn, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverCh <- ws
	}))
	t.Cleanup(ts.Close)

	wsURL := "ws" + ts.URL[len("http"):]
	clientWS, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	serverWS := <-serverCh
	return wsio.New(clientWS), wsio.New(serverWS)
}

func TestReadWriteRoundTrip(t *testing.T) {
	t.Parallel()

	client, server := dialPair(t)
	defer client.Close()
	defer server.Close()

	payload := []byte("hello through the tunnel")
	n, err := client.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	buf := make([]byte, len(payload))
	n, err = server.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf[:n])
}

// A single Write larger than the reader's buffer is still delivered in
// full across multiple Read calls, since Read only drains one frame at
// a time.
func TestReadDrainsSingleFrameAcrossMultipleReads(t *testing.T) {
	t.Parallel()

	client, server := dialPair(t)
	defer client.Close()
	defer server.Close()

	payload := make([]byte, 10)
	for i := range payload {
		payload[i] = byte(i)
	}
	_, err := client.Write(payload)
	require.NoError(t, err)

	got := make([]byte, 0, len(payload))
	small := make([]byte, 3)
	for len(got) < len(payload) {
		n, err := server.Read(small)
		require.NoError(t, err)
		got = append(got, small[:n]...)
	}
	require.Equal(t, payload, got)
}

func TestCloseUnblocksRead(t *testing.T) {
	t.Parallel()

	client, server := dialPair(t)
	defer server.Close()

	require.NoError(t, client.Close())

	buf := make([]byte, 4)
	_, err := server.Read(buf)
	require.Error(t, err)
}
