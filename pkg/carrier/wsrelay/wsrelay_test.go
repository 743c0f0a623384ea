package wsrelay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeRelayServer upgrades one connection and echoes irn_publish frames back
// as relay_subscription pushes, so Relay can be exercised end to end without
// a real relay deployment.
func fakeRelayServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req relayRequest
			require.NoError(t, json.Unmarshal(data, &req))

			if req.Method != "irn_publish" {
				continue
			}
			push := relayPush{Method: "relay_subscription"}
			push.Params.Topic, _ = req.Params["topic"].(string)
			push.Params.Message, _ = req.Params["message"].(string)
			out, _ := json.Marshal(push)
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}))
}

func TestRelayPublishRoundTrip(t *testing.T) {
	srv := fakeRelayServer(t)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	r := New(wsURL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Connect(ctx))
	defer r.Close()

	require.NoError(t, r.Publish(ctx, "topic-a", []byte("hello"), 4050, 300*time.Second, false))

	select {
	case msg := <-r.Messages():
		require.Equal(t, "topic-a", msg.Topic)
		require.Equal(t, []byte("hello"), msg.Payload)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for relayed message")
	}
}

func TestRelayPublishNotConnected(t *testing.T) {
	r := New("ws://unused.invalid")
	err := r.Publish(context.Background(), "t", []byte("x"), 1, time.Second, false)
	require.Error(t, err)
}

func TestRelayMessageBase64Decode(t *testing.T) {
	push := relayPush{Method: "relay_subscription"}
	push.Params.Topic = "t"
	push.Params.Message = base64.StdEncoding.EncodeToString([]byte("payload"))
	data, err := base64.StdEncoding.DecodeString(push.Params.Message)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
}
