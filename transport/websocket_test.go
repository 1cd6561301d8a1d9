package transport_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lthibault/log"
	"github.com/stretchr/testify/require"

	"github.com/hedeqiang/pulse/rpc"
	"github.com/hedeqiang/pulse/transport"
)

var quiet = log.New(log.WithWriter(io.Discard))

// wsServer runs handle on every upgraded connection.
func wsServer(t *testing.T, handle func(conn *websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handle(conn)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readCall(t *testing.T, conn *websocket.Conn) rpc.MethodCall {
	t.Helper()
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	var call rpc.MethodCall
	require.NoError(t, json.Unmarshal(message, &call))
	return call
}

func writeFrame(conn *websocket.Conn, format string, args ...any) {
	conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(format, args...)))
}

func TestWebSocketSend(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		call := readCall(t, conn)
		writeFrame(conn, `{"jsonrpc":"2.0","result":"0x1b4","id":%d}`, call.ID)
	})
	defer srv.Close()

	ws := transport.NewWebSocket(wsURL(srv), transport.WithWebSocketLogger(quiet))
	defer ws.Close()

	id, call := ws.Prepare("eth_blockNumber", nil)
	res := <-ws.Send(context.Background(), id, call)
	require.NoError(t, res.Err)
	require.Equal(t, `"0x1b4"`, string(res.Value))
}

func TestWebSocketOutOfOrderResponses(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		first := readCall(t, conn)
		second := readCall(t, conn)
		// Answer in reverse order; routing is by id, not arrival order.
		writeFrame(conn, `{"jsonrpc":"2.0","result":"0x2","id":%d}`, second.ID)
		writeFrame(conn, `{"jsonrpc":"2.0","result":"0x1","id":%d}`, first.ID)
	})
	defer srv.Close()

	ws := transport.NewWebSocket(wsURL(srv), transport.WithWebSocketLogger(quiet))
	defer ws.Close()

	id1, c1 := ws.Prepare("eth_blockNumber", nil)
	id2, c2 := ws.Prepare("eth_chainId", nil)

	p1 := ws.Send(context.Background(), id1, c1)
	p2 := ws.Send(context.Background(), id2, c2)

	res1 := <-p1
	require.NoError(t, res1.Err)
	require.Equal(t, `"0x1"`, string(res1.Value))

	res2 := <-p2
	require.NoError(t, res2.Err)
	require.Equal(t, `"0x2"`, string(res2.Value))
}

func TestWebSocketRPCError(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		call := readCall(t, conn)
		writeFrame(conn, `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found"},"id":%d}`, call.ID)
	})
	defer srv.Close()

	ws := transport.NewWebSocket(wsURL(srv), transport.WithWebSocketLogger(quiet))
	defer ws.Close()

	id, call := ws.Prepare("eth_fooBar", nil)
	res := <-ws.Send(context.Background(), id, call)

	rpcErr, ok := res.Err.(*rpc.Error)
	require.True(t, ok)
	require.Equal(t, int64(-32601), rpcErr.Code)
}

func TestWebSocketNotifications(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		call := readCall(t, conn)
		writeFrame(conn, `{"jsonrpc":"2.0","result":"0xabc123","id":%d}`, call.ID)
		writeFrame(conn, `{"jsonrpc":"2.0","method":"eth_subscription","params":["0xabc123","0x1b4"]}`)
		// Keep the connection open until the client is done reading.
		conn.ReadMessage()
	})
	defer srv.Close()

	ws := transport.NewWebSocket(wsURL(srv), transport.WithWebSocketLogger(quiet))
	defer ws.Close()

	id, call := ws.Prepare("eth_subscribe", []rpc.Value{rpc.Value(`"newHeads"`)})
	res := <-ws.Send(context.Background(), id, call)
	require.NoError(t, res.Err)

	select {
	case n := <-ws.Notifications():
		require.Equal(t, "eth_subscription", n.Method)
		require.Len(t, n.Params, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestWebSocketObjectParamsNotification(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		call := readCall(t, conn)
		writeFrame(conn, `{"jsonrpc":"2.0","result":"0xabc123","id":%d}`, call.ID)
		// Real eth_subscription frames carry by-name (object) params.
		writeFrame(conn, `{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0xabc123","result":{"number":"0x1b4"}}}`)
		conn.ReadMessage()
	})
	defer srv.Close()

	ws := transport.NewWebSocket(wsURL(srv), transport.WithWebSocketLogger(quiet))
	defer ws.Close()

	id, call := ws.Prepare("eth_subscribe", []rpc.Value{rpc.Value(`"newHeads"`)})
	res := <-ws.Send(context.Background(), id, call)
	require.NoError(t, res.Err)

	select {
	case n := <-ws.Notifications():
		require.Equal(t, "eth_subscription", n.Method)
		require.Len(t, n.Params, 1)

		var payload struct {
			Subscription string `json:"subscription"`
			Result       struct {
				Number string `json:"number"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal(n.Params[0], &payload))
		require.Equal(t, "0xabc123", payload.Subscription)
		require.Equal(t, "0x1b4", payload.Result.Number)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestWebSocketCloseBeforeConnectClosesNotifications(t *testing.T) {
	ws := transport.NewWebSocket("ws://127.0.0.1:1", transport.WithWebSocketLogger(quiet))
	ws.Close()

	select {
	case _, ok := <-ws.Notifications():
		require.False(t, ok, "channel must be closed, not carrying a value")
	case <-time.After(time.Second):
		t.Fatal("notifications channel not closed after Close")
	}
}

func TestWebSocketCloseAfterConnectClosesNotifications(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		call := readCall(t, conn)
		writeFrame(conn, `{"jsonrpc":"2.0","result":"0x1","id":%d}`, call.ID)
		conn.ReadMessage()
	})
	defer srv.Close()

	ws := transport.NewWebSocket(wsURL(srv), transport.WithWebSocketLogger(quiet))

	id, call := ws.Prepare("eth_blockNumber", nil)
	res := <-ws.Send(context.Background(), id, call)
	require.NoError(t, res.Err)

	ws.Close()

	select {
	case _, ok := <-ws.Notifications():
		require.False(t, ok, "channel must be closed, not carrying a value")
	case <-time.After(time.Second):
		t.Fatal("notifications channel not closed after Close")
	}
}

func TestWebSocketCloseFailsInFlight(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		readCall(t, conn)
		// Never answer; hold the connection until it drops.
		conn.ReadMessage()
	})
	defer srv.Close()

	ws := transport.NewWebSocket(wsURL(srv), transport.WithWebSocketLogger(quiet))

	id, call := ws.Prepare("eth_blockNumber", nil)
	p := ws.Send(context.Background(), id, call)

	ws.Close()

	res := <-p
	require.ErrorContains(t, res.Err, "connection closed")
}

func TestWebSocketDialFailure(t *testing.T) {
	ws := transport.NewWebSocket("ws://127.0.0.1:1", transport.WithWebSocketLogger(quiet))

	id, call := ws.Prepare("eth_blockNumber", nil)
	res := <-ws.Send(context.Background(), id, call)
	require.ErrorContains(t, res.Err, "dial")
}
