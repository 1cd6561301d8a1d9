package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/lthibault/log"

	"github.com/hedeqiang/pulse/internal/syncutil"
	"github.com/hedeqiang/pulse/rpc"
)

const notificationBuffer = 64

// WebSocket implements Transport over a WebSocket connection. Responses are
// routed back to their pending operations by request id, so calls may
// complete in any order. Server-initiated notifications are exposed via
// Notifications.
type WebSocket struct {
	url     string
	conn    *websocket.Conn
	writeMu sync.Mutex
	nextID  atomic.Uint64
	log     log.Logger

	// connection management
	connOnce sync.Once
	connErr  error
	group    *syncutil.Group

	// in-flight request routing
	pendMu  sync.Mutex
	pending map[uint64]func(Result)
	closed  bool

	notifications chan rpc.Notification
	notifyOnce    sync.Once
}

// WebSocketOption configures a WebSocket transport.
type WebSocketOption func(*WebSocket)

// WithWebSocketLogger sets the logger for read-loop diagnostics.
func WithWebSocketLogger(l log.Logger) WebSocketOption {
	return func(ws *WebSocket) {
		ws.log = l
	}
}

// NewWebSocket creates a WebSocket transport. The connection is established
// lazily on the first Send.
func NewWebSocket(url string, opts ...WebSocketOption) *WebSocket {
	ws := &WebSocket{
		url:           url,
		log:           log.New(),
		pending:       make(map[uint64]func(Result)),
		notifications: make(chan rpc.Notification, notificationBuffer),
	}
	for _, opt := range opts {
		opt(ws)
	}
	ws.log = ws.log.WithField("module", "transport/ws")
	return ws
}

// Prepare allocates the next request id and builds the call.
func (ws *WebSocket) Prepare(method string, params []rpc.Value) (uint64, rpc.Call) {
	id := ws.nextID.Add(1)
	return id, rpc.NewCall(id, method, params)
}

// Send writes the call frame and returns the pending operation that will be
// resolved by the read loop when the matching response arrives.
func (ws *WebSocket) Send(ctx context.Context, id uint64, call rpc.Call) Pending {
	p, resolve := NewPending()

	if err := ws.connect(ctx); err != nil {
		resolve(Result{Err: err})
		return p
	}

	payload, err := json.Marshal(call)
	if err != nil {
		resolve(Result{Err: fmt.Errorf("transport/ws: marshal request: %w", err)})
		return p
	}

	ws.pendMu.Lock()
	if ws.closed {
		ws.pendMu.Unlock()
		resolve(Result{Err: fmt.Errorf("transport/ws: connection closed")})
		return p
	}
	ws.pending[id] = resolve
	ws.pendMu.Unlock()

	ws.writeMu.Lock()
	err = ws.conn.WriteMessage(websocket.TextMessage, payload)
	ws.writeMu.Unlock()
	if err != nil {
		ws.fail(id, fmt.Errorf("transport/ws: write: %w", err))
	}
	return p
}

// Notifications returns the channel of incoming server notifications. The
// channel is closed when the transport shuts down.
func (ws *WebSocket) Notifications() <-chan rpc.Notification {
	return ws.notifications
}

// Close terminates the connection and fails every in-flight request.
func (ws *WebSocket) Close() error {
	var err error
	if ws.conn != nil {
		err = ws.conn.Close()
	}
	if ws.group != nil {
		ws.group.Stop()
	}
	ws.failAll(fmt.Errorf("transport/ws: connection closed"))
	// The read loop closes the notifications channel on exit, but it never
	// ran if the connection was never established; closing here keeps the
	// Notifications contract either way.
	ws.closeNotifications()
	return err
}

func (ws *WebSocket) closeNotifications() {
	ws.notifyOnce.Do(func() {
		close(ws.notifications)
	})
}

// connect establishes the WebSocket connection (called lazily, at most once).
func (ws *WebSocket) connect(ctx context.Context) error {
	ws.connOnce.Do(func() {
		dialer := websocket.Dialer{}
		conn, _, err := dialer.DialContext(ctx, ws.url, nil)
		if err != nil {
			ws.connErr = fmt.Errorf("transport/ws: dial: %w", err)
			return
		}
		ws.conn = conn
		ws.group = syncutil.NewGroup(context.Background())
		ws.group.Go(ws.readLoop)
	})
	return ws.connErr
}

// readLoop reads frames and routes them: outputs resolve their pending
// operation by id, id-less frames with a method become notifications.
func (ws *WebSocket) readLoop(ctx context.Context) {
	defer ws.closeNotifications()
	defer ws.failAll(fmt.Errorf("transport/ws: connection closed"))

	for {
		_, message, err := ws.conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				ws.log.WithError(err).Warn("error reading from ws")
			}
			return
		}
		ws.route(message)
	}
}

func (ws *WebSocket) route(message []byte) {
	var envelope struct {
		ID     *uint64    `json:"id"`
		Method string     `json:"method"`
		Result rpc.Value  `json:"result"`
		Error  *rpc.Error `json:"error"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		ws.log.WithError(err).Warn("discarding unparseable frame")
		return
	}

	if envelope.ID != nil {
		ws.pendMu.Lock()
		resolve, ok := ws.pending[*envelope.ID]
		delete(ws.pending, *envelope.ID)
		ws.pendMu.Unlock()
		if !ok {
			ws.log.With(log.F{"id": *envelope.ID}).Info("response for unknown request")
			return
		}
		if envelope.Error != nil {
			resolve(Result{Err: envelope.Error})
			return
		}
		resolve(Result{Value: envelope.Result})
		return
	}

	if envelope.Method != "" {
		var n rpc.Notification
		if err := json.Unmarshal(message, &n); err != nil {
			ws.log.WithError(err).Warn("discarding malformed notification")
			return
		}
		select {
		case ws.notifications <- n:
		default:
			ws.log.With(log.F{"method": envelope.Method}).Warn("notification buffer full, dropping")
		}
	}
}

// fail resolves a single pending request with err, if still in flight.
func (ws *WebSocket) fail(id uint64, err error) {
	ws.pendMu.Lock()
	resolve, ok := ws.pending[id]
	delete(ws.pending, id)
	ws.pendMu.Unlock()
	if ok {
		resolve(Result{Err: err})
	}
}

// failAll resolves every in-flight request with err and refuses new sends.
func (ws *WebSocket) failAll(err error) {
	ws.pendMu.Lock()
	if ws.closed {
		ws.pendMu.Unlock()
		return
	}
	ws.closed = true
	pending := ws.pending
	ws.pending = map[uint64]func(Result){}
	ws.pendMu.Unlock()

	for _, resolve := range pending {
		resolve(Result{Err: err})
	}
}
