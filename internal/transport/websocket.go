package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// WebSocketDialer connects to a danmaku server over ws:// or wss://.
// The header set is sent with every handshake, including reconnects.
type WebSocketDialer struct {
	header http.Header
}

func NewWebSocketDialer(header http.Header) *WebSocketDialer {
	return &WebSocketDialer{header: header}
}

// Dial performs the handshake. ctx bounds the handshake only; the returned
// connection outlives it.
func (d *WebSocketDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, endpoint, &websocket.DialOptions{HTTPHeader: d.header})
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", Redact(endpoint), err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	wc := &wsConn{c: c, cancel: cancel}
	go wc.discardInbound(readCtx)
	return wc, nil
}

type wsConn struct {
	c      *websocket.Conn
	cancel context.CancelFunc
}

// discardInbound keeps a reader running so pings and the close handshake are
// answered. The server has nothing to tell us; data frames are dropped.
func (w *wsConn) discardInbound(ctx context.Context) {
	for {
		if _, _, err := w.c.Read(ctx); err != nil {
			return
		}
	}
}

func (w *wsConn) Send(ctx context.Context, frame []byte) error {
	if err := w.c.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

func (w *wsConn) Close() error {
	defer w.cancel()
	return w.c.Close(websocket.StatusNormalClosure, "")
}

// compile-time check that WebSocketDialer implements Dialer
var _ Dialer = (*WebSocketDialer)(nil)
