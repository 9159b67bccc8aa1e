package transport

import (
	"context"

	"github.com/coder/websocket"
)

// Conn is the minimal surface the manager needs from a socket. Tests
// substitute an in-memory implementation.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// DialFunc opens a Conn for the given URL.
type DialFunc func(ctx context.Context, url string) (Conn, error)

type wsConn struct {
	ws *websocket.Conn
}

// Dial opens a WebSocket connection.
func Dial(ctx context.Context, url string) (Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.ws.Read(ctx)
	return data, err
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "client closing")
}
