package transport

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame or close message to the peer
	writeWait = 10 * time.Second
)

// WebSocketConn carries one frame per binary websocket message
type WebSocketConn struct {
	socket *websocket.Conn
}

// NewWebSocketConn wraps an upgraded or dialed websocket
func NewWebSocketConn(socket *websocket.Conn, maxFrame int) *WebSocketConn {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	socket.SetReadLimit(int64(maxFrame))
	return &WebSocketConn{socket: socket}
}

var _ Conn = (*WebSocketConn)(nil)

func (c *WebSocketConn) ReadFrame() ([]byte, error) {
	_, p, err := c.socket.ReadMessage()
	return p, err
}

func (c *WebSocketConn) WriteFrame(frame []byte) error {
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	return c.socket.WriteMessage(websocket.BinaryMessage, frame)
}

func (c *WebSocketConn) SetReadDeadline(t time.Time) error {
	return c.socket.SetReadDeadline(t)
}

func (c *WebSocketConn) RemoteAddr() string {
	return c.socket.RemoteAddr().String()
}

// Close sends a close message and closes the socket.
// WriteControl may run concurrently with the session writer.
func (c *WebSocketConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.socket.Close()
}
