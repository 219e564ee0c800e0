package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// readWait bounds the silence between two client messages. Clients are
	// expected to ping well within it.
	readWait = 2 * time.Minute

	// MaxMessageSize caps a single client frame. An event with the largest
	// allowed details payload fits well within it.
	MaxMessageSize = 16 << 10
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// WriteAck acknowledges one event message.
func WriteAck(conn *websocket.Conn, accepted bool) error {
	return WriteTyped(conn, AckResponse{Event: EventAck, Accepted: accepted})
}

// ReadMessage reads the next text frame, extending the read deadline.
func ReadMessage(conn *websocket.Conn) ([]byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	_, data, err := conn.ReadMessage()
	return data, err
}
