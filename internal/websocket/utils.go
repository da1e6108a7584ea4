package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// readWait is how long a silent client is kept. Clients ping well within it.
	readWait = 2 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteEvent sends an event with a data payload.
func WriteEvent(conn *websocket.Conn, event Event, data interface{}) error {
	return WriteTyped(conn, DataResponse{Event: event, Data: data})
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadRaw reads one message without decoding it, so the caller can peek at
// the action first. It sets a read deadline.
func ReadRaw(conn *websocket.Conn) (json.RawMessage, error) {
	conn.SetReadDeadline(time.Now().Add(readWait))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
