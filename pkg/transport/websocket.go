package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// pongWait bounds how long a read can go without a message or a pong
// before the connection is considered dead.
const pongWait = 60 * time.Second

// WebsocketDuplex adapts a gorilla/websocket connection to Duplex,
// serializing writes (gorilla connections are not safe for concurrent
// writers) and resetting the read deadline on every message and pong.
type WebsocketDuplex struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

// NewWebsocketDuplex wraps conn, installing a pong handler that extends
// the read deadline.
func NewWebsocketDuplex(conn *websocket.Conn) *WebsocketDuplex {
	wd := &WebsocketDuplex{conn: conn}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return wd
}

// ReadMessage blocks for the next binary message and, on success, extends
// the read deadline so regular traffic (including Heartbeat frames) keeps
// the connection alive.
func (wd *WebsocketDuplex) ReadMessage() ([]byte, error) {
	_, data, err := wd.conn.ReadMessage()
	if err != nil {
		return data, err
	}
	wd.conn.SetReadDeadline(time.Now().Add(pongWait))
	return data, nil
}

// WriteMessage sends data as a single binary websocket message.
func (wd *WebsocketDuplex) WriteMessage(data []byte) error {
	wd.writeMu.Lock()
	defer wd.writeMu.Unlock()
	return wd.conn.WriteMessage(websocket.BinaryMessage, data)
}

// WritePing sends a ping control frame, for keeping NAT/proxy-mediated
// connections alive independent of the protocol's own Heartbeat frame.
// Nothing in the repository calls it; no ping is sent on a schedule.
func (wd *WebsocketDuplex) WritePing() error {
	wd.writeMu.Lock()
	defer wd.writeMu.Unlock()
	return wd.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

// Close closes the underlying connection.
func (wd *WebsocketDuplex) Close() error {
	return wd.conn.Close()
}
