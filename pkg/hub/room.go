package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aeroline/flightcore/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 64
)

// subscribeRequest is a client-sent control message joining or leaving a
// room on an already-open connection.
type subscribeRequest struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Room   string `json:"room"`
}

// Envelope is the JSON frame pushed to subscribed clients.
type Envelope struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Data any    `json:"data"`
}

// Client is one authenticated websocket connection and the rooms it has
// joined.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID string
	Roles  []string

	rooms map[string]struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, userID string, roles []string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		UserID: userID,
		Roles:  roles,
		rooms:  make(map[string]struct{}),
	}
}

// ReadPump reads subscribe/unsubscribe control frames from the client until
// the connection closes or ctx is cancelled. It must run in its own
// goroutine and is the only reader of conn.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.removeClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req subscribeRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			logger.WarnCtx(ctx, "dropping malformed websocket control frame", "error", err)
			continue
		}

		switch req.Action {
		case "subscribe":
			if err := c.hub.Subscribe(ctx, c, req.Room); err != nil {
				c.sendError(req.Room, err)
			}
		case "unsubscribe":
			c.hub.Unsubscribe(c, req.Room)
		default:
			logger.WarnCtx(ctx, "ignoring unknown websocket action", "action", req.Action)
		}
	}
}

// WritePump drains the client's send channel to the websocket connection
// and emits periodic pings. It must run in its own goroutine and is the
// only writer of conn.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendError(room string, err error) {
	payload, marshalErr := json.Marshal(Envelope{Type: "error", Room: room, Data: err.Error()})
	if marshalErr != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
