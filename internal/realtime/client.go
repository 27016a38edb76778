package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/devforum/api/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // attachments travel base64-encoded
	sendQueueSize  = 64
)

// Client events.
const (
	evJoinRoom    = "join-room"
	evLeaveRoom   = "leave-room"
	evSendMessage = "send-message"
)

// Server events.
const (
	EventNewMessage   = "new-message"
	EventNewComment   = "new-comment"
	EventNotification = "notification"
	EventMessageSent  = "message-sent"
	EventError        = "error"
)

// MessageSender is the slice of the message pipeline the websocket layer
// needs for the send-message convenience event. It mirrors the REST send.
type MessageSender interface {
	Send(ctx context.Context, senderID string, req domain.SendMessageRequest) (*domain.MessageView, error)
}

// Client is one live websocket connection bound to a user identity.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	sender MessageSender

	send   chan []byte
	rooms  map[string]struct{} // guarded by hub.mu
	closed bool                // guarded by hub.mu
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, sender MessageSender) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		sender: sender,
		send:   make(chan []byte, sendQueueSize),
		rooms:  make(map[string]struct{}),
	}
}

// UserID returns the identity the connection is bound to.
func (c *Client) UserID() string { return c.userID }

// enqueue attempts a non-blocking delivery. Callers hold hub.mu (read or
// write), which is what makes the closed check safe against Unregister.
func (c *Client) enqueue(b []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		slog.Warn("realtime: send queue full, dropping event", "user_id", c.userID)
		return false
	}
}

// Run starts the read and write pumps and blocks until the connection drops.
func (c *Client) Run(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("realtime: read error", "user_id", c.userID, "err", err)
			}
			return
		}
		c.dispatch(ctx, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
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

type roomPayload struct {
	RoomID string `json:"room_id"`
}

func (c *Client) dispatch(ctx context.Context, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.pushError("malformed event")
		return
	}
	switch env.Event {
	case evJoinRoom:
		var p roomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			c.pushError("join-room requires room_id")
			return
		}
		c.hub.JoinRoom(c, p.RoomID)
	case evLeaveRoom:
		var p roomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			c.pushError("leave-room requires room_id")
			return
		}
		c.hub.LeaveRoom(c, p.RoomID)
	case evSendMessage:
		var req domain.SendMessageRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.pushError("malformed send-message payload")
			return
		}
		view, err := c.sender.Send(ctx, c.userID, req)
		if err != nil {
			c.pushError(err.Error())
			return
		}
		c.pushSelf(EventMessageSent, view)
	default:
		c.pushError("unknown event: " + env.Event)
	}
}

// pushSelf delivers an event to this connection only.
func (c *Client) pushSelf(event string, payload interface{}) {
	b, err := encode(event, payload)
	if err != nil {
		slog.Error("realtime: encode event", "event", event, "err", err)
		return
	}
	c.hub.mu.RLock()
	c.enqueue(b)
	c.hub.mu.RUnlock()
}

func (c *Client) pushError(msg string) {
	c.pushSelf(EventError, map[string]string{"message": msg})
}
