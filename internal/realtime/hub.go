package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Envelope is the wire format for every realtime event, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub maps user identities to live connections and connections to rooms.
// It is process-local and rebuilt from nothing on restart: delivery through
// it is a latency optimization, never a durability guarantee. All methods are
// safe for concurrent use.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*Client]struct{}
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		users: make(map[string]map[*Client]struct{}),
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Register binds a connection to its user's broadcast group. A user may hold
// any number of simultaneous connections (multi-device).
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.users[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[c.userID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a connection from its user group and every room it
// joined, then closes its send queue. Calling it twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if set, ok := h.users[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.userID)
		}
	}
	for roomID := range c.rooms {
		h.removeFromRoom(c, roomID)
	}
	close(c.send)
}

// JoinRoom adds the connection to a named room (e.g. a thread's broadcast
// group), independent of the per-user group.
func (h *Hub) JoinRoom(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	set, ok := h.rooms[roomID]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[roomID] = set
	}
	set[c] = struct{}{}
	c.rooms[roomID] = struct{}{}
}

// LeaveRoom removes the connection from a room; no-op if it never joined.
func (h *Hub) LeaveRoom(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(c, roomID)
}

func (h *Hub) removeFromRoom(c *Client, roomID string) {
	delete(c.rooms, roomID)
	if set, ok := h.rooms[roomID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Push fan-outs an event to every live connection of userID and returns the
// number of connections it reached. Zero connections means the event is
// dropped; the persisted record remains the source of truth. Push never
// blocks: a connection whose send queue is full misses the event.
func (h *Hub) Push(userID, event string, payload interface{}) int {
	b, err := encode(event, payload)
	if err != nil {
		slog.Error("realtime: encode push event", "event", event, "err", err)
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.users[userID] {
		if c.enqueue(b) {
			delivered++
		}
	}
	return delivered
}

// Broadcast fan-outs an event to every connection in a room.
func (h *Hub) Broadcast(roomID, event string, payload interface{}) int {
	b, err := encode(event, payload)
	if err != nil {
		slog.Error("realtime: encode broadcast event", "event", event, "err", err)
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.rooms[roomID] {
		if c.enqueue(b) {
			delivered++
		}
	}
	return delivered
}

// Connections reports how many live connections a user currently holds.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

func encode(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
