// Package websocket implements the real-time fan-out hub. Clients subscribe
// to rooms (a consultation id, a doctor's or patient's personal room, or the
// global staff room) and receive events published when encounter or billing
// state changes.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Room name helpers. Rooms are plain strings; these keep the naming scheme in
// one place so publishers and subscribers agree.
func DoctorRoom(userID uuid.UUID) string   { return "doctor:" + userID.String() }
func PatientRoom(userID uuid.UUID) string  { return "patient:" + userID.String() }
func ConsultationRoom(id uuid.UUID) string { return "consultation:" + id.String() }
func AppointmentRoom(id uuid.UUID) string  { return "appointment:" + id.String() }

// Event is the structured payload delivered to subscribers.
type Event struct {
	Type         string    `json:"type"`
	Room         string    `json:"room,omitempty"`
	ResourceType string    `json:"resourceType,omitempty"`
	ResourceID   string    `json:"resourceId,omitempty"`
	Message      string    `json:"message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Client represents a single live subscriber connection. Send is drained by
// the connection's write pump; the hub never blocks on it.
type Client struct {
	ID   string
	Send chan []byte

	rooms map[string]struct{} // guarded by the hub mutex
}

// NewClient creates a client handle with a buffered send queue.
func NewClient() *Client {
	return &Client{
		ID:    uuid.New().String(),
		Send:  make(chan []byte, 256),
		rooms: make(map[string]struct{}),
	}
}

// Hub is the in-process registry mapping room identifiers to live subscriber
// sets. One coarse RWMutex guards all registry state.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Subscribe adds the client to a room, creating the room on first subscriber.
// Subscribing twice is a no-op.
func (h *Hub) Subscribe(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.rooms[room] = struct{}{}
}

// Unsubscribe removes the client from a room. The room entry is deleted when
// its last subscriber leaves; rooms are never persisted.
func (h *Hub) Unsubscribe(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(room, client)
}

// Disconnect removes the client from every room it joined and closes its
// send queue.
func (h *Hub) Disconnect(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range client.rooms {
		h.removeLocked(room, client)
	}
	close(client.Send)
}

func (h *Hub) removeLocked(room string, client *Client) {
	subscribers, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(subscribers, client)
	delete(client.rooms, room)
	if len(subscribers) == 0 {
		delete(h.rooms, room)
	}
}

// Publish delivers the event to every current subscriber of the room.
// Publishing to a room with no subscribers is a no-op. Delivery happens under
// the read lock: Disconnect needs the write lock to close a send queue, so a
// publish can never hit a closed channel. Subscribers whose send queue is
// full are skipped; delivery is at-most-once with no buffering or replay.
func (h *Hub) Publish(room string, event Event) {
	event.Room = room
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("room", room).Msg("marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[room] {
		h.deliver(client, data)
	}
}

// BroadcastAll delivers the event to every subscriber across every room,
// at most once per client even when it belongs to several rooms. Like
// Publish, it delivers under the read lock.
func (h *Hub) BroadcastAll(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*Client]struct{})
	for _, subscribers := range h.rooms {
		for client := range subscribers {
			if _, dup := seen[client]; dup {
				continue
			}
			seen[client] = struct{}{}
			h.deliver(client, data)
		}
	}
}

// deliver enqueues without blocking. A dead or slow subscriber loses the
// event; it must never fail the publishing operation.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Debug().Str("client_id", client.ID).Msg("subscriber queue full, event dropped")
	}
}

// RoomCount returns the number of subscribers in a room.
func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// HasRoom reports whether the room currently exists (has any subscriber).
func (h *Hub) HasRoom(room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room]
	return ok
}

// ClientCount returns the number of distinct connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Client]struct{})
	for _, subscribers := range h.rooms {
		for client := range subscribers {
			seen[client] = struct{}{}
		}
	}
	return len(seen)
}
