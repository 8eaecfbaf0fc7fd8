package websocket

import (
	"net/http"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// Handler exposes the WebSocket endpoints that feed the hub.
type Handler struct {
	hub *Hub
}

// NewHandler creates a handler bound to the given hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes registers the WebSocket endpoints on the provided group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws/rooms/:room", h.HandleRoom(false))
	g.GET("/ws/consultations/:id", h.HandleConsultation)
}

// HandleRoom upgrades the connection and subscribes it to the named room.
// When relay is true, inbound text frames are re-published to the room, which
// is how consultation chat works.
func (h *Handler) HandleRoom(relay bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		room := c.Param("room")
		if room == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "room is required")
		}
		return h.serve(c, room, relay)
	}
}

// HandleConsultation joins the chat room for one consultation. All inbound
// messages are relayed to every participant in the room.
func (h *Handler) HandleConsultation(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "consultation id is required")
	}
	return h.serve(c, "consultation:"+id, true)
}

func (h *Handler) serve(c echo.Context, room string, relay bool) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient()
	h.hub.Subscribe(room, client)

	go h.writePump(client, ws)
	go h.readPump(client, ws, room, relay)

	return nil
}

// readPump reads frames until the connection dies, then detaches the client.
func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn, room string, relay bool) {
	defer func() {
		h.hub.Disconnect(client)
		ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			break
		}
		if relay {
			h.hub.Publish(room, Event{
				Type:    "chat.message",
				Message: string(message),
			})
		}
	}
}

// writePump drains the client's send queue onto the socket.
func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}
