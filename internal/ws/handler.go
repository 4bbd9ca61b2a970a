package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// any origin; the route sits behind JWT auth
		return true
	},
}

// Serve upgrades the request and subscribes the connection to topic. The
// initial event, when given, is the first message the client receives and
// is queued before the client can see any later publish.
func (h *Hub) Serve(c echo.Context, topic string, initial *Event) error {
	if h == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "realtime not available"})
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the error response
		return nil
	}
	cl := &client{hub: h, conn: conn, topic: topic, send: make(chan []byte, sendBufferSize)}
	if initial != nil {
		if data, err := json.Marshal(initial); err == nil {
			cl.send <- data
		}
	}
	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return nil
	}

	go cl.writePump()
	cl.readPump()
	return nil
}
