package ws

import (
	"net/http"

	"github.com/gorilla/websocket"

	"devt.de/krotik/common/logutil"
)

var log = logutil.GetLogger("nodeengine.transport.ws")

/*
upgrader upgrades an incoming HTTP request to a websocket speaking the
wire protocol's subprotocol.
*/
var upgrader = websocket.Upgrader{
	Subprotocols:    []string{"nodeengine-wire"},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

/*
Handler upgrades requests and drives them through a Hub. Construct one
per Hub and mount it at whatever path the host chooses (e.g. "/ws/").
*/
type Handler struct {
	hub *Hub
}

/*
NewHandler builds an http.Handler serving hub's engine over websockets.
*/
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

/*
ServeHTTP upgrades the request and services the connection until the
client disconnects or sends a fatal read error.
*/
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the client already received an HTTP error response from Upgrade.
		return
	}

	conn := NewConnection(wsConn)
	h.hub.Register(conn)
	defer h.hub.Unregister(conn)
	defer conn.Close("")

	for {
		env, fatal, err := conn.ReadEnvelope()
		if err != nil {
			if fatal {
				log.Debug(err)
				return
			}
			continue
		}

		h.hub.Handle(conn, env)
	}
}
