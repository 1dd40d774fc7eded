/*
 * nodeengine
 *
 * Package ws is a companion websocket transport carrying the `wire`
 * protocol (§6) over a gorilla/websocket connection, driving one
 * engine.Engine from possibly many concurrent client connections.
 */
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/krotik/nodeengine/wire"
)

/*
Connection wraps one websocket connection, serializing concurrent reads
and concurrent writes the way gorilla/websocket itself requires (one
concurrent reader, one concurrent writer per connection -
https://godoc.org/github.com/gorilla/websocket#hdr-Concurrency).
*/
type Connection struct {
	Conn   *websocket.Conn
	rMutex sync.Mutex
	wMutex sync.Mutex
}

/*
NewConnection wraps an already-upgraded websocket connection.
*/
func NewConnection(c *websocket.Conn) *Connection {
	return &Connection{Conn: c}
}

/*
ReadEnvelope reads and decodes one wire.Envelope. fatal reports whether
the underlying connection should be considered dead (a read error other
than a malformed JSON body).
*/
func (c *Connection) ReadEnvelope() (env wire.Envelope, fatal bool, err error) {
	c.rMutex.Lock()
	_, msg, err := c.Conn.ReadMessage()
	c.rMutex.Unlock()

	if err != nil {
		return wire.Envelope{}, true, err
	}

	if err = json.Unmarshal(msg, &env); err != nil {
		return wire.Envelope{}, false, err
	}

	return env, false, nil
}

/*
Send encodes env and writes it as a single text frame.
*/
func (c *Connection) Send(env wire.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	c.wMutex.Lock()
	defer c.wMutex.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

/*
Close sends a normal-closure control frame (best effort) and closes the
underlying connection.
*/
func (c *Connection) Close(reason string) {
	c.wMutex.Lock()
	c.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(10*time.Second))
	c.wMutex.Unlock()

	c.Conn.Close()
}
