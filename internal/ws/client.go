package ws

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/Smeruxa/STalk-Messenger/internal/auth"
)

// Conn is the subset of a websocket connection the core writes to.
// *websocket.Conn satisfies it; tests substitute a capturing fake.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// outEvent is the wire envelope for server-to-client events.
type outEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client is one live client connection. Identity is set once at
// connect time and never changes for the lifetime of the connection;
// a credential refresh requires a reconnect.
type Client struct {
	ConnID   string // for log correlation
	Identity *auth.Identity
	Remote   string

	conn    Conn
	writeMu sync.Mutex
}

// NewClient wraps a connection. identity may be nil for unverified
// connections (pre-login handshake).
func NewClient(conn Conn, remote string, identity *auth.Identity) *Client {
	return &Client{
		ConnID:   ulid.Make().String(),
		Identity: identity,
		Remote:   remote,
		conn:     conn,
	}
}

// Verified reports whether the connection carries a verified identity.
func (c *Client) Verified() bool {
	return c.Identity != nil
}

// Emit writes one event frame to the client. Writes are serialized so
// concurrent fan-out from other connections' handlers cannot interleave
// frames.
func (c *Client) Emit(event string, data any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(outEvent{Event: event, Data: data})
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
