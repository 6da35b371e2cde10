package transport

import (
	"context"
	"net"
)

// Transport is the capability the connection manager depends on to reach
// the remote endpoint. It is consumed, never implemented, by pkg/link.
type Transport interface {
	// Probe tests whether a connection could currently be opened.
	// It is synchronous and bounded in time, and leaves no persistent
	// handle behind.
	Probe(ctx context.Context, endpoint string) error

	// Connect establishes a connection. On success the returned handle
	// is owned exclusively by the caller; on failure no handle exists.
	Connect(ctx context.Context, endpoint string) (Conn, error)
}

// Conn is one established session with the remote endpoint.
// A Conn is created, used and closed by a single goroutine.
type Conn interface {
	// ID returns the unique identifier of this connection (UUID).
	ID() string

	// RemoteAddr returns the remote network address.
	RemoteAddr() net.Addr

	// Service drives protocol-level control traffic: answers pings,
	// records pongs, observes remote close. Non-blocking. Returns an
	// error once the connection is no longer usable.
	Service() error

	// IsOpen is a cheap status check.
	IsOpen() bool

	// Receive returns the next pending application payload, or
	// (nil, nil) when nothing is available right now. "Nothing
	// available" is not an error and must not end the session.
	Receive() ([]byte, error)

	// Send transmits an application payload. May block briefly.
	// A send failure is terminal for the session.
	Send(payload []byte) error

	// SendHeartbeat transmits a heartbeat control message.
	SendHeartbeat() error

	// SendClose announces graceful teardown. Best-effort: the caller
	// must Close the handle regardless of the result.
	SendClose(reason uint8) error

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*TCP)(nil)
	_ Conn      = (*ClientConn)(nil)
)
