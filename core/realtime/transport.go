package realtime

import (
	"context"
	"errors"
	"fmt"
)

// ErrCleanClosed is returned by Conn.ReadMessage when the peer ended the
// connection with a normal close. A clean close never triggers reconnection.
var ErrCleanClosed = errors.New("realtime: channel closed cleanly")

// CredentialError reports that the short-lived connection ticket could not be
// obtained. The attempt is abandoned and the usual reconnect backoff applies.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string { return fmt.Sprintf("realtime: fetch ticket: %v", e.Err) }

func (e *CredentialError) Unwrap() error { return e.Err }

// Conn is one open push-channel connection.
type Conn interface {
	// ReadMessage blocks for the next inbound frame. It returns
	// ErrCleanClosed after a normal close and any other error for a
	// transport failure.
	ReadMessage() ([]byte, error)
	// WriteMessage sends one outbound frame; the engine only sends pings.
	WriteMessage(data []byte) error
	// Close tears the connection down. A clean close tells the server the
	// session ended on purpose.
	Close(clean bool) error
}

// Transport dials one channel connection, including whatever credential
// exchange the concrete transport requires.
type Transport interface {
	Open(ctx context.Context) (Conn, error)
}
