// Package transport defines the boundary between the call engine and the
// underlying bus: a blocking per-target connection, a dialer that creates
// connections, and the failure taxonomy the retry loop classifies against.
package transport

import (
	"github.com/morezero/comms-client/pkg/target"
	"github.com/morezero/comms-client/pkg/wire"
)

// Code classifies a transport failure.
type Code int

const (
	CodeOK Code = iota
	// CodeServiceUnknown means the target service is not (yet) present on
	// the bus. Transient: the server may simply not be up.
	CodeServiceUnknown
	// CodeDisconnected means the bus connection dropped mid-call.
	CodeDisconnected
	// CodeAccessDenied means bus policy rejected the call.
	CodeAccessDenied
	// CodeUnspecified covers every other transport failure.
	CodeUnspecified
)

// Retriable reports whether the failure is transient and worth a bounded
// retry with a recreated proxy. Only service-unknown and disconnected
// qualify; everything else fails the call immediately.
func (c Code) Retriable() bool {
	return c == CodeServiceUnknown || c == CodeDisconnected
}

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeServiceUnknown:
		return "service unknown, check if server is up"
	case CodeDisconnected:
		return "server disconnected in the middle of the call"
	case CodeAccessDenied:
		return "access denied when trying to send, check policies"
	default:
		return "unspecified transport error"
	}
}

// Error is a classified transport failure. A nil *Error means success.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Message
}

// Errorf builds a classified transport error.
func Errorf(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Conn is a live connection handle bound to one target. Invoke blocks until
// the bus resolves the call with a reply or an error; there is no caller
// timeout. Implementations must be safe for concurrent use.
type Conn interface {
	Invoke(method string, in []wire.Value) ([]wire.Value, *Error)
	Close() error
}

// Notification is a signal delivery: a named signal from a named sender.
// Signal payloads are not decoded.
type Notification struct {
	Sender string
	Signal string
}

// NotifyFunc receives signal notifications for a dialed target. It is called
// from the transport's receive path and must not block.
type NotifyFunc func(Notification)

// Dialer creates connections. Dialing a target also wires up signal
// notification delivery for it as a one-time side effect: matching signals
// received on the bus are handed to notify for as long as the process lives.
type Dialer interface {
	Dial(desc target.Descriptor, notify NotifyFunc) (Conn, error)
}
