package comms

import (
	"github.com/morezero/comms-client/pkg/transport"
	"github.com/morezero/comms-client/pkg/wire"
)

// CallRequest is the JSON envelope for an outgoing method call.
type CallRequest struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"` // always "call"
	Service   string       `json:"service"`
	Path      string       `json:"path"`
	Interface string       `json:"iface"`
	Method    string       `json:"method"`
	Args      []wire.Value `json:"args"`
}

// CallResponse is the JSON envelope for a method reply.
type CallResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result []wire.Value `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information from the responder.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// SignalEvent is the JSON envelope for a published signal. Payload fields
// beyond the sender and signal name are not decoded.
type SignalEvent struct {
	Sender string `json:"sender"`
	Signal string `json:"signal"`
}

// Responder-side error codes carried in ErrorDetail.Code.
const (
	ErrCodeServiceUnknown = "SERVICE_UNKNOWN"
	ErrCodeDisconnected   = "DISCONNECTED"
	ErrCodeAccessDenied   = "ACCESS_DENIED"
	ErrCodeUnspecified    = "UNSPECIFIED"
)

// codeOf maps a responder error code to the transport taxonomy.
func codeOf(detail *ErrorDetail) transport.Code {
	if detail == nil {
		return transport.CodeUnspecified
	}
	switch detail.Code {
	case ErrCodeServiceUnknown:
		return transport.CodeServiceUnknown
	case ErrCodeDisconnected:
		return transport.CodeDisconnected
	case ErrCodeAccessDenied:
		return transport.CodeAccessDenied
	default:
		return transport.CodeUnspecified
	}
}
