package comms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/comms-client/pkg/target"
	"github.com/morezero/comms-client/pkg/transport"
	"github.com/morezero/comms-client/pkg/wire"
)

const dialerLogPrefix = "comms:dialer"

// Dialer implements transport.Dialer over one shared COMMS connection. The
// connection is owned by whoever created it (Connect); the Dialer only
// borrows it.
type Dialer struct {
	nc *comms.Conn

	mu   sync.Mutex
	subs map[string]*comms.Subscription // signal fan-in, one per service
}

// NewDialer wraps an established COMMS connection.
func NewDialer(nc *comms.Conn) *Dialer {
	return &Dialer{nc: nc, subs: make(map[string]*comms.Subscription)}
}

// Dial binds a connection handle to the target's call subject. As a
// one-time-per-target side effect it subscribes to the target's signals,
// fanning notifications into notify for as long as the process lives.
func (d *Dialer) Dial(desc target.Descriptor, notify transport.NotifyFunc) (transport.Conn, error) {
	if problems := desc.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("%s - refusing to dial %s: %s", dialerLogPrefix, desc.Service, strings.Join(problems, "; "))
	}
	if err := d.ensureSignalSub(desc.Service, notify); err != nil {
		return nil, err
	}
	return &conn{nc: d.nc, subject: CallSubject(desc.Service), desc: desc}, nil
}

// ensureSignalSub subscribes to the service's signal wildcard once,
// re-subscribing only if a previous subscription went invalid.
func (d *Dialer) ensureSignalSub(service string, notify transport.NotifyFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if sub, ok := d.subs[service]; ok && sub.IsValid() {
		return nil
	}

	sub, err := d.nc.Subscribe(SignalWildcard(service), func(msg *comms.Msg) {
		var ev SignalEvent
		if err := DecodePayload(msg.Data, &ev); err != nil || ev.Signal == "" {
			// Bodyless or foreign publication: fall back to the subject's
			// last token as the signal name.
			ev.Signal = msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:]
		}
		if ev.Sender == "" {
			ev.Sender = service
		}
		notify(transport.Notification{Sender: ev.Sender, Signal: ev.Signal})
	})
	if err != nil {
		return fmt.Errorf("%s - subscribing to signals of %s: %w", dialerLogPrefix, service, err)
	}
	d.subs[service] = sub
	return nil
}

// conn is a connection handle bound to one target's call subject.
type conn struct {
	nc      *comms.Conn
	subject string
	desc    target.Descriptor
}

// Invoke performs the request/reply round trip. It waits indefinitely: only
// a transport-level error or a reply resolves the call.
func (c *conn) Invoke(method string, in []wire.Value) ([]wire.Value, *transport.Error) {
	req := CallRequest{
		ID:        uuid.NewString(),
		Type:      "call",
		Service:   c.desc.Service,
		Path:      c.desc.Path,
		Interface: c.desc.Interface,
		Method:    method,
		Args:      in,
	}
	data, err := EncodePayload(req)
	if err != nil {
		return nil, transport.Errorf(transport.CodeUnspecified, "encoding request: "+err.Error())
	}

	msg, err := c.nc.RequestMsgWithContext(context.Background(), &comms.Msg{Subject: c.subject, Data: data})
	if err != nil {
		return nil, classify(err)
	}

	var resp CallResponse
	if err := DecodePayload(msg.Data, &resp); err != nil {
		return nil, transport.Errorf(transport.CodeUnspecified, "decoding reply: "+err.Error())
	}
	if !resp.Ok {
		terr := transport.Errorf(codeOf(resp.Error), errMessage(resp.Error))
		slog.Debug(fmt.Sprintf("%s - %s %s failed: %v", dialerLogPrefix, c.subject, method, terr))
		return nil, terr
	}
	return resp.Result, nil
}

// Close releases the handle. The underlying bus connection is shared and
// stays open; signal subscriptions outlive the handle on purpose.
func (c *conn) Close() error { return nil }

func classify(err error) *transport.Error {
	switch {
	case errors.Is(err, comms.ErrNoResponders):
		return transport.Errorf(transport.CodeServiceUnknown, err.Error())
	case errors.Is(err, comms.ErrConnectionClosed),
		errors.Is(err, comms.ErrInvalidConnection),
		errors.Is(err, comms.ErrConnectionDraining):
		return transport.Errorf(transport.CodeDisconnected, err.Error())
	default:
		return transport.Errorf(transport.CodeUnspecified, err.Error())
	}
}

func errMessage(detail *ErrorDetail) string {
	if detail == nil {
		return "responder reported failure without detail"
	}
	return "[" + detail.Code + "]: " + detail.Message
}
