// Package signal holds the callback registry for bus signal subscriptions
// and the cooperative pump that dispatches received notifications.
package signal

import (
	"sync"

	"github.com/morezero/comms-client/pkg/transport"
)

// Callback is invoked for every matching signal with the sender's service
// name and the signal name. Signal payloads are not decoded.
type Callback func(sender, signal string)

// Registry maps (sender name, signal name) to the callbacks registered for
// it, in registration order.
type Registry struct {
	mu sync.Mutex
	m  map[string][]Callback
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string][]Callback)}
}

func key(sender, signal string) string {
	return sender + " " + signal
}

// Add appends a callback for the (sender, signal) pair.
func (r *Registry) Add(sender, signal string, cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(sender, signal)
	r.m[k] = append(r.m[k], cb)
}

// Lookup returns a snapshot of the callbacks registered for the pair.
func (r *Registry) Lookup(n transport.Notification) []Callback {
	r.mu.Lock()
	defer r.mu.Unlock()
	cbs := r.m[key(n.Sender, n.Signal)]
	return append([]Callback(nil), cbs...)
}
