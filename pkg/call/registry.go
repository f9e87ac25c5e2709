package call

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/morezero/comms-client/pkg/target"
)

const registryLogPrefix = "call:registry"

// Per-record invocation states. A record is InFlight while exactly one
// invocation owns it; a failed swap to InFlight means a second goroutine is
// invoking the same call instance, which is a caller bug.
const (
	stateIdle int32 = iota
	stateInFlight
)

// record is the registry-owned data of one registered call.
type record struct {
	desc   target.Descriptor
	method string
	valid  bool // target and method passed the grammar checks
	params []*param
	state  atomic.Int32
}

// registry is the process-shared map from call identity to its record. The
// mutex is held only for map operations, never across an invocation.
type registry struct {
	mu     sync.Mutex
	calls  map[*Call]*record
	closed atomic.Bool
}

func newRegistry() *registry {
	return &registry{calls: make(map[*Call]*record)}
}

// open reports whether the registry may still be used, logging when a
// goroutine touches it after Close.
func (r *registry) open() bool {
	if r.closed.Load() {
		slog.Error(fmt.Sprintf("%s - detected access to the client after it was closed", registryLogPrefix))
		return false
	}
	return true
}

func (r *registry) add(c *Call, rec *record) {
	if !r.open() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[c] = rec
}

// borrow hands out the record for c for the duration of one invocation,
// flipping it to InFlight. It returns nil when the registry is closed, the
// call is not registered, or the call is already in flight on another
// goroutine; each case is logged.
func (r *registry) borrow(c *Call) *record {
	if !r.open() {
		return nil
	}
	r.mu.Lock()
	rec := r.calls[c]
	r.mu.Unlock()

	if rec == nil {
		slog.Error(fmt.Sprintf("%s - invoking an unregistered or closed call", registryLogPrefix))
		return nil
	}
	if !rec.state.CompareAndSwap(stateIdle, stateInFlight) {
		slog.Error(fmt.Sprintf("%s - %s:%s is already in flight; simultaneous use of one call instance from several goroutines",
			registryLogPrefix, rec.desc.Interface, rec.method))
		return nil
	}
	return rec
}

// release returns a borrowed record to Idle.
func (r *registry) release(rec *record) {
	if !rec.state.CompareAndSwap(stateInFlight, stateIdle) {
		slog.Error(fmt.Sprintf("%s - %s:%s released while not in flight",
			registryLogPrefix, rec.desc.Interface, rec.method))
	}
}

// appendParam adds a constructed param to the call's record. Params may only
// be added between registration and the first invocation.
func (r *registry) appendParam(c *Call, p *param) {
	if !r.open() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.calls[c]
	if rec == nil {
		slog.Error(fmt.Sprintf("%s - error initializing parameter %q: no registered call instance", registryLogPrefix, p.name))
		return
	}
	if c.sealed.Load() {
		slog.Error(fmt.Sprintf("%s - error initializing parameter %q: %s:%s was already invoked",
			registryLogPrefix, p.name, rec.desc.Interface, rec.method))
		return
	}
	rec.params = append(rec.params, p)
}

func (r *registry) remove(c *Call) {
	if !r.open() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.calls, c)
}

// close flips the one-way closed flag. Every later operation fails fast
// instead of touching the maps from a goroutine that outlives the client.
func (r *registry) close() {
	r.closed.Store(true)
}
