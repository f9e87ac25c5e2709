// Package call implements the typed bus call engine: call declaration with
// typed IN/OUT parameters, the registered-call ownership check, the
// connection-proxy cache and the retry/execution loop.
//
// Usage:
//
//	cl := call.NewClient(dialer)
//	defer cl.Close()
//
//	add := cl.NewCallTo("org.example.Svc", "Add")
//	a := call.InInt32(add, "a")
//	b := call.InInt32(add, "b")
//	sum := call.OutInt32(add, "sum")
//	defer add.Close()
//
//	a.Set(2)
//	b.Set(3)
//	if add.Invoke() {
//		fmt.Println(sum.Value()) // 5
//	}
//
// A call instance must not be invoked from two goroutines at once; the
// engine detects this and fails the call instead of corrupting its outputs.
package call

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/morezero/comms-client/pkg/target"
)

const callLogPrefix = "call:call"

// Call is one caller-owned declaration of a remote method: a target, a
// method name and an ordered list of typed parameters. Its pointer identity
// keys the client's call registry for the lifetime of the instance.
type Call struct {
	client *Client
	desc   target.Descriptor
	method string
	sealed atomic.Bool // set on first Invoke; no further params accepted
}

// Target returns the call's target descriptor.
func (c *Call) Target() target.Descriptor { return c.desc }

// Method returns the call's method name.
func (c *Call) Method() string { return c.method }

// Close unregisters the call. The Call must not be used afterwards. Avoid
// closing a call while an invocation on it is still running in another
// goroutine.
func (c *Call) Close() {
	c.client.registry.remove(c)
}

// NewCall declares a call of method on the endpoint described by desc and
// registers it. Grammar violations in the target or the method name are each
// logged; the call is still returned but will never attempt transport and
// every Invoke on it reports failure.
func (cl *Client) NewCall(desc target.Descriptor, method string) *Call {
	valid := true
	for _, problem := range desc.Validate() {
		slog.Error(fmt.Sprintf("%s - %s", callLogPrefix, problem))
		valid = false
	}
	if !target.ValidMemberName(method) {
		slog.Error(fmt.Sprintf("%s - %s: invalid bus method name", callLogPrefix, method))
		valid = false
	}

	c := &Call{client: cl, desc: desc, method: method}
	cl.registry.add(c, &record{desc: desc, method: method, valid: valid})
	return c
}

// NewCallTo is NewCall with the descriptor derived from the service name by
// convention (dots become slashes in the object path, the interface name
// equals the service name).
func (cl *Client) NewCallTo(service, method string) *Call {
	return cl.NewCall(target.FromName(service), method)
}
