package call

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/comms-client/pkg/signal"
	"github.com/morezero/comms-client/pkg/target"
	"github.com/morezero/comms-client/pkg/transport"
)

const clientLogPrefix = "call:client"

// Client owns all shared state of the call engine: the call registry, the
// connection-proxy cache, the signal callback registry and the notification
// pump. Construct one per process (or per bus), pass it around explicitly,
// and Close it when done.
//
// Distinct Call instances may be invoked concurrently from several
// goroutines; the Client's internal locks are held only for map operations,
// never across a blocking invocation.
type Client struct {
	registry *registry
	proxies  *proxyCache
	signals  *signal.Registry
	pump     *signal.Pump

	// sleep is the retry backoff; replaced in tests.
	sleep func(time.Duration)
}

// NewClient creates a Client that reaches the bus through dialer.
func NewClient(dialer transport.Dialer) *Client {
	cl := &Client{
		registry: newRegistry(),
		signals:  signal.NewRegistry(),
		pump:     signal.NewPump(),
		sleep:    time.Sleep,
	}
	cl.proxies = newProxyCache(dialer, cl.pump.Deliver)
	return cl
}

// OnSignal registers cb for the named signal from the endpoint described by
// desc and makes sure a proxy for the sender exists so notifications can be
// received. It reports whether the proxy is live; the callback stays
// registered either way and fires once a later call dials the sender.
func (cl *Client) OnSignal(desc target.Descriptor, signalName string, cb signal.Callback) bool {
	cl.signals.Add(desc.Service, signalName, cb)
	return cl.proxies.get(desc, UseExisting) != nil
}

// OnSignalFrom is OnSignal with the descriptor derived from the service
// name by convention.
func (cl *Client) OnSignalFrom(service, signalName string, cb signal.Callback) bool {
	return cl.OnSignal(target.FromName(service), signalName, cb)
}

// ProcessSignals dispatches pending signal notifications to their callbacks
// for up to wait, sleeping while there is nothing to do. Iterate it in a
// loop until it returns false:
//
//	for cl.ProcessSignals(time.Second) {
//		// periodic housekeeping
//	}
//
// Pass signal.WaitForever to block until StopSignals. Returns false once
// dispatching has been permanently stopped.
func (cl *Client) ProcessSignals(wait time.Duration) bool {
	return cl.pump.Process(wait, cl.dispatch)
}

// StopSignals permanently stops signal dispatching. Idempotent; callable
// from any goroutine; unblocks a ProcessSignals(signal.WaitForever).
func (cl *Client) StopSignals() {
	cl.pump.Stop()
}

func (cl *Client) dispatch(n transport.Notification) {
	for _, cb := range cl.signals.Lookup(n) {
		invokeCallback(cb, n)
	}
}

// invokeCallback shields the pump from a panicking callback.
func invokeCallback(cb signal.Callback, n transport.Notification) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - callback for %s.%s panicked: %v", clientLogPrefix, n.Sender, n.Signal, r))
		}
	}()
	cb(n.Sender, n.Signal)
}

// Close tears the client down: stops signal dispatching, closes the call
// registry (every later registry operation fails fast) and releases all
// cached connection handles. One-way.
func (cl *Client) Close() {
	cl.pump.Stop()
	cl.registry.close()
	cl.proxies.closeAll()
}
