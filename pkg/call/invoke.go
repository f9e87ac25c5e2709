package call

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/comms-client/pkg/transport"
	"github.com/morezero/comms-client/pkg/wire"
)

const invokeLogPrefix = "call:invoke"

const (
	// maxAttempts bounds the invocation attempts for retriable failures.
	maxAttempts = 3
	// retryDelay is slept before each retry attempt.
	retryDelay = 250 * time.Millisecond
)

// Invoke executes the call synchronously: marshals the IN params in
// declaration order, obtains a proxy, performs the remote invocation with
// bounded retry, and unmarshals the reply into the OUT params in declaration
// order. It blocks until the bus resolves the call.
//
// On success all OUT params hold the decoded reply; on failure they all hold
// their zero values and the cause is logged. Invoking the same Call instance
// from two goroutines at once is a usage error, detected and reported as
// failure.
func (c *Call) Invoke() bool {
	cl := c.client
	rec := cl.registry.borrow(c)
	if rec == nil {
		return false // already logged by the registry
	}
	defer cl.registry.release(rec)
	c.sealed.Store(true)

	ok := false
	defer func() {
		if !ok {
			for _, p := range rec.params {
				p.reset()
			}
		}
	}()

	if !rec.valid {
		slog.Error(fmt.Sprintf("%s - %s:%s failed construction-time validation, not calling",
			invokeLogPrefix, rec.desc.Interface, rec.method))
		return false
	}

	ok = cl.execute(rec)
	return ok
}

func (cl *Client) execute(rec *record) bool {
	in := make([]wire.Value, 0, len(rec.params))
	for _, p := range rec.params {
		if p.marshal == nil {
			continue
		}
		wv, okM := p.marshal()
		if !okM || wv.IsZero() {
			slog.Error(fmt.Sprintf("%s - error marshalling param %s: %s", invokeLogPrefix, p.name, p.tag))
			return false
		}
		in = append(in, wv)
	}

	var out []wire.Value
	var terr *transport.Error
	replied := false
	for attempt := 1; attempt <= maxAttempts && !replied; attempt++ {
		// Classify the error observed before this attempt; the first
		// attempt is never delayed.
		if terr != nil {
			if !terr.Code.Retriable() {
				break
			}
			cl.sleep(retryDelay)
		}

		policy := UseExisting
		if attempt > 1 {
			// A stale connection is the presumed cause of a retriable
			// error; force a fresh proxy.
			policy = Recreate
		}
		conn := cl.proxies.get(rec.desc, policy)
		if conn == nil {
			return false // proxy failure aborts, no further attempts
		}

		out, terr = conn.Invoke(rec.method, in)
		replied = terr == nil
	}

	if terr != nil {
		slog.Error(fmt.Sprintf("%s - %s:%s failed: %v", invokeLogPrefix, rec.desc.Interface, rec.method, terr))
		return false
	}

	next := 0
	for _, p := range rec.params {
		if p.unmarshal == nil {
			continue
		}
		if next >= len(out) {
			slog.Error(fmt.Sprintf("%s - reply to %s:%s is short: no element for param %s",
				invokeLogPrefix, rec.desc.Interface, rec.method, p.name))
			return false
		}
		wv := out[next]
		if wv.IsZero() {
			slog.Error(fmt.Sprintf("%s - reply to %s:%s has an empty element for param %s",
				invokeLogPrefix, rec.desc.Interface, rec.method, p.name))
			return false
		}
		if !p.unmarshal(wv) {
			slog.Error(fmt.Sprintf("%s - error unmarshalling param %s: %s; reply element %s",
				invokeLogPrefix, p.name, p.tag, wv.Sig()))
			return false
		}
		next++
	}
	// Trailing reply elements beyond the declared OUT params are tolerated;
	// rejecting them would break servers that extend their replies.
	return true
}
