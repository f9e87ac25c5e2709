package call

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/morezero/comms-client/pkg/target"
	"github.com/morezero/comms-client/pkg/transport"
	"github.com/morezero/comms-client/pkg/wire"
)

// fakeConn forwards invocations to the dialer's current behavior so tests
// can swap it mid-flight.
type fakeConn struct {
	d *fakeDialer
}

func (c *fakeConn) Invoke(method string, in []wire.Value) ([]wire.Value, *transport.Error) {
	c.d.mu.Lock()
	fn := c.d.invoke
	c.d.attempts++
	c.d.mu.Unlock()
	return fn(method, in)
}

func (c *fakeConn) Close() error {
	c.d.mu.Lock()
	c.d.closedConns++
	c.d.mu.Unlock()
	return nil
}

type fakeDialer struct {
	mu          sync.Mutex
	dials       int
	attempts    int
	closedConns int
	failDial    bool
	notify      transport.NotifyFunc
	invoke      func(method string, in []wire.Value) ([]wire.Value, *transport.Error)
}

func (d *fakeDialer) Dial(desc target.Descriptor, notify transport.NotifyFunc) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.notify = notify
	if d.failDial {
		return nil, errors.New("dial refused")
	}
	return &fakeConn{d: d}, nil
}

func (d *fakeDialer) counts() (dials, attempts, closed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials, d.attempts, d.closedConns
}

func (d *fakeDialer) setInvoke(fn func(string, []wire.Value) ([]wire.Value, *transport.Error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invoke = fn
}

// addReply answers the Add scenario: two int32 inputs, one int32 sum.
func addReply(_ string, in []wire.Value) ([]wire.Value, *transport.Error) {
	var a, b int32
	if len(in) != 2 || !wire.Unmarshal(wire.TagInt32, in[0], &a) || !wire.Unmarshal(wire.TagInt32, in[1], &b) {
		return nil, transport.Errorf(transport.CodeUnspecified, "bad args")
	}
	return []wire.Value{wire.Int32(a + b)}, nil
}

func newTestClient(d *fakeDialer) (*Client, *[]time.Duration) {
	cl := NewClient(d)
	sleeps := &[]time.Duration{}
	cl.sleep = func(dur time.Duration) { *sleeps = append(*sleeps, dur) }
	return cl, sleeps
}

func newAddCall(cl *Client) (*Call, *Param[int32], *Param[int32], *Param[int32]) {
	c := cl.NewCall(target.Descriptor{
		Service:   "org.example.Svc",
		Path:      "/org/example/Svc",
		Interface: "org.example.Svc",
	}, "Add")
	a := InInt32(c, "a")
	b := InInt32(c, "b")
	sum := OutInt32(c, "sum")
	return c, a, b, sum
}

func TestInvoke_AddScenario(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, sleeps := newTestClient(d)
	defer cl.Close()

	c, a, b, sum := newAddCall(cl)
	defer c.Close()

	a.Set(2)
	b.Set(3)
	if !c.Invoke() {
		t.Fatal("Invoke failed")
	}
	if got := sum.Value(); got != 5 {
		t.Errorf("sum = %d, want 5", got)
	}
	if dials, attempts, _ := d.counts(); dials != 1 || attempts != 1 {
		t.Errorf("dials = %d, attempts = %d; want 1, 1", dials, attempts)
	}
	if len(*sleeps) != 0 {
		t.Errorf("slept %v on the happy path", *sleeps)
	}
}

func TestInvoke_ProxyReusedAcrossInvocations(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, _ := newTestClient(d)
	defer cl.Close()

	c, a, b, _ := newAddCall(cl)
	defer c.Close()
	a.Set(1)
	b.Set(1)

	c.Invoke()
	c.Invoke()
	if dials, _, _ := d.counts(); dials != 1 {
		t.Errorf("dials = %d, want 1 (cached proxy reused)", dials)
	}
}

func TestInvoke_RetriableErrorsRetriedWithFreshProxy(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, sleeps := newTestClient(d)
	defer cl.Close()

	c, a, b, sum := newAddCall(cl)
	defer c.Close()
	a.Set(2)
	b.Set(3)

	// Warm the proxy cache so recreation is observable as extra dials.
	if !c.Invoke() {
		t.Fatal("warm-up Invoke failed")
	}

	fails := 0
	d.setInvoke(func(m string, in []wire.Value) ([]wire.Value, *transport.Error) {
		if fails < 2 {
			fails++
			return nil, transport.Errorf(transport.CodeServiceUnknown, "not up yet")
		}
		return addReply(m, in)
	})

	if !c.Invoke() {
		t.Fatal("Invoke failed despite success on third attempt")
	}
	if got := sum.Value(); got != 5 {
		t.Errorf("sum = %d, want 5", got)
	}
	dials, attempts, closed := d.counts()
	// 1 warm-up dial + warm-up attempt, then: attempt on the cached proxy,
	// recreate+attempt, recreate+attempt.
	if dials != 3 {
		t.Errorf("dials = %d, want 3 (no recreation before the first attempt)", dials)
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4 (1 warm-up + 3)", attempts)
	}
	if closed != 2 {
		t.Errorf("closed conns = %d, want 2 (each recreation releases the old handle)", closed)
	}
	want := []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}
	if len(*sleeps) != 2 || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", *sleeps, want)
	}
}

func TestInvoke_RetryCeiling(t *testing.T) {
	d := &fakeDialer{invoke: func(string, []wire.Value) ([]wire.Value, *transport.Error) {
		return nil, transport.Errorf(transport.CodeDisconnected, "gone")
	}}
	cl, sleeps := newTestClient(d)
	defer cl.Close()

	c, a, b, _ := newAddCall(cl)
	defer c.Close()
	a.Set(1)
	b.Set(1)

	if c.Invoke() {
		t.Fatal("Invoke succeeded against a dead transport")
	}
	if _, attempts, _ := d.counts(); attempts != 3 {
		t.Errorf("attempts = %d, want exactly 3", attempts)
	}
	if len(*sleeps) != 2 {
		t.Errorf("sleeps = %v, want 2 backoffs", *sleeps)
	}
}

func TestInvoke_NonRetriableShortCircuits(t *testing.T) {
	d := &fakeDialer{invoke: func(string, []wire.Value) ([]wire.Value, *transport.Error) {
		return nil, transport.Errorf(transport.CodeAccessDenied, "policy")
	}}
	cl, sleeps := newTestClient(d)
	defer cl.Close()

	c, a, b, _ := newAddCall(cl)
	defer c.Close()
	a.Set(1)
	b.Set(1)

	if c.Invoke() {
		t.Fatal("Invoke succeeded despite access denial")
	}
	if _, attempts, _ := d.counts(); attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(*sleeps) != 0 {
		t.Errorf("slept %v before a non-retriable failure", *sleeps)
	}
}

func TestInvoke_OutputsResetOnFailure(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, _ := newTestClient(d)
	defer cl.Close()

	c, a, b, sum := newAddCall(cl)
	defer c.Close()
	a.Set(2)
	b.Set(3)
	if !c.Invoke() || sum.Value() != 5 {
		t.Fatalf("seed invocation failed, sum = %d", sum.Value())
	}

	d.setInvoke(func(string, []wire.Value) ([]wire.Value, *transport.Error) {
		return nil, transport.Errorf(transport.CodeAccessDenied, "policy")
	})
	if c.Invoke() {
		t.Fatal("Invoke succeeded against access denial")
	}
	if got := sum.Value(); got != 0 {
		t.Errorf("sum = %d after failure, want 0 (no stale data)", got)
	}
	if a.Value() != 2 || b.Value() != 3 {
		t.Errorf("IN params were reset: a=%d b=%d", a.Value(), b.Value())
	}
}

func TestInvoke_ReplyUnderrunFails(t *testing.T) {
	d := &fakeDialer{invoke: func(string, []wire.Value) ([]wire.Value, *transport.Error) {
		return []wire.Value{wire.Int32(1)}, nil
	}}
	cl, _ := newTestClient(d)
	defer cl.Close()

	c := cl.NewCallTo("org.example.Svc", "Pair")
	defer c.Close()
	first := OutInt32(c, "first")
	second := OutInt32(c, "second")

	if c.Invoke() {
		t.Fatal("Invoke succeeded on a short reply")
	}
	if first.Value() != 0 || second.Value() != 0 {
		t.Errorf("outputs not reset: %d, %d", first.Value(), second.Value())
	}
}

func TestInvoke_ReplyOverrunTolerated(t *testing.T) {
	d := &fakeDialer{invoke: func(string, []wire.Value) ([]wire.Value, *transport.Error) {
		return []wire.Value{wire.Int32(7), wire.String("future field")}, nil
	}}
	cl, _ := newTestClient(d)
	defer cl.Close()

	c := cl.NewCallTo("org.example.Svc", "Get")
	defer c.Close()
	v := OutInt32(c, "v")

	if !c.Invoke() {
		t.Fatal("Invoke failed on a reply with extra trailing elements")
	}
	if v.Value() != 7 {
		t.Errorf("v = %d, want 7", v.Value())
	}
}

func TestInvoke_ReplyTypeMismatchFails(t *testing.T) {
	d := &fakeDialer{invoke: func(string, []wire.Value) ([]wire.Value, *transport.Error) {
		return []wire.Value{wire.String("not a number")}, nil
	}}
	cl, _ := newTestClient(d)
	defer cl.Close()

	c := cl.NewCallTo("org.example.Svc", "Get")
	defer c.Close()
	v := OutInt32(c, "v")

	if c.Invoke() {
		t.Fatal("Invoke succeeded on a mistyped reply element")
	}
	if v.Value() != 0 {
		t.Errorf("v = %d, want 0", v.Value())
	}
}

func TestInvoke_MarshalFailureSkipsTransport(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, _ := newTestClient(d)
	defer cl.Close()

	c := cl.NewCallTo("org.example.Svc", "Open")
	defer c.Close()
	p := InPath(c, "path")
	p.Set("not-a-path")

	if c.Invoke() {
		t.Fatal("Invoke succeeded with an invalid object path input")
	}
	if dials, attempts, _ := d.counts(); dials != 0 || attempts != 0 {
		t.Errorf("dials = %d, attempts = %d; want no transport activity", dials, attempts)
	}
}

func TestInvoke_InvalidTargetNeverCalls(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, _ := newTestClient(d)
	defer cl.Close()

	c := cl.NewCallTo("nodots", "Add")
	defer c.Close()

	if c.Invoke() {
		t.Fatal("Invoke succeeded on an invalid target")
	}
	if dials, attempts, _ := d.counts(); dials != 0 || attempts != 0 {
		t.Errorf("dials = %d, attempts = %d; want no transport activity", dials, attempts)
	}
}

func TestInvoke_InvalidMethodNeverCalls(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, _ := newTestClient(d)
	defer cl.Close()

	c := cl.NewCallTo("org.example.Svc", "no.dots.allowed")
	defer c.Close()

	if c.Invoke() {
		t.Fatal("Invoke succeeded on an invalid method name")
	}
}

func TestInvoke_ProxyFailureAborts(t *testing.T) {
	d := &fakeDialer{failDial: true, invoke: addReply}
	cl, sleeps := newTestClient(d)
	defer cl.Close()

	c, a, b, _ := newAddCall(cl)
	defer c.Close()
	a.Set(1)
	b.Set(1)

	if c.Invoke() {
		t.Fatal("Invoke succeeded without a proxy")
	}
	dials, attempts, _ := d.counts()
	if dials != 1 || attempts != 0 || len(*sleeps) != 0 {
		t.Errorf("dials = %d, attempts = %d, sleeps = %v; want a single aborted dial", dials, attempts, *sleeps)
	}

	// The invalid cache entry is retried by a later invocation.
	d.mu.Lock()
	d.failDial = false
	d.mu.Unlock()
	if !c.Invoke() {
		t.Fatal("Invoke failed after the dialer recovered")
	}
}

func TestInvoke_ConcurrentUseDetected(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, _ := newTestClient(d)
	defer cl.Close()

	c, a, b, _ := newAddCall(cl)
	defer c.Close()
	a.Set(1)
	b.Set(1)

	rec := cl.registry.borrow(c) // simulate an in-flight invocation
	if rec == nil {
		t.Fatal("borrow failed on an idle call")
	}
	if c.Invoke() {
		t.Error("Invoke succeeded while the call was in flight elsewhere")
	}
	cl.registry.release(rec)

	if !c.Invoke() {
		t.Error("Invoke failed after the call went idle again")
	}
}

func TestInvoke_ClosedCallFails(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, _ := newTestClient(d)
	defer cl.Close()

	c, a, b, _ := newAddCall(cl)
	a.Set(1)
	b.Set(1)
	c.Close()

	if c.Invoke() {
		t.Error("Invoke succeeded on a closed call")
	}
}

func TestInvoke_ClosedClientFailsFast(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, _ := newTestClient(d)

	c, a, b, _ := newAddCall(cl)
	a.Set(1)
	b.Set(1)
	cl.Close()

	if c.Invoke() {
		t.Error("Invoke succeeded on a closed client")
	}
}

func TestParam_RejectedAfterFirstInvoke(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, _ := newTestClient(d)
	defer cl.Close()

	c, a, b, sum := newAddCall(cl)
	defer c.Close()
	a.Set(2)
	b.Set(3)
	if !c.Invoke() {
		t.Fatal("Invoke failed")
	}

	late := OutInt32(c, "late") // must be inert, not crash
	late.Set(9)
	if late.Value() != 9 {
		t.Error("inert param lost its local slot")
	}

	if !c.Invoke() {
		t.Fatal("second Invoke failed")
	}
	if sum.Value() != 5 {
		t.Errorf("sum = %d, want 5", sum.Value())
	}
}

func TestInvoke_DistinctCallsConcurrently(t *testing.T) {
	d := &fakeDialer{invoke: addReply}
	cl, _ := newTestClient(d)
	defer cl.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int32) {
			defer wg.Done()
			c, a, b, sum := newAddCall(cl)
			defer c.Close()
			a.Set(n)
			b.Set(n)
			if !c.Invoke() {
				t.Errorf("Invoke failed for %d", n)
				return
			}
			if sum.Value() != 2*n {
				t.Errorf("sum = %d, want %d", sum.Value(), 2*n)
			}
		}(int32(i))
	}
	wg.Wait()
}
