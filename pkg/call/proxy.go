package call

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/morezero/comms-client/pkg/target"
	"github.com/morezero/comms-client/pkg/transport"
)

const proxyLogPrefix = "call:proxy"

// Policy selects how the proxy cache satisfies a lookup.
type Policy int

const (
	// UseExisting returns the cached live proxy, dialing only when absent.
	UseExisting Policy = iota
	// Recreate discards any cached proxy and dials a fresh one. Used on
	// retry, when a stale connection is the presumed cause of the failure.
	Recreate
)

// proxy is one cache entry. A nil conn marks a failed creation; the entry
// stays in the cache and a later UseExisting lookup dials again.
type proxy struct {
	key  string
	conn transport.Conn
}

// proxyCache owns the live connection handles, one per target identity.
// Calls only ever borrow a handle for the duration of a single attempt.
type proxyCache struct {
	mu      sync.Mutex
	dialer  transport.Dialer
	notify  transport.NotifyFunc
	proxies map[string]*proxy
}

func newProxyCache(dialer transport.Dialer, notify transport.NotifyFunc) *proxyCache {
	return &proxyCache{
		dialer:  dialer,
		notify:  notify,
		proxies: make(map[string]*proxy),
	}
}

// get returns the live connection for desc under the given policy, or nil
// when no connection could be obtained (logged).
func (pc *proxyCache) get(desc target.Descriptor, policy Policy) transport.Conn {
	key := desc.Key()

	pc.mu.Lock()
	defer pc.mu.Unlock()

	p := pc.proxies[key]
	if p != nil && p.conn != nil && policy == UseExisting {
		return p.conn
	}

	if p != nil && p.conn != nil {
		// Recreate: release the old handle before dialing a fresh one.
		if err := p.conn.Close(); err != nil {
			slog.Warn(fmt.Sprintf("%s - closing stale proxy for %s: %v", proxyLogPrefix, desc.Service, err))
		}
		p.conn = nil
	}

	conn, err := pc.dialer.Dial(desc, pc.notify)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - no proxy for %s: %v", proxyLogPrefix, desc.Service, err))
		pc.proxies[key] = &proxy{key: key}
		return nil
	}
	pc.proxies[key] = &proxy{key: key, conn: conn}
	return conn
}

// closeAll releases every live handle. Called on client teardown.
func (pc *proxyCache) closeAll() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	for _, p := range pc.proxies {
		if p.conn != nil {
			if err := p.conn.Close(); err != nil {
				slog.Warn(fmt.Sprintf("%s - closing proxy %s: %v", proxyLogPrefix, p.key, err))
			}
			p.conn = nil
		}
	}
}
