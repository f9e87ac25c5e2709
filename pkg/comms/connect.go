// Package comms implements the bus transport over COMMS (NATS): dialing,
// call and signal subjects, JSON envelopes and transport error mapping.
package comms

import (
	"fmt"
	"log/slog"
	"time"

	masterminds "github.com/Masterminds/semver/v3"
	comms "github.com/nats-io/nats.go"
)

const connectLogPrefix = "comms:connect"

// DefaultMinServerVersion is the COMMS server version constraint enforced on
// connect. Older servers lack no-responder replies, which the service-unknown
// classification depends on.
const DefaultMinServerVersion = ">= 2.9.0"

// ConnectOpts tunes Connect. Zero values use defaults.
type ConnectOpts struct {
	Timeout          time.Duration // connect timeout (default 10s)
	ReconnectWait    time.Duration // wait between reconnect attempts (default 2s)
	MaxReconnects    int           // default 60
	MinServerVersion string        // semver constraint (default DefaultMinServerVersion)
}

// Connect creates a COMMS connection to the given URL and verifies the
// server version against the configured constraint.
func Connect(url, name string, opts *ConnectOpts) (*comms.Conn, error) {
	o := ConnectOpts{}
	if opts != nil {
		o = *opts
	}
	if o.Timeout == 0 {
		o.Timeout = 10 * time.Second
	}
	if o.ReconnectWait == 0 {
		o.ReconnectWait = 2 * time.Second
	}
	if o.MaxReconnects == 0 {
		o.MaxReconnects = 60
	}
	if o.MinServerVersion == "" {
		o.MinServerVersion = DefaultMinServerVersion
	}

	constraint, err := masterminds.NewConstraint(o.MinServerVersion)
	if err != nil {
		return nil, fmt.Errorf("%s - bad server version constraint %q: %w", connectLogPrefix, o.MinServerVersion, err)
	}

	slog.Info(fmt.Sprintf("%s - Connecting to COMMS at %s as %s", connectLogPrefix, url, name))

	nc, err := comms.Connect(url,
		comms.Name(name),
		comms.Timeout(o.Timeout),
		comms.ReconnectWait(o.ReconnectWait),
		comms.MaxReconnects(o.MaxReconnects),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			slog.Warn(fmt.Sprintf("%s - COMMS disconnected: %v", connectLogPrefix, err))
		}),
		comms.ReconnectHandler(func(nc *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS reconnected to %s", connectLogPrefix, nc.ConnectedUrl()))
		}),
		comms.ClosedHandler(func(nc *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS connection closed", connectLogPrefix))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", connectLogPrefix, err)
	}

	if err := checkServerVersion(nc.ConnectedServerVersion(), constraint); err != nil {
		nc.Close()
		return nil, err
	}

	slog.Info(fmt.Sprintf("%s - Connected to COMMS at %s (server %s)",
		connectLogPrefix, nc.ConnectedUrl(), nc.ConnectedServerVersion()))
	return nc, nil
}

func checkServerVersion(version string, constraint *masterminds.Constraints) error {
	v, err := masterminds.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%s - cannot parse server version %q: %w", connectLogPrefix, version, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%s - server version %s does not satisfy %s", connectLogPrefix, version, constraint)
	}
	return nil
}
