package signal

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/morezero/comms-client/pkg/transport"
)

const pumpLogPrefix = "signal:pump"

// WaitForever makes Process block until a stop request arrives.
const WaitForever time.Duration = -1

// queueSize bounds the number of undelivered notifications. Deliver never
// blocks the transport's receive path; overflow is dropped and logged.
const queueSize = 256

// Pump queues incoming notifications and dispatches them from whichever
// goroutine iterates Process. Stop is one-way: once stopped, Process returns
// false forever.
type Pump struct {
	queue    chan transport.Notification
	done     chan struct{}
	stopOnce sync.Once
}

// NewPump creates a running pump.
func NewPump() *Pump {
	return &Pump{
		queue: make(chan transport.Notification, queueSize),
		done:  make(chan struct{}),
	}
}

// Deliver enqueues a notification for dispatch. Safe to call from any
// goroutine; never blocks.
func (p *Pump) Deliver(n transport.Notification) {
	select {
	case <-p.done:
	case p.queue <- n:
	default:
		slog.Warn(fmt.Sprintf("%s - dropping %s.%s: queue full", pumpLogPrefix, n.Sender, n.Signal))
	}
}

// Process dispatches queued notifications through deliver for up to wait,
// sleeping when the queue is idle. Pass WaitForever to block until Stop.
// It returns false once the pump has been stopped, true otherwise.
func (p *Pump) Process(wait time.Duration, deliver func(transport.Notification)) bool {
	select {
	case <-p.done:
		return false
	default:
	}

	var timeout <-chan time.Time
	if wait != WaitForever {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		// Drain whatever is already queued before sleeping.
		for {
			select {
			case n := <-p.queue:
				deliver(n)
				continue
			default:
			}
			break
		}

		select {
		case n := <-p.queue:
			deliver(n)
		case <-timeout:
			return true
		case <-p.done:
			return false
		}
	}
}

// Stop requests permanent termination of dispatching. Idempotent; may be
// called from any goroutine and unblocks a WaitForever Process.
func (p *Pump) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}
