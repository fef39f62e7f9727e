package dispatch

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/udp-sockets/errors"
	"github.com/wippyai/udp-sockets/resource"
	"github.com/wippyai/udp-sockets/socket"
)

// Event is a datagram received by a live client.
type Event struct {
	Timestamp  time.Time
	SourceHost string
	Payload    []byte
	SourcePort int
	Handle     int
}

// TimestampMillis returns the receipt time in Unix milliseconds.
func (e Event) TimestampMillis() int64 {
	return e.Timestamp.UnixMilli()
}

// listener adapts the dispatcher to socket.Listener. Read loops only
// queue work here; the registry is consulted on a worker.
type listener struct {
	d *Dispatcher
}

func (l listener) OnData(c *socket.Client, payload []byte, src *net.UDPAddr, at time.Time) {
	ev := Event{
		Handle:     c.Handle(),
		Payload:    payload,
		SourceHost: src.IP.String(),
		SourcePort: src.Port,
		Timestamp:  at,
	}
	l.d.pool.submit(&task{
		op:       errors.OpReceive,
		handle:   ev.Handle,
		enqueued: at,
		run: func() error {
			l.d.deliver(c, ev)
			return nil
		},
		fail: func(error) {},
	})
}

func (l listener) OnError(c *socket.Client, err error) {
	l.d.metrics.receiveError()
	l.d.logger.Warn("receive error",
		zap.Int("handle", c.Handle()),
		zap.Error(err))
}

// deliver emits ev if c is still the client registered under its handle.
func (d *Dispatcher) deliver(c *socket.Client, ev Event) {
	cur, ok := d.clients.Get(resource.Handle(ev.Handle))
	if !ok || cur != c {
		d.logger.Debug("dropping datagram for closed client", zap.Int("handle", ev.Handle))
		return
	}

	select {
	case d.events <- ev:
		d.metrics.received(len(ev.Payload))
	default:
		d.metrics.dropped()
		d.logger.Warn("event buffer full, dropping datagram",
			zap.Int("handle", ev.Handle),
			zap.Int("bytes", len(ev.Payload)))
	}
}
