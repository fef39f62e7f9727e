package socket

import (
	stderrors "errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/udp-sockets/errors"
)

// readLoop delivers datagrams until conn is closed.
func (c *Client) readLoop(conn *net.UDPConn, done chan struct{}) {
	defer close(done)

	buf := make([]byte, c.opts.ReadBufferSize)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if stderrors.Is(err, net.ErrClosed) {
				return
			}
			Logger().Warn("receive failed",
				zap.Int("handle", c.handle),
				zap.Error(err))
			if c.listener != nil {
				c.listener.OnError(c, errors.Receive(c.handle, err))
			}
			continue
		}

		at := time.Now()
		if c.listener == nil {
			continue
		}

		// Copy out since buf is reused
		payload := make([]byte, n)
		copy(payload, buf[:n])
		c.listener.OnData(c, payload, src, at)
	}
}
