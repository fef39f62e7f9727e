package socket

import (
	"fmt"
	"net"
	"time"
)

// Socket types accepted by Options.Type.
const (
	TypeUDP4 = "udp4"
	TypeUDP6 = "udp6"
)

// DefaultReadBufferSize fits the largest possible UDP payload.
const DefaultReadBufferSize = 64 * 1024

// Options configures a Client at creation time.
type Options struct {
	// Membership overrides the multicast join/leave implementation.
	Membership Membership `yaml:"-"`

	// MulticastLoopback controls whether multicast sent by this socket is
	// looped back to local listeners. Nil keeps the OS default.
	MulticastLoopback *bool `yaml:"multicast_loopback"`

	// Type is TypeUDP4 or TypeUDP6. Empty means TypeUDP4.
	Type string `yaml:"type"`

	// MulticastInterface names the interface used to join groups.
	// Empty lets the OS choose.
	MulticastInterface string `yaml:"multicast_interface"`

	// ReadBufferSize bounds a single received datagram.
	ReadBufferSize int `yaml:"read_buffer_size"`

	// MulticastTTL sets the hop limit for outgoing multicast. Zero keeps
	// the OS default.
	MulticastTTL int `yaml:"multicast_ttl"`

	// ReuseAddress sets SO_REUSEADDR before bind.
	ReuseAddress bool `yaml:"reuse_address"`
}

// Validate checks option values without touching the network.
func (o Options) Validate() error {
	switch o.Type {
	case "", TypeUDP4, TypeUDP6:
	default:
		return fmt.Errorf("unknown socket type %q", o.Type)
	}
	if o.ReadBufferSize < 0 {
		return fmt.Errorf("read buffer size must not be negative, got %d", o.ReadBufferSize)
	}
	if o.MulticastTTL < 0 || o.MulticastTTL > 255 {
		return fmt.Errorf("multicast ttl must be in [0, 255], got %d", o.MulticastTTL)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.Type == "" {
		o.Type = TypeUDP4
	}
	if o.ReadBufferSize == 0 {
		o.ReadBufferSize = DefaultReadBufferSize
	}
	if o.Membership == nil {
		o.Membership = PacketMembership{
			TTL:      o.MulticastTTL,
			Loopback: o.MulticastLoopback,
		}
	}
	return o
}

func (o Options) wildcard() string {
	if o.Type == TypeUDP6 {
		return "::"
	}
	return "0.0.0.0"
}

// Listener receives asynchronous notifications from a client's read loop.
// Calls for one client are made from a single goroutine.
type Listener interface {
	// OnData is called for every received datagram. payload is owned by
	// the callee. at is the time the datagram was read.
	OnData(c *Client, payload []byte, src *net.UDPAddr, at time.Time)

	// OnError is called for read failures that do not end the loop.
	OnError(c *Client, err error)
}
