package socket

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/wippyai/udp-sockets/errors"
)

// Client owns one UDP socket identified by a caller-assigned handle.
type Client struct {
	listener Listener
	conn     *net.UDPConn
	local    *net.UDPAddr
	groups   map[string]net.IP
	done     chan struct{}
	opts     Options
	handle   int

	mu        sync.Mutex
	broadcast bool
	closed    bool
}

// New creates an unbound client. listener may be nil.
func New(handle int, opts Options, listener Listener) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.New(errors.OpCreate, errors.CodeInvalidConfig).
			Handle(handle).
			Cause(err).
			Detail("invalid socket options").
			Build()
	}
	return &Client{
		handle:   handle,
		opts:     opts.withDefaults(),
		listener: listener,
		groups:   make(map[string]net.IP),
	}, nil
}

// Handle returns the handle the client was created with.
func (c *Client) Handle() int {
	return c.handle
}

// Type returns the socket type, TypeUDP4 or TypeUDP6.
func (c *Client) Type() string {
	return c.opts.Type
}

// LocalAddr returns the bound local endpoint.
func (c *Client) LocalAddr() (*net.UDPAddr, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.local == nil {
		return nil, false
	}
	return c.local, true
}

// Bound reports whether the client holds an open socket.
func (c *Client) Bound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Broadcast reports the last broadcast flag successfully applied.
func (c *Client) Broadcast() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broadcast
}

// Groups returns the joined multicast groups in sorted order.
func (c *Client) Groups() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.groups))
	for g := range c.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// IsMulticast reports whether the client has joined at least one group.
func (c *Client) IsMulticast() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.groups) > 0
}

// Bind allocates the socket on address:port and starts the read loop.
// An empty address binds the wildcard of the client's family; port 0
// picks an ephemeral port.
func (c *Client) Bind(ctx context.Context, port int, address string) (*net.UDPAddr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bindLocked(ctx, port, address)
}

func (c *Client) bindLocked(ctx context.Context, port int, address string) (*net.UDPAddr, error) {
	if c.closed {
		return nil, errors.AlreadyBound(c.handle, "client is closed", nil)
	}
	if c.conn != nil {
		return nil, errors.AlreadyBound(c.handle, "socket is already bound", nil)
	}
	if port < 0 || port > 65535 {
		return nil, errors.AlreadyBound(c.handle, fmt.Sprintf("port %d out of range", port), nil)
	}
	if address == "" {
		address = c.opts.wildcard()
	}

	endpoint := net.JoinHostPort(address, strconv.Itoa(port))
	lc := net.ListenConfig{Control: c.control}
	pc, err := lc.ListenPacket(ctx, c.opts.Type, endpoint)
	if err != nil {
		return nil, errors.AlreadyBound(c.handle, fmt.Sprintf("bind %s: %s", endpoint, reason(err)), err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		_ = pc.Close()
		return nil, errors.AlreadyBound(c.handle, fmt.Sprintf("bind %s: unexpected connection type %T", endpoint, pc), nil)
	}

	c.conn = conn
	c.local = conn.LocalAddr().(*net.UDPAddr)
	c.done = make(chan struct{})

	Logger().Debug("socket bound",
		zap.Int("handle", c.handle),
		zap.Stringer("local", c.local))

	go c.readLoop(conn, c.done)
	return c.local, nil
}

func (c *Client) control(_, _ string, rc syscall.RawConn) error {
	if !c.opts.ReuseAddress {
		return nil
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) {
		opErr = setReuseAddr(fd)
	}); err != nil {
		return err
	}
	return opErr
}

// Send transmits payload as one datagram to address:port, binding the
// client implicitly if needed.
func (c *Client) Send(ctx context.Context, payload []byte, port int, address string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.Send(c.handle, "client is closed", nil)
	}
	if c.conn == nil {
		if _, err := c.bindLocked(ctx, 0, ""); err != nil {
			c.mu.Unlock()
			return errors.Send(c.handle, "implicit bind failed", err)
		}
	}
	conn := c.conn
	network := c.opts.Type
	c.mu.Unlock()

	if port <= 0 || port > 65535 {
		return errors.Send(c.handle, fmt.Sprintf("port %d out of range", port), nil)
	}

	dst, err := net.ResolveUDPAddr(network, net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return errors.Send(c.handle, fmt.Sprintf("resolve %s: %s", address, reason(err)), err)
	}

	n, err := conn.WriteToUDP(payload, dst)
	if err != nil {
		return errors.Send(c.handle, fmt.Sprintf("write to %s: %s", dst, reason(err)), err)
	}
	if n != len(payload) {
		return errors.Send(c.handle, fmt.Sprintf("partial write to %s: %d of %d bytes", dst, n, len(payload)), nil)
	}
	return nil
}

// AddMembership joins the multicast group. The client must be bound.
func (c *Client) AddMembership(group string) error {
	ip, err := c.resolveGroup(group)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return errors.Membership(c.handle, "client is not bound", nil)
	}
	key := ip.String()
	if _, ok := c.groups[key]; ok {
		return errors.Membership(c.handle, fmt.Sprintf("group %s already joined", key), nil)
	}

	ifi, err := c.multicastInterface()
	if err != nil {
		return err
	}
	if err := c.opts.Membership.Join(c.conn, ifi, ip); err != nil {
		return errors.Membership(c.handle, fmt.Sprintf("join %s: %s", key, reason(err)), err)
	}

	c.groups[key] = ip
	Logger().Debug("joined multicast group",
		zap.Int("handle", c.handle),
		zap.String("group", key))
	return nil
}

// DropMembership leaves a previously joined group. The group is
// forgotten even when the leave itself fails.
func (c *Client) DropMembership(group string) error {
	ip, err := c.resolveGroup(group)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := ip.String()
	if _, ok := c.groups[key]; !ok {
		return errors.Membership(c.handle, fmt.Sprintf("group %s not joined", key), nil)
	}
	delete(c.groups, key)

	if c.closed || c.conn == nil {
		return errors.Membership(c.handle, "client is not bound", nil)
	}

	ifi, err := c.multicastInterface()
	if err != nil {
		return err
	}
	if err := c.opts.Membership.Leave(c.conn, ifi, ip); err != nil {
		return errors.Membership(c.handle, fmt.Sprintf("leave %s: %s", key, reason(err)), err)
	}

	Logger().Debug("left multicast group",
		zap.Int("handle", c.handle),
		zap.String("group", key))
	return nil
}

// CanonicalGroup resolves group and returns the name the client tracks
// the membership under. Different spellings of one group, such as a
// hostname, a zoned IPv6 literal and the plain literal, share one name.
func (c *Client) CanonicalGroup(group string) (string, error) {
	ip, err := c.resolveGroup(group)
	if err != nil {
		return "", err
	}
	return ip.String(), nil
}

func (c *Client) resolveGroup(group string) (net.IP, error) {
	ip := net.ParseIP(group)
	if ip == nil {
		network := "ip4"
		if c.opts.Type == TypeUDP6 {
			network = "ip6"
		}
		addr, err := net.ResolveIPAddr(network, group)
		if err != nil {
			return nil, errors.Membership(c.handle, fmt.Sprintf("resolve %q: %s", group, reason(err)), err)
		}
		if addr != nil {
			ip = addr.IP
		}
	}
	if ip == nil || !ip.IsMulticast() {
		return nil, errors.Membership(c.handle, fmt.Sprintf("%q is not a multicast address", group), nil)
	}
	return ip, nil
}

func (c *Client) multicastInterface() (*net.Interface, error) {
	if c.opts.MulticastInterface == "" {
		return nil, nil
	}
	ifi, err := net.InterfaceByName(c.opts.MulticastInterface)
	if err != nil {
		return nil, errors.Membership(c.handle,
			fmt.Sprintf("interface %q: %s", c.opts.MulticastInterface, reason(err)), err)
	}
	return ifi, nil
}

// SetBroadcast toggles SO_BROADCAST. The client must be bound.
func (c *Client) SetBroadcast(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return errors.Broadcast(c.handle, "client is not bound", nil)
	}

	rc, err := c.conn.SyscallConn()
	if err != nil {
		return errors.Broadcast(c.handle, reason(err), err)
	}
	if err := setBroadcast(rc, enabled); err != nil {
		return errors.Broadcast(c.handle, fmt.Sprintf("set SO_BROADCAST=%t: %s", enabled, reason(err)), err)
	}

	c.broadcast = enabled
	return nil
}

// Close releases the socket and waits for the read loop to exit.
// Closing a closed client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn, done := c.conn, c.done
	c.groups = make(map[string]net.IP)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	<-done

	Logger().Debug("socket closed", zap.Int("handle", c.handle))
	if err != nil {
		return errors.Internal(errors.OpClose, c.handle, err)
	}
	return nil
}
