package socket

import (
	"context"
	stderrors "errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/udp-sockets/errors"
)

type datagram struct {
	src     *net.UDPAddr
	at      time.Time
	payload []byte
}

type chanListener struct {
	data chan datagram
	errs chan error
}

func newChanListener() *chanListener {
	return &chanListener{
		data: make(chan datagram, 16),
		errs: make(chan error, 16),
	}
}

func (l *chanListener) OnData(_ *Client, payload []byte, src *net.UDPAddr, at time.Time) {
	l.data <- datagram{payload: payload, src: src, at: at}
}

func (l *chanListener) OnError(_ *Client, err error) {
	select {
	case l.errs <- err:
	default:
	}
}

func (l *chanListener) next(t *testing.T) datagram {
	t.Helper()
	select {
	case d := <-l.data:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for datagram")
		return datagram{}
	}
}

type stubMembership struct {
	joinErr  error
	leaveErr error
	joined   []string
	left     []string
	mu       sync.Mutex
}

func (m *stubMembership) Join(_ *net.UDPConn, _ *net.Interface, group net.IP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return m.joinErr
	}
	m.joined = append(m.joined, group.String())
	return nil
}

func (m *stubMembership) Leave(_ *net.UDPConn, _ *net.Interface, group net.IP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.left = append(m.left, group.String())
	return m.leaveErr
}

func newClient(t *testing.T, handle int, opts Options, l Listener) *Client {
	t.Helper()
	c, err := New(handle, opts, l)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func requireCode(t *testing.T, err error, code errors.Code) {
	t.Helper()
	require.Error(t, err)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e), "expected *errors.Error, got %T", err)
	assert.Equal(t, code, e.Code, "error: %v", err)
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"unknown type", Options{Type: "tcp"}},
		{"negative buffer", Options{ReadBufferSize: -1}},
		{"ttl too large", Options{MulticastTTL: 256}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(1, tt.opts, nil)
			requireCode(t, err, errors.CodeInvalidConfig)
		})
	}
}

func TestBind_EphemeralPort(t *testing.T) {
	c := newClient(t, 1, Options{}, nil)

	assert.False(t, c.Bound())
	_, ok := c.LocalAddr()
	assert.False(t, ok)

	addr, err := c.Bind(context.Background(), 0, "127.0.0.1")
	require.NoError(t, err)
	assert.NotZero(t, addr.Port)
	assert.Equal(t, "127.0.0.1", addr.IP.String())

	local, ok := c.LocalAddr()
	require.True(t, ok)
	assert.Equal(t, addr.Port, local.Port)
	assert.True(t, c.Bound())
}

func TestBind_WildcardDefault(t *testing.T) {
	c := newClient(t, 1, Options{}, nil)

	addr, err := c.Bind(context.Background(), 0, "")
	require.NoError(t, err)
	assert.True(t, addr.IP.IsUnspecified())
	assert.Equal(t, TypeUDP4, c.Type())
}

func TestBind_Twice(t *testing.T) {
	c := newClient(t, 1, Options{}, nil)

	_, err := c.Bind(context.Background(), 0, "127.0.0.1")
	require.NoError(t, err)

	_, err = c.Bind(context.Background(), 0, "127.0.0.1")
	requireCode(t, err, errors.CodeAlreadyBound)
	assert.True(t, c.Bound(), "failed rebind must not disturb the socket")
}

func TestBind_AddressInUse(t *testing.T) {
	first := newClient(t, 1, Options{}, nil)
	addr, err := first.Bind(context.Background(), 0, "127.0.0.1")
	require.NoError(t, err)

	second := newClient(t, 2, Options{}, nil)
	_, err = second.Bind(context.Background(), addr.Port, "127.0.0.1")
	requireCode(t, err, errors.CodeAlreadyBound)
	assert.False(t, second.Bound(), "client stays unbound after OS refusal")
}

func TestBind_InvalidAddress(t *testing.T) {
	c := newClient(t, 1, Options{}, nil)

	_, err := c.Bind(context.Background(), 0, "not an address")
	requireCode(t, err, errors.CodeAlreadyBound)

	_, err = c.Bind(context.Background(), 70000, "")
	requireCode(t, err, errors.CodeAlreadyBound)
}

func TestBind_ReuseAddress(t *testing.T) {
	c := newClient(t, 1, Options{ReuseAddress: true}, nil)

	_, err := c.Bind(context.Background(), 0, "127.0.0.1")
	require.NoError(t, err)
}

func TestSendReceive(t *testing.T) {
	l := newChanListener()
	receiver := newClient(t, 1, Options{}, l)
	addr, err := receiver.Bind(context.Background(), 0, "127.0.0.1")
	require.NoError(t, err)

	sender := newClient(t, 2, Options{}, nil)
	senderAddr, err := sender.Bind(context.Background(), 0, "127.0.0.1")
	require.NoError(t, err)

	before := time.Now()
	require.NoError(t, sender.Send(context.Background(), []byte("ping"), addr.Port, "127.0.0.1"))

	d := l.next(t)
	assert.Equal(t, "ping", string(d.payload))
	assert.Equal(t, senderAddr.Port, d.src.Port)
	assert.Equal(t, "127.0.0.1", d.src.IP.String())
	assert.False(t, d.at.Before(before))
}

func TestSend_ImplicitBind(t *testing.T) {
	l := newChanListener()
	receiver := newClient(t, 1, Options{}, l)
	addr, err := receiver.Bind(context.Background(), 0, "127.0.0.1")
	require.NoError(t, err)

	replies := newChanListener()
	sender := newClient(t, 2, Options{}, replies)
	require.False(t, sender.Bound())

	require.NoError(t, sender.Send(context.Background(), []byte("hello"), addr.Port, "localhost"))
	require.True(t, sender.Bound())

	d := l.next(t)
	assert.Equal(t, "hello", string(d.payload))

	// The implicit bind started a read loop, so replies come back
	require.NoError(t, receiver.Send(context.Background(), []byte("pong"), d.src.Port, "127.0.0.1"))
	reply := replies.next(t)
	assert.Equal(t, "pong", string(reply.payload))
}

func TestSend_Errors(t *testing.T) {
	c := newClient(t, 1, Options{}, nil)

	err := c.Send(context.Background(), []byte("x"), 0, "127.0.0.1")
	requireCode(t, err, errors.CodeSend)

	err = c.Send(context.Background(), []byte("x"), 9, "bad host name.invalid")
	requireCode(t, err, errors.CodeSend)

	require.NoError(t, c.Close())
	err = c.Send(context.Background(), []byte("x"), 9, "127.0.0.1")
	requireCode(t, err, errors.CodeSend)
}

func TestSetBroadcast(t *testing.T) {
	c := newClient(t, 1, Options{}, nil)

	err := c.SetBroadcast(true)
	requireCode(t, err, errors.CodeBroadcast)

	_, err = c.Bind(context.Background(), 0, "")
	require.NoError(t, err)

	require.NoError(t, c.SetBroadcast(true))
	assert.True(t, c.Broadcast())

	require.NoError(t, c.SetBroadcast(false))
	assert.False(t, c.Broadcast())
}

func TestMembership(t *testing.T) {
	stub := &stubMembership{}
	c := newClient(t, 1, Options{Membership: stub}, nil)

	err := c.AddMembership("239.1.1.1")
	requireCode(t, err, errors.CodeMembership)
	assert.Empty(t, stub.joined, "unbound client must not reach the OS")

	_, err = c.Bind(context.Background(), 0, "")
	require.NoError(t, err)

	require.NoError(t, c.AddMembership("239.1.1.1"))
	assert.True(t, c.IsMulticast())
	assert.Equal(t, []string{"239.1.1.1"}, c.Groups())

	err = c.AddMembership("239.1.1.1")
	requireCode(t, err, errors.CodeMembership)

	require.NoError(t, c.DropMembership("239.1.1.1"))
	assert.False(t, c.IsMulticast())
	assert.Equal(t, []string{"239.1.1.1"}, stub.left)

	err = c.DropMembership("239.1.1.1")
	requireCode(t, err, errors.CodeMembership)
}

func TestMembership_BadGroup(t *testing.T) {
	stub := &stubMembership{}
	c := newClient(t, 1, Options{Membership: stub}, nil)
	_, err := c.Bind(context.Background(), 0, "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		group string
	}{
		{"unicast", "10.0.0.1"},
		{"unresolvable", "no-such-host.invalid"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireCode(t, c.AddMembership(tt.group), errors.CodeMembership)
		})
	}
	assert.Empty(t, stub.joined)
	assert.False(t, c.IsMulticast())
}

func TestCanonicalGroup(t *testing.T) {
	c4 := newClient(t, 1, Options{}, nil)
	c6 := newClient(t, 2, Options{Type: TypeUDP6}, nil)

	tests := []struct {
		client *Client
		name   string
		group  string
		want   string
	}{
		{c4, "ipv4 literal", "239.1.1.1", "239.1.1.1"},
		{c6, "ipv6 short form", "ff02::1", "ff02::1"},
		{c6, "ipv6 long form", "FF02:0:0:0:0:0:0:1", "ff02::1"},
		{c6, "zoned ipv6", "ff02::1%lo", "ff02::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.client.CanonicalGroup(tt.group)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := c4.CanonicalGroup("10.0.0.1")
	requireCode(t, err, errors.CodeMembership)
}

func TestMembership_JoinFailure(t *testing.T) {
	stub := &stubMembership{joinErr: stderrors.New("no such device")}
	c := newClient(t, 1, Options{Membership: stub}, nil)
	_, err := c.Bind(context.Background(), 0, "")
	require.NoError(t, err)

	err = c.AddMembership("239.1.1.1")
	requireCode(t, err, errors.CodeMembership)
	assert.False(t, c.IsMulticast())
}

func TestMembership_LeaveFailureForgetsGroup(t *testing.T) {
	stub := &stubMembership{leaveErr: stderrors.New("boom")}
	c := newClient(t, 1, Options{Membership: stub}, nil)
	_, err := c.Bind(context.Background(), 0, "")
	require.NoError(t, err)
	require.NoError(t, c.AddMembership("239.1.1.1"))

	requireCode(t, c.DropMembership("239.1.1.1"), errors.CodeMembership)
	assert.False(t, c.IsMulticast())
}

func TestMembership_UnknownInterface(t *testing.T) {
	stub := &stubMembership{}
	c := newClient(t, 1, Options{Membership: stub, MulticastInterface: "no-such-if0"}, nil)
	_, err := c.Bind(context.Background(), 0, "")
	require.NoError(t, err)

	requireCode(t, c.AddMembership("239.1.1.1"), errors.CodeMembership)
	assert.Empty(t, stub.joined)
}

func TestClose_Idempotent(t *testing.T) {
	c := newClient(t, 1, Options{}, nil)

	// Unbound close
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, c.Closed())

	b := newClient(t, 2, Options{}, newChanListener())
	_, err := b.Bind(context.Background(), 0, "127.0.0.1")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.False(t, b.Bound())

	_, err = b.Bind(context.Background(), 0, "127.0.0.1")
	requireCode(t, err, errors.CodeAlreadyBound)
}

func TestClose_ForgetsGroups(t *testing.T) {
	c := newClient(t, 1, Options{Membership: &stubMembership{}}, nil)
	_, err := c.Bind(context.Background(), 0, "")
	require.NoError(t, err)
	require.NoError(t, c.AddMembership("239.1.1.1"))

	require.NoError(t, c.Close())
	assert.False(t, c.IsMulticast())
}

func TestReason(t *testing.T) {
	assert.Equal(t, "", reason(nil))
	assert.Equal(t, "socket is closed", reason(net.ErrClosed))
	assert.Equal(t, "invalid address", reason(&net.AddrError{Err: "bad", Addr: "x"}))
	assert.Equal(t, "name unresolvable", reason(&net.DNSError{Err: "nx", Name: "x", IsNotFound: true}))
	assert.Equal(t, "unknown network error", reason(stderrors.New("mystery")))
}
