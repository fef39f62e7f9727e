package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/wippyai/udp-sockets/errors"
	"github.com/wippyai/udp-sockets/multicast"
	"github.com/wippyai/udp-sockets/resource"
	"github.com/wippyai/udp-sockets/socket"
)

// maxTombstones bounds how many closed handles are remembered so that a
// repeated close still succeeds.
const maxTombstones = 4096

// BindResult is the local endpoint a client was bound to.
type BindResult struct {
	Address string
	Port    int
}

// Dispatcher owns the client registry and runs every socket operation on
// its worker pool.
type Dispatcher struct {
	ctx      context.Context
	cancel   context.CancelFunc
	clients  *resource.Table[*socket.Client]
	locks    *multicast.Manager
	pool     *pool
	metrics  *metrics
	logger   *zap.Logger
	onFault  FaultHandler
	events   chan Event
	closed   *lru.Cache
	stopOnce sync.Once
}

// New creates a dispatcher and starts its workers.
func New(opts ...Option) (*Dispatcher, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	m, err := newMetrics(o.registerer)
	if err != nil {
		return nil, errors.InvalidConfig("register metrics", err)
	}

	closed, err := lru.New(maxTombstones)
	if err != nil {
		return nil, errors.Internal(errors.OpCreate, errors.NoHandle, err)
	}

	if m != nil {
		o.locks.Watch(m.holds)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		ctx:     ctx,
		cancel:  cancel,
		clients: resource.NewTable[*socket.Client](),
		locks:   o.locks,
		metrics: m,
		logger:  o.logger,
		onFault: o.onFault,
		events:  make(chan Event, o.eventBuffer),
		closed:  closed,
	}
	if d.onFault == nil {
		d.onFault = d.logFault
	}

	d.clients.Subscribe(resource.ObserverFunc[*socket.Client](func(e resource.Event[*socket.Client]) {
		switch e.Type {
		case resource.EventCreated:
			d.metrics.clientAdded()
		case resource.EventDropped:
			d.metrics.clientRemoved()
		}
	}))

	d.pool = newPool(o.workers, d.execute, d.metrics.depth)

	d.logger.Info("dispatcher started",
		zap.Int("workers", o.workers),
		zap.Int("event_buffer", o.eventBuffer))
	return d, nil
}

// Events returns the data notification stream. It has a single consumer
// and is closed by Shutdown.
func (d *Dispatcher) Events() <-chan Event {
	return d.events
}

// Locks returns the multicast lock manager.
func (d *Dispatcher) Locks() *multicast.Manager {
	return d.locks
}

// Client returns the live client registered under handle.
func (d *Dispatcher) Client(handle int) (*socket.Client, bool) {
	return d.clients.Get(resource.Handle(handle))
}

// Handles returns the live handles in ascending order.
func (d *Dispatcher) Handles() []int {
	hs := d.clients.Handles()
	out := make([]int, len(hs))
	for i, h := range hs {
		out[i] = int(h)
	}
	return out
}

// ClientCount returns the number of live clients.
func (d *Dispatcher) ClientCount() int {
	return d.clients.Len()
}

// QueueDepth returns the number of tasks waiting for a worker.
func (d *Dispatcher) QueueDepth() int {
	return d.pool.depth()
}

// CreateSocket registers a new unbound client under handle. It runs on
// the caller's goroutine; the registry insert is atomic, so concurrent
// creates for one handle leave exactly one client.
func (d *Dispatcher) CreateSocket(handle int, opts socket.Options) error {
	if d.clients.Closed() {
		return errors.Closed(errors.OpCreate, handle)
	}

	c, err := socket.New(handle, opts, listener{d: d})
	if err != nil {
		d.logger.Error("createSocket rejected options", zap.Int("handle", handle), zap.Error(err))
		return err
	}

	if !d.clients.InsertIfAbsent(resource.Handle(handle), c) {
		if d.clients.Closed() {
			return errors.Closed(errors.OpCreate, handle)
		}
		err := errors.ClientExists(handle)
		d.logger.Error("createSocket called twice with the same id", zap.Int("handle", handle))
		return err
	}

	d.closed.Remove(handle)

	d.logger.Debug("socket created",
		zap.Int("handle", handle),
		zap.String("type", c.Type()))
	return nil
}

// Bind binds the client to address:port. An empty address means the
// wildcard address; port 0 picks an ephemeral port.
func (d *Dispatcher) Bind(handle, port int, address string) *Future[BindResult] {
	return submit(d, errors.OpBind, handle, func(c *socket.Client) (BindResult, error) {
		addr, err := c.Bind(d.ctx, port, address)
		if err != nil {
			return BindResult{}, err
		}
		return BindResult{Address: addr.IP.String(), Port: addr.Port}, nil
	})
}

// Send transmits payload as one datagram to address:port. An unbound
// client is bound implicitly.
func (d *Dispatcher) Send(handle int, payload []byte, port int, address string) *Future[struct{}] {
	return submit(d, errors.OpSend, handle, func(c *socket.Client) (struct{}, error) {
		if err := c.Send(d.ctx, payload, port, address); err != nil {
			return struct{}{}, err
		}
		d.metrics.sent(len(payload))
		return struct{}{}, nil
	})
}

// SetBroadcast toggles the broadcast flag on a bound client.
func (d *Dispatcher) SetBroadcast(handle int, enabled bool) *Future[struct{}] {
	return submit(d, errors.OpBroadcast, handle, func(c *socket.Client) (struct{}, error) {
		return struct{}{}, c.SetBroadcast(enabled)
	})
}

// AddMembership joins a multicast group. Failures are logged; the future
// carries the same error. A failed join never leaves a lock hold behind.
func (d *Dispatcher) AddMembership(handle int, group string) *Future[struct{}] {
	return submit(d, errors.OpMembership, handle, func(c *socket.Client) (struct{}, error) {
		// Hold and membership must share one name for the group
		key, err := c.CanonicalGroup(group)
		if err != nil {
			return struct{}{}, err
		}

		acquired := d.locks.Acquire(handle, key)
		joined := false
		defer func() {
			if acquired && !joined {
				d.locks.Release(handle, key)
			}
		}()

		if err := c.AddMembership(key); err != nil {
			return struct{}{}, err
		}
		joined = true
		return struct{}{}, nil
	})
}

// DropMembership leaves a multicast group. The lock hold for the group is
// released whether or not the leave succeeds.
func (d *Dispatcher) DropMembership(handle int, group string) *Future[struct{}] {
	return submit(d, errors.OpMembership, handle, func(c *socket.Client) (struct{}, error) {
		// No hold is ever taken under a name that does not resolve
		key, err := c.CanonicalGroup(group)
		if err != nil {
			return struct{}{}, err
		}
		defer d.locks.Release(handle, key)
		return struct{}{}, c.DropMembership(key)
	})
}

// Close releases the client and removes it from the registry. Closing a
// handle that was already closed succeeds.
func (d *Dispatcher) Close(handle int) *Future[struct{}] {
	f := newFuture[struct{}]()
	d.enqueue(errors.OpClose, handle, func() error {
		c, ok := d.clients.Get(resource.Handle(handle))
		if !ok {
			if d.closed.Contains(handle) {
				f.resolve(struct{}{}, nil)
				return nil
			}
			err := errors.ClientNotFound(errors.OpClose, handle)
			f.resolve(struct{}{}, err)
			return err
		}
		err := d.closeClient(c)
		f.resolve(struct{}{}, err)
		return err
	}, func(err error) {
		f.resolve(struct{}{}, err)
	})
	return f
}

// DestroyAll closes every registered client in one task and clears the
// registry.
func (d *Dispatcher) DestroyAll() *Future[struct{}] {
	f := newFuture[struct{}]()
	d.enqueue(errors.OpClose, errors.NoHandle, func() error {
		n := d.destroyAll()
		d.logger.Info("destroyed all clients", zap.Int("count", n))
		f.resolve(struct{}{}, nil)
		return nil
	}, func(err error) {
		f.resolve(struct{}{}, err)
	})
	return f
}

// Shutdown destroys every client, stops the workers after the queue has
// drained and closes the Events channel. If ctx ends first Shutdown
// returns its error and the remaining work finishes in the background.
// Calling Shutdown again waits for the same completion.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.stopOnce.Do(func() {
		_ = d.clients.Close()
		d.DestroyAll()
		d.pool.stop()

		go func() {
			if err := d.pool.wait(); err != nil {
				d.logger.Error("worker exited with error", zap.Error(err))
			}
			close(d.events)
			d.logger.Info("dispatcher stopped")
			d.cancel()
		}()
	})

	select {
	case <-d.ctx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// closeClient closes c before releasing its holds, so a join that races
// the close either fails on the closed socket or is released here.
func (d *Dispatcher) closeClient(c *socket.Client) error {
	h := c.Handle()
	err := c.Close()
	if cur, ok := d.clients.Get(resource.Handle(h)); ok && cur == c {
		d.clients.Remove(resource.Handle(h))
	}

	if n := d.locks.ReleaseOwner(h); n > 0 {
		d.logger.Debug("released multicast holds on close", zap.Int("handle", h), zap.Int("holds", n))
	}

	d.closed.Add(h, struct{}{})
	return err
}

func (d *Dispatcher) destroyAll() int {
	n := 0
	d.clients.Each(func(_ resource.Handle, c *socket.Client) bool {
		if err := d.closeClient(c); err != nil {
			d.logger.Warn("close failed during destroy", zap.Int("handle", c.Handle()), zap.Error(err))
		}
		n++
		return true
	})
	return n
}

// enqueue submits run to the pool. fail is called instead of run when the
// pool is stopping, or after run panics.
func (d *Dispatcher) enqueue(op errors.Op, handle int, run func() error, fail func(error)) {
	t := &task{
		id:       uuid.NewString(),
		op:       op,
		handle:   handle,
		enqueued: time.Now(),
		run:      run,
		fail:     fail,
	}
	if !d.pool.submit(t) {
		d.metrics.task(op, statusRejected, 0)
		d.logger.Debug("task rejected after shutdown",
			zap.String("op", string(op)),
			zap.Int("handle", handle))
		fail(errors.Closed(op, handle))
	}
}

// execute runs one task on a worker.
func (d *Dispatcher) execute(t *task) {
	start := time.Now()
	status := statusOK

	defer func() {
		if r := recover(); r != nil {
			status = statusPanic
			d.metrics.fault()
			d.onFault(t.op, t.handle, r, debug.Stack())
			t.fail(errors.Internal(t.op, t.handle, fmt.Errorf("panic: %v", r)))
		}
		d.metrics.task(t.op, status, time.Since(start))
	}()

	if err := t.run(); err != nil {
		status = statusError
		fields := []zap.Field{
			zap.String("task", t.id),
			zap.String("op", string(t.op)),
			zap.Int("handle", t.handle),
			zap.Error(err),
		}
		// Membership calls have no caller callback, so the log is the report
		if t.op == errors.OpMembership {
			d.logger.Error("membership task failed", fields...)
		} else {
			d.logger.Debug("task failed", fields...)
		}
	}
}

func (d *Dispatcher) logFault(op errors.Op, handle int, recovered any, stack []byte) {
	d.logger.Error("recovered panic in task",
		zap.String("op", string(op)),
		zap.Int("handle", handle),
		zap.Any("panic", recovered),
		zap.ByteString("stack", stack))
}

// submit queues fn against the client registered under handle.
func submit[T any](d *Dispatcher, op errors.Op, handle int, fn func(*socket.Client) (T, error)) *Future[T] {
	f := newFuture[T]()
	d.enqueue(op, handle, func() error {
		var zero T
		c, ok := d.clients.Get(resource.Handle(handle))
		if !ok {
			err := errors.ClientNotFound(op, handle)
			f.resolve(zero, err)
			return err
		}
		v, err := fn(c)
		f.resolve(v, err)
		return err
	}, func(err error) {
		var zero T
		f.resolve(zero, err)
	})
	return f
}
