package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wippyai/udp-sockets/errors"
	"github.com/wippyai/udp-sockets/multicast"
)

// Defaults used when the corresponding option is not given.
const (
	DefaultWorkers     = 2
	DefaultEventBuffer = 256
)

// FaultHandler receives panics recovered from tasks. stack is the
// goroutine stack at the point of recovery.
type FaultHandler func(op errors.Op, handle int, recovered any, stack []byte)

type options struct {
	logger      *zap.Logger
	registerer  prometheus.Registerer
	onFault     FaultHandler
	locks       *multicast.Manager
	workers     int
	eventBuffer int
}

// Option configures a Dispatcher.
type Option func(*options)

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithEventBuffer sets the capacity of the Events channel. It must be
// positive: delivery never blocks, so an unbuffered channel would drop
// nearly every datagram.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		o.eventBuffer = n
	}
}

// WithLogger sets the logger for this dispatcher.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics registers the dispatcher's collectors with reg.
// Without it no metrics are recorded.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithFaultHandler replaces the default fault handler, which logs the
// panic and its stack.
func WithFaultHandler(h FaultHandler) Option {
	return func(o *options) {
		o.onFault = h
	}
}

// WithLockManager shares a multicast lock manager between dispatchers.
func WithLockManager(m *multicast.Manager) Option {
	return func(o *options) {
		o.locks = m
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{
		workers:     DefaultWorkers,
		eventBuffer: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.workers <= 0 {
		return o, errors.InvalidConfig("workers must be positive", nil)
	}
	if o.eventBuffer <= 0 {
		return o, errors.InvalidConfig("event buffer must be positive", nil)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	if o.locks == nil {
		o.locks = multicast.NewManager(multicast.WithLogger(o.logger))
	}
	return o, nil
}
