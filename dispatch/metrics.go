package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/udp-sockets/errors"
)

const (
	metricsNamespace = "udpsockets"
	metricsSubsystem = "dispatcher"
)

// Task outcome labels.
const (
	statusOK       = "ok"
	statusError    = "error"
	statusPanic    = "panic"
	statusRejected = "rejected"
)

// metrics holds the dispatcher's Prometheus collectors. A nil *metrics
// records nothing.
type metrics struct {
	tasks             *prometheus.CounterVec
	taskDuration      *prometheus.HistogramVec
	queueDepth        prometheus.Gauge
	clients           prometheus.Gauge
	lockHolds         prometheus.Gauge
	datagramsReceived prometheus.Counter
	datagramsSent     prometheus.Counter
	bytesReceived     prometheus.Counter
	bytesSent         prometheus.Counter
	eventsDropped     prometheus.Counter
	receiveErrors     prometheus.Counter
	faults            prometheus.Counter
}

// newMetrics creates and registers the collectors. Returns nil when reg is
// nil.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "tasks_total",
			Help:      "Tasks executed by operation and outcome",
		}, []string{"op", "status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "task_duration_seconds",
			Help:      "Time from dequeue to completion",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"op"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "queue_depth",
			Help:      "Tasks waiting for a worker",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "clients",
			Help:      "Live socket clients in the registry",
		}),
		lockHolds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "multicast_lock_holds",
			Help:      "Outstanding holds on the multicast lock",
		}),
		datagramsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "datagrams_received_total",
			Help:      "Datagrams delivered as data events",
		}),
		datagramsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "datagrams_sent_total",
			Help:      "Datagrams sent successfully",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "bytes_received_total",
			Help:      "Payload bytes delivered as data events",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "bytes_sent_total",
			Help:      "Payload bytes sent successfully",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "events_dropped_total",
			Help:      "Data events dropped because the consumer fell behind",
		}),
		receiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "receive_errors_total",
			Help:      "Read loop errors",
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "faults_total",
			Help:      "Panics recovered from tasks",
		}),
	}

	collectors := []prometheus.Collector{
		m.tasks, m.taskDuration, m.queueDepth, m.clients, m.lockHolds,
		m.datagramsReceived, m.datagramsSent, m.bytesReceived, m.bytesSent,
		m.eventsDropped, m.receiveErrors, m.faults,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) task(op errors.Op, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(string(op), status).Inc()
	if status != statusRejected {
		m.taskDuration.WithLabelValues(string(op)).Observe(d.Seconds())
	}
}

func (m *metrics) depth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *metrics) clientAdded() {
	if m == nil {
		return
	}
	m.clients.Inc()
}

func (m *metrics) clientRemoved() {
	if m == nil {
		return
	}
	m.clients.Dec()
}

func (m *metrics) holds(n int) {
	if m == nil {
		return
	}
	m.lockHolds.Set(float64(n))
}

func (m *metrics) received(n int) {
	if m == nil {
		return
	}
	m.datagramsReceived.Inc()
	m.bytesReceived.Add(float64(n))
}

func (m *metrics) sent(n int) {
	if m == nil {
		return
	}
	m.datagramsSent.Inc()
	m.bytesSent.Add(float64(n))
}

func (m *metrics) dropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

func (m *metrics) receiveError() {
	if m == nil {
		return
	}
	m.receiveErrors.Inc()
}

func (m *metrics) fault() {
	if m == nil {
		return
	}
	m.faults.Inc()
}
