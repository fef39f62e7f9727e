package multicast

import (
	"sync"

	"go.uber.org/zap"
)

type holdKey struct {
	group string
	owner int
}

// Manager owns the lazily created lock and the holds taken on it.
// All methods are serialized by one mutex.
type Manager struct {
	lock    Lock
	factory LockFactory
	holds   map[holdKey]struct{}
	logger  *zap.Logger
	watchers []func(int)
	mu      sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithFactory replaces the default CountedLock factory.
func WithFactory(f LockFactory) Option {
	return func(m *Manager) {
		m.factory = f
	}
}

// WithLogger sets the logger used for lock transitions.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a manager. The lock is not created until the first
// Acquire.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		factory: NewCountedLock,
		holds:   make(map[holdKey]struct{}),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire takes a hold for owner on group. A second Acquire for the same
// pair is a no-op and returns false.
func (m *Manager) Acquire(owner int, group string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := holdKey{owner: owner, group: group}
	if _, ok := m.holds[key]; ok {
		return false
	}

	if m.lock == nil {
		m.lock = m.factory()
		m.logger.Debug("multicast lock created")
	}
	m.lock.Acquire()
	m.holds[key] = struct{}{}
	m.changed()

	m.logger.Debug("multicast lock acquired",
		zap.Int("handle", owner),
		zap.String("group", group),
		zap.Int("holds", len(m.holds)))
	return true
}

// Release drops the hold owner has on group. Reports whether a hold was
// released.
func (m *Manager) Release(owner int, group string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := holdKey{owner: owner, group: group}
	if _, ok := m.holds[key]; !ok {
		return false
	}
	m.releaseLocked(key)
	m.changed()
	return true
}

// ReleaseOwner drops every hold owner has. Returns the number released.
func (m *Manager) ReleaseOwner(owner int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key := range m.holds {
		if key.owner != owner {
			continue
		}
		m.releaseLocked(key)
		n++
	}
	if n > 0 {
		m.changed()
	}
	return n
}

func (m *Manager) releaseLocked(key holdKey) {
	delete(m.holds, key)
	if m.lock != nil && m.lock.IsHeld() {
		m.lock.Release()
	}
	m.logger.Debug("multicast lock released",
		zap.Int("handle", key.owner),
		zap.String("group", key.group),
		zap.Int("holds", len(m.holds)))
}

// Watch registers fn to be called with the hold count now and after every
// change. fn runs under the manager's mutex and must not call back into it.
func (m *Manager) Watch(fn func(int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
	fn(len(m.holds))
}

func (m *Manager) changed() {
	for _, fn := range m.watchers {
		fn(len(m.holds))
	}
}

// Held reports whether the lock exists and is held.
func (m *Manager) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lock != nil && m.lock.IsHeld()
}

// Created reports whether the lock has been created.
func (m *Manager) Created() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lock != nil
}

// Holds returns the number of outstanding holds.
func (m *Manager) Holds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.holds)
}
