// Package multicast tracks the process-wide reservation that must be held
// while any client is a member of a multicast group.
//
// The reservation itself is a Lock. The Manager creates it lazily on the
// first Acquire and never discards it; afterwards it only moves between
// held and not held. The Manager accounts holds per (owner, group) so a
// caller can release everything an owner took without over-releasing.
package multicast

import "sync"

// Lock is a reference-counted reservation.
type Lock interface {
	Acquire()
	Release()
	IsHeld() bool
}

// LockFactory creates the process-wide lock on first use.
type LockFactory func() Lock

// CountedLock is the default Lock. Release below zero is ignored.
type CountedLock struct {
	mu    sync.Mutex
	count int
}

// NewCountedLock returns a Lock that is not held.
func NewCountedLock() Lock {
	return &CountedLock{}
}

func (l *CountedLock) Acquire() {
	l.mu.Lock()
	l.count++
	l.mu.Unlock()
}

func (l *CountedLock) Release() {
	l.mu.Lock()
	if l.count > 0 {
		l.count--
	}
	l.mu.Unlock()
}

func (l *CountedLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count > 0
}

// Count returns the current number of holds.
func (l *CountedLock) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
