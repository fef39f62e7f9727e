package resource

import (
	"sort"
	"sync"
)

// Table is a mutex-guarded map from caller handles to values, with
// lifecycle observers.
type Table[V any] struct {
	entries   map[Handle]V
	observers []Observer[V]
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

// NewTable creates an empty table.
func NewTable[V any]() *Table[V] {
	return &Table[V]{
		entries: make(map[Handle]V),
	}
}

// InsertIfAbsent stores value under handle unless the handle is taken or
// the table is closed. An existing entry is never overwritten.
func (t *Table[V]) InsertIfAbsent(handle Handle, value V) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	if _, exists := t.entries[handle]; exists {
		t.mu.Unlock()
		return false
	}
	t.entries[handle] = value
	t.mu.Unlock()

	t.notify(Event[V]{
		Type:   EventCreated,
		Handle: handle,
		Value:  value,
	})
	return true
}

// Get retrieves a value by handle.
func (t *Table[V]) Get(handle Handle) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.entries[handle]
	return v, ok
}

// Remove drops an entry and returns (value, true) if found.
func (t *Table[V]) Remove(handle Handle) (V, bool) {
	t.mu.Lock()
	v, ok := t.entries[handle]
	if ok {
		delete(t.entries, handle)
	}
	t.mu.Unlock()

	if !ok {
		return v, false
	}

	t.notify(Event[V]{
		Type:   EventDropped,
		Handle: handle,
		Value:  v,
	})
	return v, true
}

// Each iterates over a snapshot of the live entries in ascending handle
// order. fn may mutate the table; the snapshot is not affected.
func (t *Table[V]) Each(fn func(Handle, V) bool) {
	t.mu.RLock()
	handles := make([]Handle, 0, len(t.entries))
	for h := range t.entries {
		handles = append(handles, h)
	}
	values := make(map[Handle]V, len(t.entries))
	for _, h := range handles {
		values[h] = t.entries[h]
	}
	t.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	for _, h := range handles {
		if !fn(h, values[h]) {
			return
		}
	}
}

// Handles returns the live handles in ascending order.
func (t *Table[V]) Handles() []Handle {
	var out []Handle
	t.Each(func(h Handle, _ V) bool {
		out = append(out, h)
		return true
	})
	return out
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[V]) Subscribe(o Observer[V]) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of live entries.
func (t *Table[V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Close stops accepting inserts. Live entries stay in place so their
// owner can release and remove them.
func (t *Table[V]) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (t *Table[V]) Closed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

func (t *Table[V]) notify(e Event[V]) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
