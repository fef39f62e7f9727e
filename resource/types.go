package resource

// Handle is a caller-assigned identifier for a table entry.
// Any integer is valid, including zero and negative values.
type Handle int

// EventType identifies an entry lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents an entry lifecycle event.
type Event[V any] struct {
	Value  V
	Handle Handle
	Type   EventType
}

// Observer receives notifications about entry lifecycle events.
type Observer[V any] interface {
	OnResourceEvent(Event[V])
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc[V any] func(Event[V])

func (f ObserverFunc[V]) OnResourceEvent(e Event[V]) { f(e) }
