package adapter

import "sync"

// EventType represents device events
type EventType int

const (
	EventConnect EventType = iota
	EventDisconnect
	EventDetach
	EventData
	EventClose
)

func (t EventType) String() string {
	switch t {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventDetach:
		return "detach"
	case EventData:
		return "data"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Event represents a device event
type Event struct {
	Type   EventType
	Device string
	Data   []byte
	Error  error
}

// listeners dispatches events to registered handlers, each in its own goroutine
type listeners struct {
	mu       sync.RWMutex
	handlers map[EventType][]func(Event)
}

// On adds an event listener
func (l *listeners) On(eventType EventType, handler func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handlers == nil {
		l.handlers = make(map[EventType][]func(Event))
	}
	l.handlers[eventType] = append(l.handlers[eventType], handler)
}

func (l *listeners) emit(event Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, handler := range l.handlers[event.Type] {
		go handler(event)
	}
}
