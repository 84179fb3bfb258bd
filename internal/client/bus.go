package client

import "sync"

type EventType string

const (
	EventLogout       EventType = "logout"
	EventStateChanged EventType = "state_changed"
)

type Event struct {
	Type EventType
}

// Bus is the cross-tab side channel: unordered, at-most-once fan-out. A slow
// subscriber loses events rather than blocking the publisher, so handlers
// must tolerate both duplicate and missing delivery.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 8)
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// at-most-once: drop instead of blocking
		}
	}
}
