// Package event is the process-wide broadcast bus for listeners that cannot hold a loader handle.
package event

import "sync"

// Topic identifies a broadcast.
type Topic int

const (
	// TopicLoaderComplete fires once when a loader finalizes, on either path. No payload.
	TopicLoaderComplete Topic = iota
)

func (t Topic) String() string {
	switch t {
	case TopicLoaderComplete:
		return "loader_complete"
	default:
		return "unknown"
	}
}

type subscription struct {
	id int
	fn func()
}

// Bus dispatches topics to subscribers synchronously, in subscription order.
//
// Architecture:
//   - Publish runs handlers on the publishing goroutine
//   - Handlers may subscribe or unsubscribe from inside a handler; the change applies to the next Publish
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Topic][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers fn for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic Topic, fn func()) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish calls every handler subscribed to topic.
func (b *Bus) Publish(topic Topic) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[topic]...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn()
	}
}

// Subscribers returns the number of handlers subscribed to topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

var defaultBus = NewBus()

// Default returns the process-wide bus.
func Default() *Bus {
	return defaultBus
}

// Subscribe registers fn for topic on the process-wide bus.
func Subscribe(topic Topic, fn func()) (unsubscribe func()) {
	return defaultBus.Subscribe(topic, fn)
}

// Publish broadcasts topic on the process-wide bus.
func Publish(topic Topic) {
	defaultBus.Publish(topic)
}
