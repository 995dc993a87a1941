package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is a lightweight in-memory signal used to decouple the engine's
// services from whatever presents their state.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Slow subscribers lose events (bounded backpressure).
//
// Data should be small; event payload structs live next to the publisher.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// Well-known event types published by the engine.
const (
	TypeStoreChanged       = "store.changed"
	TypeToastShown         = "toast.shown"
	TypeToastSuperseded    = "toast.superseded"
	TypeToastHidden        = "toast.hidden"
	TypeMutationApplied    = "mutation.applied"
	TypeMutationRolledBack = "mutation.rolled_back"
	TypeSessionStarted     = "session.started"
	TypeSessionStopped     = "session.stopped"
)

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]*subscriber{}}
}

type subscriber struct {
	ch      chan Event
	dropped atomic.Uint64
}

type memBus struct {
	mu   sync.Mutex
	subs map[uint64]*subscriber
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Deliver while holding the lock: sends are non-blocking and
	// Unsubscribe closes channels under the same lock, so a send can
	// never race a close.
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	s := &subscriber{ch: make(chan Event, buffer)}
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(s.ch)
			b.mu.Unlock()
		})
	}
	return s.ch, unsub
}
