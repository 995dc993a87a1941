package store

import (
	"fmt"
	"sync"
	"time"

	"notifyd/internal/eventbus"
	"notifyd/internal/notification"
)

// State is the authoritative client-side view of the notification center.
type State struct {
	Notifications []notification.Notification
	UnreadCount   int
	Loading       bool
	Err           string
	LastFetch     time.Time
}

// Unread counts the cached records with IsRead == false. The store keeps
// the invariant UnreadCount == Unread() after every settled transition;
// the two may diverge only while an optimistic remote call is in flight.
func (s State) Unread() int {
	n := 0
	for _, x := range s.Notifications {
		if !x.IsRead {
			n++
		}
	}
	return n
}

// Reduce is a pure transition function: (state, action) -> state.
// It performs no I/O and never mutates its input; callers own all
// orchestration around remote calls.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case SetLoading:
		s.Loading = act.Loading
		return s

	case SetNotifications:
		s.Notifications = append([]notification.Notification(nil), act.List...)
		if act.UnreadCount != nil {
			s.UnreadCount = *act.UnreadCount
		}
		s.LastFetch = act.At
		s.Loading = false
		s.Err = ""
		return s

	case Add:
		list := make([]notification.Notification, 0, len(s.Notifications)+1)
		list = append(list, act.N)
		list = append(list, s.Notifications...)
		s.Notifications = list
		if !act.N.IsRead {
			s.UnreadCount++
		}
		return s

	case MarkRead:
		idx := -1
		for i, n := range s.Notifications {
			if n.ID == act.ID {
				idx = i
				break
			}
		}
		if idx < 0 || s.Notifications[idx].IsRead {
			// Absent id or already read: nothing to flip, nothing to count.
			return s
		}
		list := append([]notification.Notification(nil), s.Notifications...)
		list[idx].IsRead = true
		s.Notifications = list
		if s.UnreadCount > 0 {
			s.UnreadCount--
		}
		return s

	case MarkAllRead:
		list := append([]notification.Notification(nil), s.Notifications...)
		for i := range list {
			list[i].IsRead = true
		}
		s.Notifications = list
		s.UnreadCount = 0
		return s

	case Delete:
		idx := -1
		for i, n := range s.Notifications {
			if n.ID == act.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return s
		}
		wasUnread := !s.Notifications[idx].IsRead
		list := make([]notification.Notification, 0, len(s.Notifications)-1)
		list = append(list, s.Notifications[:idx]...)
		list = append(list, s.Notifications[idx+1:]...)
		s.Notifications = list
		if wasUnread && s.UnreadCount > 0 {
			s.UnreadCount--
		}
		return s

	case ClearAll:
		s.Notifications = nil
		s.UnreadCount = 0
		return s

	case SetUnreadCount:
		s.UnreadCount = act.Count
		return s

	case SetError:
		s.Err = act.Message
		s.Loading = false
		return s

	default:
		// The action set is sealed; hitting this means a variant was
		// added without a Reduce case.
		panic(fmt.Sprintf("store: unhandled action %T", a))
	}
}

// ChangeEvent is the bus payload for store transitions.
type ChangeEvent struct {
	Action      string
	UnreadCount int
	Size        int
}

// Store owns the current state. It is the single shared mutable resource
// of the engine and is only ever mutated through Dispatch.
type Store struct {
	mu    sync.RWMutex
	state State
	bus   eventbus.Bus
}

// New returns an empty store. bus may be nil.
func New(bus eventbus.Bus) *Store {
	return &Store{bus: bus}
}

// Dispatch applies one action and returns the resulting state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	out := s.state
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.TypeStoreChanged,
			Data: ChangeEvent{Action: a.name(), UnreadCount: out.UnreadCount, Size: len(out.Notifications)},
		})
	}
	return out
}

// Snapshot returns the current state. The contained slice is shared but
// never mutated in place (Reduce copies on write), so readers may keep it.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
