package toast

import (
	"testing"
	"time"

	"notifyd/internal/eventbus"
	"notifyd/internal/notification"
)

func drain(ch <-chan eventbus.Event) []eventbus.Event {
	var out []eventbus.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestNewestWins(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	s := New(Config{Duration: time.Hour}, nil, bus)
	defer s.Stop(nil)

	s.Show(notification.Toast{ID: "first", Message: "one", Type: notification.TypeInfo})
	s.Show(notification.Toast{ID: "second", Message: "two", Type: notification.TypeSuccess})

	cur, ok := s.Current()
	if !ok || cur.ID != "second" {
		t.Fatalf("current=%+v ok=%v, want second", cur, ok)
	}

	events := drain(ch)
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	want := []string{
		eventbus.TypeToastShown,
		eventbus.TypeToastSuperseded,
		eventbus.TypeToastShown,
	}
	if len(types) != len(want) {
		t.Fatalf("events=%v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events=%v, want %v", types, want)
		}
	}
	if ev := events[1].Data.(Event); ev.ID != "first" || ev.Reason != "superseded" {
		t.Fatalf("superseded event=%+v", ev)
	}
}

func TestAutoHide(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	s := New(Config{Duration: 20 * time.Millisecond}, nil, bus)
	s.Show(notification.Toast{ID: "brief", Type: notification.TypeInfo})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Type != eventbus.TypeToastHidden {
				continue
			}
			ev := e.Data.(Event)
			if ev.ID != "brief" || ev.Reason != "timeout" {
				t.Fatalf("hidden event=%+v", ev)
			}
			if _, ok := s.Current(); ok {
				t.Fatalf("toast still visible after auto-hide")
			}
			return
		case <-deadline:
			t.Fatalf("auto-hide never fired")
		}
	}
}

func TestHideCancelsTimer(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	s := New(Config{Duration: 30 * time.Millisecond}, nil, bus)
	s.Show(notification.Toast{ID: "x", Type: notification.TypeWarning})
	s.Hide()

	// Wait past the armed duration; the cancelled timer must not publish
	// a second hide.
	time.Sleep(80 * time.Millisecond)

	hides := 0
	for _, e := range drain(ch) {
		if e.Type == eventbus.TypeToastHidden {
			hides++
			if ev := e.Data.(Event); ev.Reason != "dismissed" {
				t.Fatalf("reason=%q, want dismissed", ev.Reason)
			}
		}
	}
	if hides != 1 {
		t.Fatalf("hide events=%d, want 1", hides)
	}
}

func TestStaleTimerDoesNotHideNewerToast(t *testing.T) {
	s := New(Config{Duration: 20 * time.Millisecond}, nil, nil)
	s.Show(notification.Toast{ID: "old", Type: notification.TypeInfo})

	// Replace just before the first timer would fire, with a long duration.
	time.Sleep(10 * time.Millisecond)
	s.Apply(Config{Duration: time.Hour})
	s.Show(notification.Toast{ID: "new", Type: notification.TypeInfo})

	// Let the first toast's original deadline pass.
	time.Sleep(50 * time.Millisecond)

	cur, ok := s.Current()
	if !ok || cur.ID != "new" {
		t.Fatalf("current=%+v ok=%v, want new still visible", cur, ok)
	}
}

func TestHideWhenNothingVisible(t *testing.T) {
	s := New(Config{}, nil, nil)
	s.Hide() // must not panic or publish
	if _, ok := s.Current(); ok {
		t.Fatalf("phantom toast")
	}
}

func TestShowAssignsID(t *testing.T) {
	s := New(Config{Duration: time.Hour}, nil, nil)
	defer s.Hide()
	s.Show(notification.Toast{Message: "no id", Type: notification.TypeInfo})
	cur, ok := s.Current()
	if !ok || cur.ID == "" {
		t.Fatalf("expected assigned id, got %+v ok=%v", cur, ok)
	}
	if cur.At.IsZero() {
		t.Fatalf("At not stamped")
	}
}
