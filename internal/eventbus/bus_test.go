package eventbus

import (
	"testing"
	"time"
)

func TestPublishFanout(t *testing.T) {
	b := New()
	ch1, unsub1 := b.Subscribe(4)
	ch2, unsub2 := b.Subscribe(4)
	defer unsub1()
	defer unsub2()

	b.Publish(Event{Type: TypeStoreChanged, Data: "x"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Type != TypeStoreChanged || e.Data != "x" {
				t.Fatalf("subscriber %d got %+v", i, e)
			}
			if e.Time.IsZero() {
				t.Fatalf("Time not stamped")
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d got nothing", i)
		}
	}
}

func TestSlowSubscriberLosesEvents(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"}) // buffer full: dropped, never blocks

	if e := <-ch; e.Type != "a" {
		t.Fatalf("got %q", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected second event %q", e.Type)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub() // idempotent

	if _, ok := <-ch; ok {
		t.Fatalf("channel not closed")
	}
	b.Publish(Event{Type: "after"}) // must not panic on the removed sub
}
