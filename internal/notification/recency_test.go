package notification

import (
	"testing"
	"time"
)

func TestIsRecentBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"just created", 0, true},
		{"29 minutes old", 29 * time.Minute, true},
		{"exactly at the window", 30 * time.Minute, true},
		{"31 minutes old", 31 * time.Minute, false},
		{"a day old", 24 * time.Hour, false},
		{"clock skew: created in the future", -time.Minute, true},
	}
	for _, tc := range tests {
		n := Notification{ID: "x", CreatedAt: now.Add(-tc.age)}
		if got := IsRecent(n, now, DefaultRecencyWindow); got != tc.want {
			t.Errorf("%s: IsRecent=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTypeValid(t *testing.T) {
	for _, typ := range []Type{TypeSuccess, TypeError, TypeWarning, TypeInfo} {
		if !typ.Valid() {
			t.Errorf("%q should be valid", typ)
		}
	}
	if Type("fatal").Valid() {
		t.Errorf("unknown type accepted")
	}
}

func TestManualDefaultsType(t *testing.T) {
	ts := Manual("saved", Type("bogus"), "")
	if ts.Type != TypeInfo {
		t.Fatalf("type=%q, want info fallback", ts.Type)
	}
	if ts.ID == "" {
		t.Fatalf("expected generated id")
	}
	if ts.Origin != OriginManual {
		t.Fatalf("origin=%q", ts.Origin)
	}
}

func TestFromNotification(t *testing.T) {
	n := Notification{ID: "n-1", Title: "Deploy done", Message: "build 42", Type: TypeSuccess}
	ts := FromNotification(n)
	if ts.SourceID != "n-1" || ts.Title != "Deploy done" || ts.Type != TypeSuccess {
		t.Fatalf("unexpected toast: %+v", ts)
	}
	if ts.Origin != OriginNotification {
		t.Fatalf("origin=%q", ts.Origin)
	}
	if ts.ID == n.ID {
		t.Fatalf("toast must get its own id")
	}
}
