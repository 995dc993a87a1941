package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"notifyd/pkg/logx"
)

func TestOpenDispatch(t *testing.T) {
	j, err := Open(Config{}, logx.Logger{})
	if err != nil {
		t.Fatalf("Open empty driver: %v", err)
	}
	if _, ok := j.(Nop); !ok {
		t.Fatalf("empty driver should yield Nop, got %T", j)
	}

	j, err = Open(Config{Driver: "None"}, logx.Logger{})
	if err != nil {
		t.Fatalf("Open none: %v", err)
	}
	if _, ok := j.(Nop); !ok {
		t.Fatalf("none driver should yield Nop, got %T", j)
	}

	if _, err := Open(Config{Driver: "postgres"}, logx.Logger{}); err == nil {
		t.Fatalf("unknown driver accepted")
	}

	if _, err := Open(Config{Driver: "sqlite"}, logx.Logger{}); err == nil {
		t.Fatalf("sqlite without a path accepted")
	}
}

func TestSQLiteAppendRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(Config{Driver: "sqlite", Path: path}, logx.Logger{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	ctx := context.Background()
	first := Entry{
		At:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Kind:   "mutation",
		Op:     "mark_read",
		Target: "n-1",
		OK:     true,
		TookMS: 12,
	}
	second := Entry{
		At:    time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC),
		Kind:  "mutation",
		Op:    "clear_all",
		OK:    false,
		Error: "503 from upstream",
	}
	if err := j.Append(ctx, first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := j.Append(ctx, second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	// Newest first.
	if got[0].Op != "clear_all" || got[0].OK || got[0].Error != "503 from upstream" {
		t.Fatalf("got[0]=%+v", got[0])
	}
	if got[1].Op != "mark_read" || !got[1].OK || got[1].Target != "n-1" || got[1].TookMS != 12 {
		t.Fatalf("got[1]=%+v", got[1])
	}
	if !got[1].At.Equal(first.At) {
		t.Fatalf("At=%v, want %v", got[1].At, first.At)
	}
	// Empty target round-trips as empty, not "null".
	if got[0].Target != "" {
		t.Fatalf("target=%q", got[0].Target)
	}
}

func TestSQLiteRecentLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(Config{Driver: "sqlite", Path: path}, logx.Logger{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := j.Append(ctx, Entry{Kind: "toast", Op: "toast.shown", OK: true}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	got, err := j.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}
}
