package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures the activity journal.
//
// Driver values:
//   - "sqlite": SQLite database file
//   - "" or "none": journaling disabled (no-op journal)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default (2s)
	Retention   time.Duration // prune horizon; 0 means default (168h)
}

// Entry records one piece of engine activity: a user-initiated mutation
// attempt (with outcome) or a toast transition. The journal is an audit
// trail only; the notification cache itself is never persisted and is
// rebuilt from the API on every session start.
type Entry struct {
	At     time.Time
	Kind   string // "mutation" | "toast"
	Op     string // e.g. "mark_read", "clear_all", "toast.shown"
	Target string // notification or toast id, if any
	OK     bool
	Error  string
	TookMS int64
}

// Journal is the persistence interface for activity entries.
type Journal interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Nop is a Journal that drops everything. Used when journaling is off.
type Nop struct{}

func (Nop) Append(context.Context, Entry) error          { return nil }
func (Nop) Recent(context.Context, int) ([]Entry, error) { return nil, nil }
func (Nop) Close() error                                 { return nil }
