package store

import (
	"time"

	"notifyd/internal/notification"
)

// Action is the closed set of store transitions. The interface is sealed
// (unexported marker method) so every variant lives in this package and
// Reduce can switch over them exhaustively; adding a variant without
// handling it in Reduce is caught by the fallthrough panic in tests.
type Action interface {
	name() string
}

// SetLoading toggles the loading flag. No other field changes.
type SetLoading struct {
	Loading bool
}

// SetNotifications replaces the cached list wholesale, stamps the
// last-full-fetch timestamp and clears any error. UnreadCount overwrites
// the stored count only when non-nil (the server did send one).
type SetNotifications struct {
	List        []notification.Notification
	UnreadCount *int
	At          time.Time
}

// Add prepends a notification. The unread count grows only if the new
// record is unread.
type Add struct {
	N notification.Notification
}

// MarkRead flips one record to read and decrements the unread count,
// floored at zero. No-op when the id is absent.
type MarkRead struct {
	ID string
}

// MarkAllRead flips every record to read and zeroes the unread count.
type MarkAllRead struct{}

// Delete removes one record. The unread count shrinks only if the removed
// record was unread.
type Delete struct {
	ID string
}

// ClearAll empties the list and zeroes the unread count.
type ClearAll struct{}

// SetUnreadCount overwrites the count directly. Used after a lightweight
// count probe when no full fetch happened.
type SetUnreadCount struct {
	Count int
}

// SetError records an error and clears the loading flag.
type SetError struct {
	Message string
}

func (SetLoading) name() string       { return "set_loading" }
func (SetNotifications) name() string { return "set_notifications" }
func (Add) name() string              { return "add" }
func (MarkRead) name() string         { return "mark_read" }
func (MarkAllRead) name() string      { return "mark_all_read" }
func (Delete) name() string           { return "delete" }
func (ClearAll) name() string         { return "clear_all" }
func (SetUnreadCount) name() string   { return "set_unread_count" }
func (SetError) name() string         { return "set_error" }
