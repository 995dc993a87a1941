package notification

import "time"

// DefaultRecencyWindow bounds how old an unread notification may be and
// still interrupt the user with a toast.
const DefaultRecencyWindow = 30 * time.Minute

// IsRecent reports whether n was created within window before now.
//
// The gate only decides toast eligibility: stale unread notifications are
// still cached and counted, they just never interrupt the user after the
// fact. Without this, every session start would replay a backlog of old
// unread items as toasts.
func IsRecent(n Notification, now time.Time, window time.Duration) bool {
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	return !n.CreatedAt.Before(now.Add(-window))
}
