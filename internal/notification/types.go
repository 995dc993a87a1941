package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification for presentation purposes.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	switch t {
	case TypeSuccess, TypeError, TypeWarning, TypeInfo:
		return true
	}
	return false
}

// Notification is a server-issued record cached by the client.
//
// IsRead is mutable only through the store's mark-read transitions;
// CreatedAt is immutable. Metadata is an opaque payload passed through
// unmodified.
type Notification struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      Type           `json:"type"`
	IsRead    bool           `json:"isRead"`
	CreatedAt time.Time      `json:"createdAt"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ToastOrigin tells where a toast request came from.
type ToastOrigin string

const (
	// OriginManual marks caller-invoked toasts (e.g. form validation
	// feedback). These bypass the recency gate.
	OriginManual ToastOrigin = "manual"
	// OriginNotification marks toasts derived from a backend notification.
	OriginNotification ToastOrigin = "notification"
)

// Toast is an ephemeral presentation request. It lives for at most one
// auto-hide duration (or until dismissed/superseded) and is never reused.
//
// SourceID is a weak back-reference for display only; it is never used to
// mutate the source notification.
type Toast struct {
	ID       string
	Title    string
	Message  string
	Type     Type
	Origin   ToastOrigin
	SourceID string
	At       time.Time
}

// Manual builds a caller-invoked toast request.
func Manual(message string, typ Type, title string) Toast {
	if !typ.Valid() {
		typ = TypeInfo
	}
	return Toast{
		ID:      uuid.NewString(),
		Title:   title,
		Message: message,
		Type:    typ,
		Origin:  OriginManual,
	}
}

// FromNotification builds a toast request out of a backend notification.
func FromNotification(n Notification) Toast {
	return Toast{
		ID:       uuid.NewString(),
		Title:    n.Title,
		Message:  n.Message,
		Type:     n.Type,
		Origin:   OriginNotification,
		SourceID: n.ID,
	}
}
