package domain

import "time"

type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
	KindInfo    NotificationKind = "info"
	KindWarning NotificationKind = "warning"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case KindSuccess, KindError, KindInfo, KindWarning:
		return true
	}
	return false
}

// Notification is a transient user-facing message. It is never persisted.
type Notification struct {
	ID        int64            `json:"id"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"type"`
	CreatedAt time.Time        `json:"createdAt"`
}
