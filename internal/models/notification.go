package models

import "time"

// NotificationType classifies notifications for preference routing.
type NotificationType string

const (
	NotificationBookingConfirmed NotificationType = "booking_confirmed"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
	NotificationReminder         NotificationType = "reminder"
	NotificationSystem           NotificationType = "system"
)

// Notification is an in-app message delivered to a user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationPreference stores per-type delivery settings for a user.
type NotificationPreference struct {
	ID           string           `db:"id" json:"id"`
	UserID       string           `db:"user_id" json:"user_id"`
	Type         NotificationType `db:"type" json:"type"`
	Enabled      bool             `db:"enabled" json:"enabled"`
	EmailEnabled bool             `db:"email_enabled" json:"email_enabled"`
	PushEnabled  bool             `db:"push_enabled" json:"push_enabled"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// NotificationFilter pages a user's notifications.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
