package models

import "time"

// NotificationKind categorises persisted notifications.
type NotificationKind string

const (
	NotificationCheckIn       NotificationKind = "check_in"
	NotificationJustification NotificationKind = "justification_decision"
)

// Notification is a persisted in-app notification row, written by the
// background dispatch queue.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
