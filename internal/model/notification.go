package model

import "time"

// Notification is a durable, append-only record of a message for a
// user.  Live push delivery is best-effort; this row is the
// at-least-once record the user can fetch later.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – recipient.
//  Title     – short headline.
//  Body      – message body.
//  CreatedAt – creation timestamp (listing is newest-first).
type Notification struct {
	ID        uint64    // notifications.id
	UserID    uint64    // notifications.user_id
	Title     string    // notifications.title
	Body      string    // notifications.body
	CreatedAt time.Time // notifications.created_at
}
