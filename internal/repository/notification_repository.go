package repository

import (
	"context"
	"database/sql"

	"github.com/merobus/merobus-backend/internal/model"
)

// NotificationRepo provides access to the append-only notifications
// table. Rows are never updated or deleted; read state is implicit in
// retrieval order.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a NotificationRepo bound to the database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Insert appends a notification record. On success the ID and
// CreatedAt fields are populated.
func (r *NotificationRepo) Insert(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, title, body) VALUES (?,?,?)`,
		n.UserID, n.Title, n.Body)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at FROM notifications WHERE id = ?`, n.ID).Scan(&n.CreatedAt)
}

// ListByUser returns a user's notifications, newest first, ten per
// page.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, page int) ([]model.Notification, error) {
	if page < 1 {
		page = 1
	}
	const perPage = 10
	const q = `SELECT id, user_id, title, body, created_at
	           FROM notifications WHERE user_id = ?
	           ORDER BY created_at DESC, id DESC
	           LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
