package live

import (
	"context"
	"log/slog"

	"github.com/merobus/merobus-backend/internal/model"
	"github.com/merobus/merobus-backend/internal/repository"
)

// Notifier delivers a notification as a durable row plus a best-effort
// live push. The row is written first and is the source of truth; a
// missed push only means the user reads it later.
type Notifier struct {
	Repo   *repository.NotificationRepo
	Hub    *Hub
	Logger *slog.Logger
}

// NewNotifier wires a Notifier.
func NewNotifier(repo *repository.NotificationRepo, hub *Hub, logger *slog.Logger) *Notifier {
	return &Notifier{Repo: repo, Hub: hub, Logger: logger}
}

// Notify stores the notification and pushes it to the user's live
// session if one exists. The error reflects the store only.
func (n *Notifier) Notify(ctx context.Context, userID uint64, title, body string) error {
	rec := &model.Notification{UserID: userID, Title: title, Body: body}
	if err := n.Repo.Insert(ctx, rec); err != nil {
		return err
	}
	delivered := n.Hub.Push(userID, Event{Type: "notification", Payload: map[string]interface{}{
		"id":        rec.ID,
		"title":     rec.Title,
		"body":      rec.Body,
		"createdAt": rec.CreatedAt,
	}})
	if !delivered {
		n.Logger.Debug("user offline, notification stored only", "user_id", userID)
	}
	return nil
}
