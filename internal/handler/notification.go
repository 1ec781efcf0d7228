package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/merobus/merobus-backend/internal/middleware"
	"github.com/merobus/merobus-backend/internal/repository"
)

// NotificationHandler serves the authenticated user's stored
// notifications.
type NotificationHandler struct {
	Notifications *repository.NotificationRepo
}

func NewNotificationHandler(n *repository.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{Notifications: n}
}

// List returns the user's notifications, newest first, ten per page
// (query param "page").
func (h *NotificationHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	list, err := h.Notifications.ListByUser(ctx, middleware.UserID(c), page)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	type notificationPart struct {
		ID        uint64    `json:"id"`
		Title     string    `json:"title"`
		Body      string    `json:"body"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]notificationPart, 0, len(list))
	for _, n := range list {
		out = append(out, notificationPart{ID: n.ID, Title: n.Title, Body: n.Body, CreatedAt: n.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": out, "page": page})
}
