package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/chirp/backend/internal/middleware"
	"github.com/anonto42/chirp/backend/internal/services"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
}

func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	ns, err := h.notifications.List(c.Request().Context(), middleware.UID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ns)
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	n, err := h.notifications.UnreadCount(c.Request().Context(), middleware.UID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	if err := h.notifications.MarkRead(c.Request().Context(), middleware.UID(c), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	if err := h.notifications.MarkAllRead(c.Request().Context(), middleware.UID(c)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
