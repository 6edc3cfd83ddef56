package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/notify"
)

type NotificationHandler struct {
	notifier *notify.Notifier
}

func NewNotificationHandler(notifier *notify.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

func (h *NotificationHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.Drain)
}

// Drain handles GET /notifications; returned notifications are removed from the queue
func (h *NotificationHandler) Drain(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	return SuccessResponse(c, h.notifier.Drain(userID))
}
