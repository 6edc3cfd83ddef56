package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/community"
	"github.com/Ramsey-B/clover/pkg/settings"
)

// SessionHandler manages the user's active community
type SessionHandler struct {
	active   *community.ActiveCommunity
	names    *community.NameEditor
	dialogs  *community.DeleteDialogs
	settings *settings.Manager
}

func NewSessionHandler(active *community.ActiveCommunity, names *community.NameEditor, dialogs *community.DeleteDialogs, settings *settings.Manager) *SessionHandler {
	return &SessionHandler{
		active:   active,
		names:    names,
		dialogs:  dialogs,
		settings: settings,
	}
}

type SelectCommunityRequest struct {
	ID string `json:"id" validate:"required"`
}

func (h *SessionHandler) RegisterRoutes(g *echo.Group) {
	s := g.Group("/session")
	s.GET("/community", h.GetCommunity)
	s.PUT("/community", h.SelectCommunity)
}

// GetCommunity handles GET /session/community
func (h *SessionHandler) GetCommunity(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	view, err := h.active.Refresh(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	view.Editing = h.names.Pending(userID)

	return SuccessResponse(c, view)
}

// SelectCommunity handles PUT /session/community
func (h *SessionHandler) SelectCommunity(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req SelectCommunityRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	view, err := h.active.Select(c.Request().Context(), userID, req.ID)
	if err != nil {
		return err
	}

	// state built for the previous community no longer applies
	h.names.Cancel(userID)
	h.dialogs.Cancel(userID)
	h.settings.Forget(userID)

	return SuccessResponse(c, view)
}
