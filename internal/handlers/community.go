package handlers

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/community"
	"github.com/Ramsey-B/clover/pkg/settings"
)

// CommunityHandler handles renaming and deleting the active community
type CommunityHandler struct {
	names    *community.NameEditor
	dialogs  *community.DeleteDialogs
	settings *settings.Manager
}

func NewCommunityHandler(names *community.NameEditor, dialogs *community.DeleteDialogs, settings *settings.Manager) *CommunityHandler {
	return &CommunityHandler{
		names:    names,
		dialogs:  dialogs,
		settings: settings,
	}
}

type RenameRequest struct {
	Name string `json:"name" validate:"required"`
}

type DeleteInputRequest struct {
	Name string `json:"name"`
}

func (h *CommunityHandler) RegisterRoutes(g *echo.Group) {
	cm := g.Group("/community")
	cm.PUT("/name", h.Rename)

	del := cm.Group("/delete")
	del.GET("", h.DeleteState)
	del.POST("/open", h.OpenDelete)
	del.POST("/acknowledge", h.AcknowledgeDelete)
	del.POST("/cancel", h.CancelDelete)
	del.PUT("/input", h.DeleteInput)
	del.POST("/confirm", h.ConfirmDelete)
}

// Rename handles PUT /community/name. The update is sent after the quiet period.
func (h *CommunityHandler) Rename(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req RenameRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	if err := h.names.Edit(c.Request().Context(), userID, req.Name); err != nil {
		return noCommunity(err)
	}
	return AcceptedResponse(c, map[string]any{"pending": true, "name": req.Name})
}

// DeleteState handles GET /community/delete
func (h *CommunityHandler) DeleteState(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	return SuccessResponse(c, h.dialogs.State(userID))
}

// OpenDelete handles POST /community/delete/open
func (h *CommunityHandler) OpenDelete(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	state, err := h.dialogs.Open(c.Request().Context(), userID)
	if err != nil {
		return noCommunity(err)
	}
	return SuccessResponse(c, state)
}

// AcknowledgeDelete handles POST /community/delete/acknowledge
func (h *CommunityHandler) AcknowledgeDelete(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	state, err := h.dialogs.Acknowledge(userID)
	if err != nil {
		return invalidStep(err)
	}
	return SuccessResponse(c, state)
}

// CancelDelete handles POST /community/delete/cancel
func (h *CommunityHandler) CancelDelete(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	return SuccessResponse(c, h.dialogs.Cancel(userID))
}

// DeleteInput handles PUT /community/delete/input
func (h *CommunityHandler) DeleteInput(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req DeleteInputRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	state, err := h.dialogs.SetInput(userID, req.Name)
	if err != nil {
		return invalidStep(err)
	}
	return SuccessResponse(c, state)
}

// ConfirmDelete handles POST /community/delete/confirm
func (h *CommunityHandler) ConfirmDelete(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	outcome, state := h.dialogs.Confirm(c.Request().Context(), userID)
	if outcome.OK() {
		h.names.Cancel(userID)
		h.settings.Forget(userID)
	}
	return OutcomeResult(c, outcome, state)
}

func invalidStep(err error) error {
	if errors.Is(err, community.ErrInvalidStep) {
		return httperror.NewHTTPError(http.StatusConflict, err.Error())
	}
	return err
}
