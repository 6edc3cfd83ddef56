package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/platforms"
	"github.com/Ramsey-B/clover/pkg/settings"
)

// HivemindHandler drives the Hivemind settings screen
type HivemindHandler struct {
	settings *settings.Manager
}

func NewHivemindHandler(settings *settings.Manager) *HivemindHandler {
	return &HivemindHandler{settings: settings}
}

func (h *HivemindHandler) RegisterRoutes(g *echo.Group) {
	hm := g.Group("/hivemind")
	hm.GET("", h.Get)
	hm.PUT("/tabs/:index", h.SelectTab)
	hm.PUT("/connections/:index", h.SelectConnection)
	hm.POST("/save", h.Save)
}

// Get handles GET /hivemind, re-fetching the active tab
func (h *HivemindHandler) Get(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	return SuccessResponse(c, h.settings.Screen(userID).Load(c.Request().Context()))
}

// SelectTab handles PUT /hivemind/tabs/:index
func (h *HivemindHandler) SelectTab(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	index, err := ParseIndex(c, "index")
	if err != nil {
		return err
	}

	view, err := h.settings.Screen(userID).SelectTab(c.Request().Context(), index)
	switch {
	case errors.Is(err, platforms.ErrTabOutOfRange):
		return httperror.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, platforms.ErrTabDisabled):
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return err
	}
	return SuccessResponse(c, view)
}

// SelectConnection handles PUT /hivemind/connections/:index
func (h *HivemindHandler) SelectConnection(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}
	index, err := ParseIndex(c, "index")
	if err != nil {
		return err
	}

	view, err := h.settings.Screen(userID).SelectConnection(index)
	if errors.Is(err, settings.ErrConnectionOutOfRange) {
		return httperror.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return SuccessResponse(c, view)
}

// Save handles POST /hivemind/save. The body is the configuration of the active tab's platform.
func (h *HivemindHandler) Save(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize))
	if err != nil {
		return BadRequest("invalid request body")
	}

	outcome, view := h.settings.Screen(userID).Save(c.Request().Context(), raw)
	return OutcomeResult(c, outcome, view)
}
