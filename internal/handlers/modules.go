package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/community"
)

type ModuleHandler struct {
	modules *community.ModuleManager
}

func NewModuleHandler(modules *community.ModuleManager) *ModuleHandler {
	return &ModuleHandler{modules: modules}
}

func (h *ModuleHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/modules/hivemind/manage", h.ManageHivemind)
}

// ManageHivemind handles POST /modules/hivemind/manage
func (h *ModuleHandler) ManageHivemind(c echo.Context) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	module, outcome := h.modules.ManageHivemind(c.Request().Context(), userID)
	return OutcomeResult(c, outcome, module)
}
