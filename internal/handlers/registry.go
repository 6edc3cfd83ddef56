package handlers

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/platforms"
)

// RegistryHandler serves the tab strips of the settings screens
type RegistryHandler struct {
	gdriveEnabled bool
}

func NewRegistryHandler(gdriveEnabled bool) *RegistryHandler {
	return &RegistryHandler{gdriveEnabled: gdriveEnabled}
}

func (h *RegistryHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/registry/:context", h.Get)
}

// Get handles GET /registry/:context
func (h *RegistryHandler) Get(c echo.Context) error {
	registry, err := platforms.ForContext(c.Param("context"), h.gdriveEnabled)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "unknown registry context %q", c.Param("context"))
	}
	return SuccessResponse(c, registry.Tabs())
}
