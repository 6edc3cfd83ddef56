package handlers

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/fetcher"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/platforms"
	"github.com/Ramsey-B/clover/pkg/session"
)

// PlatformHandler lists the active community's connected platforms for the community screen
type PlatformHandler struct {
	backend   fetcher.Backend
	sessions  session.Store
	displayer *platforms.Displayer
	logger    ectologger.Logger
}

func NewPlatformHandler(backend fetcher.Backend, sessions session.Store, displayer *platforms.Displayer, logger ectologger.Logger) *PlatformHandler {
	return &PlatformHandler{
		backend:   backend,
		sessions:  sessions,
		displayer: displayer,
		logger:    logger,
	}
}

type PlatformsResponse struct {
	Results []models.PlatformDisplay `json:"results"`
	// CanManage enables the "Manage" action, which needs at least one connected platform
	CanManage bool `json:"canManage"`
}

func (h *PlatformHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/platforms/:name", h.List)
}

// List handles GET /platforms/:name. Read failures render as an empty list.
func (h *PlatformHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	name := models.PlatformName(c.Param("name"))
	if !name.Valid() {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown platform %q", name)
	}

	communityID := session.CommunityID(ctx, h.sessions, userID)
	results := fetcher.NewFetcher(h.backend, h.logger).FetchPlatforms(ctx, communityID, name).Results

	return SuccessResponse(c, PlatformsResponse{
		Results: h.displayer.DisplayAll(results),
		CanManage: len(ectolinq.Filter(results, func(p models.Platform) bool {
			return p.Active()
		})) > 0,
	})
}
