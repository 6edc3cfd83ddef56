// Package settings drives the Hivemind settings screen of one user: tab
// selection, the platform and module shown for the tab, and saving changes.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/fetcher"
	"github.com/Ramsey-B/clover/pkg/hivemind"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/notify"
	"github.com/Ramsey-B/clover/pkg/platforms"
	"github.com/Ramsey-B/clover/pkg/session"
	"github.com/Ramsey-B/clover/pkg/tabs"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	MessageSaved       = "AI assistant module updated successfully"
	MessageSaveFailed  = "Failed to update AI assistant module"
	MessageNoCommunity = "Select a community first"
	MessageNoModule    = "Hivemind is not set up for this community yet"
	MessageNoPlatform  = "No platforms connected"
	MessageSaving      = "A save is already in progress"
)

var ErrConnectionOutOfRange = errors.New("connection index out of range")

// Backend is what the screen needs from the backend client
type Backend interface {
	fetcher.Backend
	PatchModule(ctx context.Context, moduleID string, payload models.PatchPayload) (*models.Module, error)
}

// View is everything the dashboard renders for the settings screen
type View struct {
	Tabs       []platforms.Tab          `json:"tabs"`
	Active     platforms.Tab            `json:"active"`
	Platforms  []models.PlatformDisplay `json:"platforms"`
	Connection int                      `json:"connection"`
	Selected   *models.PlatformDisplay  `json:"selected,omitempty"`
	Module     *models.Module           `json:"module,omitempty"`
	Config     any                      `json:"config,omitempty"`
	Loading    bool                     `json:"loading"`
	Saving     bool                     `json:"saving"`
	CanSave    bool                     `json:"canSave"`
}

type Screen struct {
	userID    string
	backend   Backend
	sessions  session.Store
	tabs      *tabs.Controller
	fetcher   *fetcher.Fetcher
	builder   *hivemind.Registry
	displayer *platforms.Displayer
	notifier  *notify.Notifier
	publisher events.Publisher
	logger    ectologger.Logger

	mu         sync.Mutex
	module     *models.Module
	connection int
	saving     bool
}

// Load re-fetches the active tab
func (s *Screen) Load(ctx context.Context) View {
	return s.load(ctx, s.tabs.Refresh())
}

// SelectTab activates a tab and fetches its platforms and the module.
// Disabled and out-of-range tabs are rejected without any fetch.
func (s *Screen) SelectTab(ctx context.Context, index int) (View, error) {
	ticket, err := s.tabs.Select(index)
	if err != nil {
		return s.View(), err
	}
	return s.load(ctx, ticket), nil
}

// SelectConnection picks which connected platform of the tab is being configured
func (s *Screen) SelectConnection(index int) (View, error) {
	state := s.fetcher.State()
	if index < 0 || index >= len(state.Platforms) {
		return s.View(), fmt.Errorf("%w: %d", ErrConnectionOutOfRange, index)
	}

	s.mu.Lock()
	s.connection = index
	s.mu.Unlock()

	return s.View(), nil
}

// Save validates the submitted configuration for the active tab and patches the module.
// Every path produces an outcome and a notification.
func (s *Screen) Save(ctx context.Context, raw []byte) (notify.Outcome, View) {
	ctx, span := tracing.StartSpan(ctx, "Settings.Save")
	defer span.End()

	tab := s.tabs.Active()
	state := s.fetcher.State()

	s.mu.Lock()
	module := s.module
	connection := s.connection
	s.mu.Unlock()

	communityID := session.CommunityID(ctx, s.sessions, s.userID)
	if communityID == "" {
		return s.report(ctx, notify.Skipped(MessageNoCommunity)), s.View()
	}
	if module == nil {
		return s.report(ctx, notify.Validation(MessageNoModule)), s.View()
	}
	if connection >= len(state.Platforms) {
		return s.report(ctx, notify.Validation(MessageNoPlatform)), s.View()
	}
	platform := state.Platforms[connection]

	cfg, err := s.builder.Decode(tab.Platform, raw)
	if err != nil {
		return s.report(ctx, notify.Validation(err.Error())), s.View()
	}

	payload, err := s.builder.BuildPatchPayload(module, tab.Platform, platform.ID, cfg)
	if err != nil {
		return s.report(ctx, notify.Validation(err.Error())), s.View()
	}

	if !s.beginSave() {
		return s.report(ctx, notify.Validation(MessageSaving)), s.View()
	}
	_, err = s.backend.PatchModule(ctx, module.ID, *payload)
	s.endSave()

	if err != nil {
		metrics.ModulePatchesTotal.WithLabelValues(string(tab.Platform), "error").Inc()
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"module_id":   module.ID,
			"platform_id": platform.ID,
			"platform":    tab.Platform,
		}).Error("failed to patch hivemind module")
		return s.report(ctx, notify.Failure(MessageSaveFailed)), s.View()
	}
	metrics.ModulePatchesTotal.WithLabelValues(string(tab.Platform), "success").Inc()

	if err := s.publisher.Publish(ctx, &events.Event{
		Type:        events.TypeModulePatched,
		UserID:      s.userID,
		CommunityID: communityID,
		ModuleID:    module.ID,
		Platform:    string(tab.Platform),
		Data:        payload.Platforms[0].Metadata,
	}); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("failed to publish module.patched event")
	}

	outcome := s.report(ctx, notify.Success(MessageSaved))
	// refresh strictly after the patch completed
	return outcome, s.Load(ctx)
}

// View renders the current state without fetching
func (s *Screen) View() View {
	state := s.fetcher.State()
	active := s.tabs.Active()

	s.mu.Lock()
	module := s.module
	connection := s.connection
	saving := s.saving
	s.mu.Unlock()

	view := View{
		Tabs:       s.tabs.Registry().Tabs(),
		Active:     active,
		Platforms:  s.displayer.DisplayAll(state.Platforms),
		Connection: connection,
		Module:     module,
		Loading:    state.Loading,
		Saving:     saving,
	}

	if connection < len(view.Platforms) {
		selected := view.Platforms[connection]
		view.Selected = &selected
	}

	if handler, err := s.builder.Handler(active.Platform); err == nil {
		platformID := ""
		if view.Selected != nil {
			platformID = view.Selected.ID
		}
		view.Config = handler.Prefill(module.PlatformMetadataFor(platformID, active.Platform))
		view.CanSave = module != nil && view.Selected != nil && !saving && handler.Validate(view.Config) == nil
	}

	return view
}

func (s *Screen) load(ctx context.Context, ticket tabs.Ticket) View {
	communityID := session.CommunityID(ctx, s.sessions, s.userID)
	if communityID == "" {
		s.fetcher.Reset()
		s.mu.Lock()
		s.module = nil
		s.connection = 0
		s.mu.Unlock()
		return s.View()
	}

	results := s.fetcher.FetchPlatforms(ctx, communityID, ticket.Tab.Platform)
	module := s.fetcher.FetchModule(ctx, communityID, models.HivemindModuleName)

	s.mu.Lock()
	if s.tabs.Current(ticket) && !results.Stale {
		s.module = module
		s.connection = defaultConnection(ticket.Tab.Platform, results.Results)
	}
	s.mu.Unlock()

	return s.View()
}

// beginSave claims the screen for one patch; false when another save holds it
func (s *Screen) beginSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving {
		return false
	}
	s.saving = true
	return true
}

func (s *Screen) endSave() {
	s.mu.Lock()
	s.saving = false
	s.mu.Unlock()
}

func (s *Screen) report(ctx context.Context, outcome notify.Outcome) notify.Outcome {
	return s.notifier.Report(ctx, s.userID, outcome)
}

// defaultConnection picks the first active Discord server; other platforms start at the first entry
func defaultConnection(platform models.PlatformName, results []models.Platform) int {
	if platform != models.PlatformDiscord {
		return 0
	}
	for i, p := range results {
		if p.Active() && p.Name == models.PlatformDiscord {
			return i
		}
	}
	return 0
}
