package community

import (
	"context"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/backend"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/notify"
	"github.com/Ramsey-B/clover/pkg/session"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	MessageModuleReady       = "Hivemind module is ready"
	MessageModuleCreated     = "Hivemind module created"
	MessageModuleFailed      = "Failed to set up Hivemind module"
	MessageNoDiscord         = "Connect a Discord server before managing Hivemind"
	MessageNoActiveCommunity = "Select a community first"
)

type ModuleBackend interface {
	ListPlatforms(ctx context.Context, query backend.Query) (*models.PlatformList, error)
	ListModules(ctx context.Context, query backend.Query) (*models.ModuleList, error)
	CreateModule(ctx context.Context, req models.CreateModuleRequest) (*models.Module, error)
}

// ModuleManager backs the "Manage" action of the community platforms screen
type ModuleManager struct {
	backend   ModuleBackend
	sessions  session.Store
	notifier  *notify.Notifier
	publisher events.Publisher
	logger    ectologger.Logger
}

func NewModuleManager(backend ModuleBackend, sessions session.Store, notifier *notify.Notifier, publisher events.Publisher, logger ectologger.Logger) *ModuleManager {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ModuleManager{
		backend:   backend,
		sessions:  sessions,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
}

// ManageHivemind returns the community's hivemind module, creating it when
// absent. It is refused while no Discord server is connected.
func (m *ModuleManager) ManageHivemind(ctx context.Context, userID string) (*models.Module, notify.Outcome) {
	ctx, span := tracing.StartSpan(ctx, "ModuleManager.ManageHivemind")
	defer span.End()

	communityID := session.CommunityID(ctx, m.sessions, userID)
	if communityID == "" {
		return nil, m.notifier.Report(ctx, userID, notify.Skipped(MessageNoActiveCommunity))
	}

	logger := m.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":      userID,
		"community_id": communityID,
	})

	platforms, err := m.backend.ListPlatforms(ctx, backend.Query{Name: string(models.PlatformDiscord), Community: communityID})
	if err != nil {
		logger.WithError(err).Error("failed to fetch discord platforms")
		return nil, m.notifier.Report(ctx, userID, notify.Failure(MessageModuleFailed))
	}
	connected := ectolinq.Filter(platforms.Results, func(p models.Platform) bool {
		return p.Active() && p.Name == models.PlatformDiscord
	})
	if len(connected) == 0 {
		return nil, m.notifier.Report(ctx, userID, notify.Validation(MessageNoDiscord))
	}

	modules, err := m.backend.ListModules(ctx, backend.Query{Name: models.HivemindModuleName, Community: communityID})
	if err != nil {
		logger.WithError(err).Error("failed to fetch hivemind module")
		return nil, m.notifier.Report(ctx, userID, notify.Failure(MessageModuleFailed))
	}

	existing := ectolinq.Filter(modules.Results, func(mod models.Module) bool {
		return mod.Community == communityID
	})
	if len(existing) > 0 {
		module := existing[0]
		return &module, m.notifier.Report(ctx, userID, notify.Success(MessageModuleReady))
	}

	module, err := m.backend.CreateModule(ctx, models.CreateModuleRequest{
		Name:      models.HivemindModuleName,
		Community: communityID,
	})
	if err != nil {
		logger.WithError(err).Error("failed to create hivemind module")
		return nil, m.notifier.Report(ctx, userID, notify.Failure(MessageModuleFailed))
	}

	if err := m.publisher.Publish(ctx, &events.Event{
		Type:        events.TypeModuleCreated,
		UserID:      userID,
		CommunityID: communityID,
		ModuleID:    module.ID,
	}); err != nil {
		logger.WithError(err).Warn("failed to publish module.created event")
	}

	logger.WithField("module_id", module.ID).Info("hivemind module created")
	return module, m.notifier.Report(ctx, userID, notify.Success(MessageModuleCreated))
}
