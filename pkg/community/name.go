package community

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/notify"
	"github.com/Ramsey-B/clover/pkg/session"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	MessageRenamed      = "Community name updated successfully!"
	MessageRenameFailed = "Failed to update community name"
)

type RenameBackend interface {
	GetCommunity(ctx context.Context, communityID string) (*models.Community, error)
	PatchCommunity(ctx context.Context, communityID string, req models.PatchCommunityRequest) (*models.Community, error)
}

// NameEditor debounces community name edits per user. Only the last edit in
// the quiet period reaches the backend.
type NameEditor struct {
	backend   RenameBackend
	sessions  session.Store
	notifier  *notify.Notifier
	publisher events.Publisher
	logger    ectologger.Logger
	delay     time.Duration

	mu      sync.Mutex
	pending map[string]*Debouncer
}

func NewNameEditor(backend RenameBackend, sessions session.Store, notifier *notify.Notifier, publisher events.Publisher, delay time.Duration, logger ectologger.Logger) *NameEditor {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &NameEditor{
		backend:   backend,
		sessions:  sessions,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		delay:     delay,
		pending:   make(map[string]*Debouncer),
	}
}

// Edit schedules a rename of the user's active community. The rename runs
// detached from the request once the quiet period passes.
func (e *NameEditor) Edit(ctx context.Context, userID string, name string) error {
	stored, err := e.sessions.GetCommunity(ctx, userID)
	if err != nil || stored == nil {
		return session.ErrNoCommunity
	}

	detached := appctx.Detach(ctx)
	communityID := stored.ID

	if e.debouncer(userID).Debounce(func() {
		e.apply(detached, userID, communityID, name)
	}) {
		metrics.CommunityNameEditsCoalesced.Inc()
	}
	return nil
}

// Pending reports whether the user has an edit waiting to be sent
func (e *NameEditor) Pending(userID string) bool {
	e.mu.Lock()
	d, ok := e.pending[userID]
	e.mu.Unlock()
	return ok && d.Pending()
}

// Flush sends every waiting edit immediately, used on shutdown
func (e *NameEditor) Flush() {
	e.mu.Lock()
	debouncers := make([]*Debouncer, 0, len(e.pending))
	for _, d := range e.pending {
		debouncers = append(debouncers, d)
	}
	e.mu.Unlock()

	for _, d := range debouncers {
		d.Flush()
	}
}

// Cancel drops the user's waiting edit, e.g. when the community is deleted
func (e *NameEditor) Cancel(userID string) {
	e.mu.Lock()
	d, ok := e.pending[userID]
	e.mu.Unlock()
	if ok {
		d.Cancel()
	}
}

func (e *NameEditor) debouncer(userID string) *Debouncer {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.pending[userID]
	if !ok {
		d = NewDebouncer(e.delay)
		e.pending[userID] = d
	}
	return d
}

func (e *NameEditor) apply(ctx context.Context, userID string, communityID string, name string) {
	ctx, span := tracing.StartSpan(ctx, "NameEditor.apply")
	defer span.End()

	// the dashboard strips exactly one trailing space
	name = strings.TrimSuffix(name, " ")
	logger := e.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":      userID,
		"community_id": communityID,
	})

	updated, err := e.backend.PatchCommunity(ctx, communityID, models.PatchCommunityRequest{Name: name})
	if err != nil {
		metrics.CommunityRenamesTotal.WithLabelValues("error").Inc()
		logger.WithError(err).Error("failed to update community name")
		e.notifier.Report(ctx, userID, notify.Failure(MessageRenameFailed))
		return
	}
	metrics.CommunityRenamesTotal.WithLabelValues("success").Inc()

	if full, err := e.backend.GetCommunity(ctx, communityID); err != nil {
		logger.WithError(err).Warn("failed to refresh community after rename")
	} else {
		updated = full
	}
	if updated != nil {
		if err := e.sessions.SetCommunity(ctx, userID, updated); err != nil {
			logger.WithError(err).Warn("failed to store renamed community")
		}
	}

	if err := e.publisher.Publish(ctx, &events.Event{
		Type:        events.TypeCommunityRenamed,
		UserID:      userID,
		CommunityID: communityID,
		Data:        map[string]any{"name": name},
	}); err != nil {
		logger.WithError(err).Warn("failed to publish community.renamed event")
	}

	e.notifier.Report(ctx, userID, notify.Success(MessageRenamed))
}
