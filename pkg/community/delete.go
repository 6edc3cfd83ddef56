package community

import (
	"context"
	"errors"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/notify"
	"github.com/Ramsey-B/clover/pkg/session"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	MessageDeleted        = "Community deleted successfully"
	MessageDeleteFailed   = "Failed to delete community"
	MessageNameMismatch   = "Type the community name to confirm"
	MessageNotConfirmable = "Acknowledge the warning before deleting"
)

var ErrInvalidStep = errors.New("delete dialog is not at this step")

type Step int

const (
	StepClosed Step = iota
	// StepAcknowledge shows the warning and waits for "I Understand"
	StepAcknowledge
	// StepConfirm asks for the community name
	StepConfirm
)

func (s Step) String() string {
	switch s {
	case StepAcknowledge:
		return "acknowledge"
	case StepConfirm:
		return "confirm"
	default:
		return "closed"
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type DialogState struct {
	Step          Step   `json:"step"`
	CommunityName string `json:"communityName,omitempty"`
	Input         string `json:"input"`
	CanDelete     bool   `json:"canDelete"`
}

type DeleteBackend interface {
	DeleteCommunity(ctx context.Context, communityID string) error
}

type dialog struct {
	step          Step
	communityID   string
	communityName string
	input         string
}

func (d *dialog) state() DialogState {
	if d == nil {
		return DialogState{Step: StepClosed}
	}
	return DialogState{
		Step:          d.step,
		CommunityName: d.communityName,
		Input:         d.input,
		CanDelete:     d.step == StepConfirm && CanDelete(d.communityName, d.input),
	}
}

// CanDelete is true only for an exact, case-sensitive match with no trimming
func CanDelete(communityName string, input string) bool {
	return communityName != "" && input == communityName
}

// DeleteDialogs holds the two-step delete confirmation of every user
type DeleteDialogs struct {
	backend   DeleteBackend
	sessions  session.Store
	notifier  *notify.Notifier
	publisher events.Publisher
	logger    ectologger.Logger

	mu      sync.Mutex
	dialogs map[string]*dialog
}

func NewDeleteDialogs(backend DeleteBackend, sessions session.Store, notifier *notify.Notifier, publisher events.Publisher, logger ectologger.Logger) *DeleteDialogs {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &DeleteDialogs{
		backend:   backend,
		sessions:  sessions,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		dialogs:   make(map[string]*dialog),
	}
}

// Open starts the dialog at the acknowledgement step for the user's active community
func (d *DeleteDialogs) Open(ctx context.Context, userID string) (DialogState, error) {
	stored, err := d.sessions.GetCommunity(ctx, userID)
	if err != nil || stored == nil {
		return DialogState{Step: StepClosed}, session.ErrNoCommunity
	}

	dlg := &dialog{
		step:          StepAcknowledge,
		communityID:   stored.ID,
		communityName: stored.Name,
	}

	d.mu.Lock()
	d.dialogs[userID] = dlg
	d.mu.Unlock()

	return dlg.state(), nil
}

// Acknowledge is the only way from the warning to the name input
func (d *DeleteDialogs) Acknowledge(userID string) (DialogState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dlg := d.dialogs[userID]
	if dlg == nil || dlg.step != StepAcknowledge {
		return dlg.state(), ErrInvalidStep
	}
	dlg.step = StepConfirm
	return dlg.state(), nil
}

func (d *DeleteDialogs) SetInput(userID string, input string) (DialogState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dlg := d.dialogs[userID]
	if dlg == nil || dlg.step != StepConfirm {
		return dlg.state(), ErrInvalidStep
	}
	dlg.input = input
	return dlg.state(), nil
}

// Cancel closes the dialog; reopening starts again at the acknowledgement step
func (d *DeleteDialogs) Cancel(userID string) DialogState {
	d.mu.Lock()
	delete(d.dialogs, userID)
	d.mu.Unlock()

	return DialogState{Step: StepClosed}
}

func (d *DeleteDialogs) State(userID string) DialogState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dialogs[userID].state()
}

// Confirm deletes the community when the typed name matches. Anything else
// is refused without a backend call and leaves the dialog as it was.
func (d *DeleteDialogs) Confirm(ctx context.Context, userID string) (notify.Outcome, DialogState) {
	ctx, span := tracing.StartSpan(ctx, "DeleteDialogs.Confirm")
	defer span.End()

	d.mu.Lock()
	dlg := d.dialogs[userID]
	if dlg == nil || dlg.step != StepConfirm {
		state := dlg.state()
		d.mu.Unlock()
		return d.notifier.Report(ctx, userID, notify.Validation(MessageNotConfirmable)), state
	}
	if !CanDelete(dlg.communityName, dlg.input) {
		state := dlg.state()
		d.mu.Unlock()
		return d.notifier.Report(ctx, userID, notify.Validation(MessageNameMismatch)), state
	}
	communityID := dlg.communityID
	d.mu.Unlock()

	logger := d.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":      userID,
		"community_id": communityID,
	})

	if err := d.backend.DeleteCommunity(ctx, communityID); err != nil {
		logger.WithError(err).Error("failed to delete community")
		return d.notifier.Report(ctx, userID, notify.Failure(MessageDeleteFailed)), d.State(userID)
	}

	if err := d.sessions.DeleteCommunity(ctx, userID); err != nil {
		logger.WithError(err).Warn("failed to remove deleted community from session")
	}

	if err := d.publisher.Publish(ctx, &events.Event{
		Type:        events.TypeCommunityDeleted,
		UserID:      userID,
		CommunityID: communityID,
	}); err != nil {
		logger.WithError(err).Warn("failed to publish community.deleted event")
	}

	logger.Info("community deleted")
	return d.notifier.Report(ctx, userID, notify.Success(MessageDeleted)), d.Cancel(userID)
}
