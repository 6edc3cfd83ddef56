package community

import (
	"context"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/platforms"
	"github.com/Ramsey-B/clover/pkg/session"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

type CommunityReader interface {
	GetCommunity(ctx context.Context, communityID string) (*models.Community, error)
}

// ActiveView is the active-community header: the record plus the avatar to show
type ActiveView struct {
	Community *models.Community `json:"community"`
	AvatarURL string            `json:"avatarUrl,omitempty"`
	// Editing is set while a name edit waits for its quiet period
	Editing bool `json:"editing"`
}

// ActiveCommunity keeps the session's community record in step with the backend
type ActiveCommunity struct {
	backend   CommunityReader
	sessions  session.Store
	displayer *platforms.Displayer
	logger    ectologger.Logger
}

func NewActiveCommunity(backend CommunityReader, sessions session.Store, displayer *platforms.Displayer, logger ectologger.Logger) *ActiveCommunity {
	return &ActiveCommunity{
		backend:   backend,
		sessions:  sessions,
		displayer: displayer,
		logger:    logger,
	}
}

// Refresh re-reads the stored community from the backend and writes it back.
// A failed read removes the stored record.
func (a *ActiveCommunity) Refresh(ctx context.Context, userID string) (ActiveView, error) {
	ctx, span := tracing.StartSpan(ctx, "ActiveCommunity.Refresh")
	defer span.End()

	communityID := session.CommunityID(ctx, a.sessions, userID)
	if communityID == "" {
		return ActiveView{}, nil
	}

	full, err := a.backend.GetCommunity(ctx, communityID)
	if err != nil {
		a.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id":      userID,
			"community_id": communityID,
		}).Error("failed to fetch community, clearing session")
		if delErr := a.sessions.DeleteCommunity(ctx, userID); delErr != nil {
			a.logger.WithContext(ctx).WithError(delErr).Warn("failed to clear session community")
		}
		return ActiveView{}, err
	}

	if err := a.sessions.SetCommunity(ctx, userID, full); err != nil {
		return ActiveView{}, err
	}
	return a.view(full), nil
}

// Select makes communityID the user's active community
func (a *ActiveCommunity) Select(ctx context.Context, userID string, communityID string) (ActiveView, error) {
	ctx, span := tracing.StartSpan(ctx, "ActiveCommunity.Select")
	defer span.End()

	full, err := a.backend.GetCommunity(ctx, communityID)
	if err != nil {
		return ActiveView{}, err
	}
	if err := a.sessions.SetCommunity(ctx, userID, full); err != nil {
		return ActiveView{}, err
	}

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":      userID,
		"community_id": full.ID,
	}).Info("active community selected")
	return a.view(full), nil
}

// view prefers the community's own avatar, then the icon of its first connected Discord server
func (a *ActiveCommunity) view(community *models.Community) ActiveView {
	out := ActiveView{Community: community, AvatarURL: community.AvatarURL}
	if out.AvatarURL != "" {
		return out
	}

	discord := ectolinq.Filter(community.Platforms, func(p models.Platform) bool {
		return p.Active() && p.Name == models.PlatformDiscord
	})
	if len(discord) > 0 {
		out.AvatarURL = a.displayer.Display(discord[0]).AvatarURL
	}
	return out
}
