// Package session persists each user's active community, the anchor every
// settings screen reads before talking to the backend.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ErrNoCommunity means the user has not picked a community yet
var ErrNoCommunity = errors.New("no community selected")

// Store keeps the "community" record per user
type Store interface {
	GetCommunity(ctx context.Context, userID string) (*models.Community, error)
	SetCommunity(ctx context.Context, userID string, community *models.Community) error
	DeleteCommunity(ctx context.Context, userID string) error
}

// CommunityKey is the storage key of a user's community record
func CommunityKey(userID string) string {
	return fmt.Sprintf("clover:session:%s:community", userID)
}

// CommunityID returns the stored community id, "" when none is stored or the store fails.
// Absence short-circuits every fetch so callers treat both the same.
func CommunityID(ctx context.Context, store Store, userID string) string {
	community, err := store.GetCommunity(ctx, userID)
	if err != nil || community == nil {
		return ""
	}
	return community.ID
}
