package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/redis"
)

// KeyValue is the subset of the Redis client the store needs
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type RedisStore struct {
	kv     KeyValue
	ttl    time.Duration
	logger ectologger.Logger
}

func NewRedisStore(kv KeyValue, ttl time.Duration, logger ectologger.Logger) *RedisStore {
	return &RedisStore{kv: kv, ttl: ttl, logger: logger}
}

func (s *RedisStore) GetCommunity(ctx context.Context, userID string) (*models.Community, error) {
	data, err := s.kv.Get(ctx, CommunityKey(userID))
	if redis.IsNil(err) {
		return nil, ErrNoCommunity
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read community: %w", err)
	}

	var community models.Community
	if err := json.Unmarshal(data, &community); err != nil {
		// a corrupt record is as good as none
		s.logger.WithContext(ctx).WithError(err).Warn("discarding unreadable community record")
		_ = s.kv.Del(ctx, CommunityKey(userID))
		return nil, ErrNoCommunity
	}
	return &community, nil
}

func (s *RedisStore) SetCommunity(ctx context.Context, userID string, community *models.Community) error {
	data, err := json.Marshal(community)
	if err != nil {
		return fmt.Errorf("failed to marshal community: %w", err)
	}
	if err := s.kv.Set(ctx, CommunityKey(userID), data, s.ttl); err != nil {
		return fmt.Errorf("failed to write community: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteCommunity(ctx context.Context, userID string) error {
	if err := s.kv.Del(ctx, CommunityKey(userID)); err != nil {
		return fmt.Errorf("failed to remove community: %w", err)
	}
	return nil
}
