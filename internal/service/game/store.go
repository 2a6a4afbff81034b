package game

//go:generate mockgen -source=store.go -destination=mock_store.go -package=game

import (
	"context"
	"errors"
	"fmt"
	"time"

	appErr "chinchon-service/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// Store keeps short-lived game data outside the database: runtime snapshots used to
// resume a game after a restart, and invite codes for private games.
type Store interface {
	SaveSnapshot(ctx context.Context, gameID string, data []byte, ttl time.Duration) error
	// LoadSnapshot returns appErr.ErrSnapshotNotFound when nothing is stored.
	LoadSnapshot(ctx context.Context, gameID string) ([]byte, error)
	DeleteSnapshot(ctx context.Context, gameID string) error
	SaveInvite(ctx context.Context, code, gameID string, ttl time.Duration) error
	// ResolveInvite returns appErr.ErrInviteNotFound for unknown or expired codes.
	ResolveInvite(ctx context.Context, code string) (string, error)
	DeleteInvite(ctx context.Context, code string) error
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) SaveSnapshot(ctx context.Context, gameID string, data []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, buildSnapshotKey(gameID), data, ttl).Err()
}

func (s *RedisStore) LoadSnapshot(ctx context.Context, gameID string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, buildSnapshotKey(gameID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErr.ErrSnapshotNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) DeleteSnapshot(ctx context.Context, gameID string) error {
	return s.rdb.Del(ctx, buildSnapshotKey(gameID)).Err()
}

// SaveInvite fails with appErr.ErrQueueProcessing when the code is already taken.
func (s *RedisStore) SaveInvite(ctx context.Context, code, gameID string, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, buildInviteKey(code), gameID, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("invite code %s in use: %w", code, appErr.ErrQueueProcessing)
	}
	return nil
}

func (s *RedisStore) ResolveInvite(ctx context.Context, code string) (string, error) {
	gameID, err := s.rdb.Get(ctx, buildInviteKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", appErr.ErrInviteNotFound
		}
		return "", err
	}
	return gameID, nil
}

func (s *RedisStore) DeleteInvite(ctx context.Context, code string) error {
	return s.rdb.Del(ctx, buildInviteKey(code)).Err()
}

func buildSnapshotKey(gameID string) string {
	return fmt.Sprintf("chinchon:snapshot:%s", gameID)
}

func buildInviteKey(code string) string {
	return fmt.Sprintf("chinchon:invite:%s", code)
}
