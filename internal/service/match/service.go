package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"chinchon-service/internal/chinchon"
	"chinchon-service/internal/config"
	"chinchon-service/internal/model"
	appErr "chinchon-service/pkg/errors"
	"chinchon-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errQueueMemberNotFound = errors.New("queue member not found")

// Pools are the target scores players can queue for.
var Pools = []int{chinchon.TargetShort, chinchon.TargetLong}

// GameComposer opens the game for a matched pair.
type GameComposer interface {
	CreateMatchedGame(ctx context.Context, player1, player2 int64, target int) (*model.Game, error)
}

type Config struct {
	QueueLockTTL     time.Duration
	QueueMemberTTL   time.Duration
	QueueTimeout     time.Duration
	MatchedLockTTL   time.Duration
	MatchedNotifyTTL time.Duration
	MatcherInterval  time.Duration
	CandidateLimit   int
	// SplitSubnets keeps players from the same /24 network apart.
	SplitSubnets bool
}

func defaultConfig() Config {
	return Config{
		QueueLockTTL:     10 * time.Second,
		QueueMemberTTL:   3 * time.Minute,
		QueueTimeout:     3 * time.Minute,
		MatchedLockTTL:   1 * time.Minute,
		MatchedNotifyTTL: 5 * time.Minute,
		MatcherInterval:  500 * time.Millisecond,
		CandidateLimit:   16,
	}
}

// ConfigFrom overlays the configured match section on the defaults.
func ConfigFrom(mc config.MatchConfig) Config {
	cfg := defaultConfig()
	cfg.SplitSubnets = mc.SplitSubnets
	if mc.IntervalMillis > 0 {
		cfg.MatcherInterval = time.Duration(mc.IntervalMillis) * time.Millisecond
	}
	if mc.QueueTimeout > 0 {
		cfg.QueueTimeout = time.Duration(mc.QueueTimeout) * time.Second
		if cfg.QueueMemberTTL < cfg.QueueTimeout {
			cfg.QueueMemberTTL = cfg.QueueTimeout
		}
	}
	return cfg
}

type Service struct {
	db       *gorm.DB
	rdb      *redis.Client
	composer GameComposer
	cfg      Config

	startOnce sync.Once
}

func NewService(db *gorm.DB, rdb *redis.Client, composer GameComposer, cfg Config) *Service {
	return &Service{
		db:       db,
		rdb:      rdb,
		composer: composer,
		cfg:      cfg,
	}
}

// Start launches one matcher per pool; they stop with ctx.
func (s *Service) Start(ctx context.Context) error {
	s.startOnce.Do(func() {
		for _, target := range Pools {
			go s.runMatcher(ctx, target)
		}
	})
	return nil
}

func (s *Service) JoinQueue(ctx context.Context, req JoinQueueRequest) (string, error) {
	if _, err := chinchon.NewGameScore(req.TargetScore); err != nil {
		return "", err
	}
	if err := s.checkPlayer(ctx, req.PlayerID); err != nil {
		return "", err
	}

	queueKey := buildQueueKey(req.TargetScore)
	memberID := strconv.FormatInt(req.PlayerID, 10)

	if _, err := s.rdb.ZScore(ctx, queueKey, memberID).Result(); err == nil {
		return "", appErr.ErrAlreadyInQueue
	} else if err != redis.Nil {
		return "", err
	}

	lockKey := buildQueueLockKey(req.PlayerID)
	gotLock, err := s.rdb.SetNX(ctx, lockKey, req.TargetScore, s.cfg.QueueLockTTL).Result()
	if err != nil {
		return "", err
	}
	if !gotLock {
		return "", appErr.ErrQueueProcessing
	}
	defer s.rdb.Del(ctx, lockKey)

	// a stale match notice would make the status look matched
	s.rdb.Del(ctx, buildMatchNotifyKey(req.PlayerID))

	member := queueMember{
		PlayerID:    req.PlayerID,
		TargetScore: req.TargetScore,
		JoinedAt:    time.Now(),
		ClientIP:    req.ClientIP,
	}
	if err := s.saveQueueMember(ctx, member); err != nil {
		return "", err
	}

	score := float64(member.JoinedAt.UnixMilli())
	if err := s.rdb.ZAdd(ctx, queueKey, redis.Z{
		Score:  score,
		Member: memberID,
	}).Err(); err != nil {
		s.removeQueueMember(ctx, member.TargetScore, member.PlayerID)
		return "", err
	}

	logger.Log.Info("player joined queue",
		zap.Int64("playerID", req.PlayerID),
		zap.Int("target", req.TargetScore),
		zap.Float64("score", score),
	)

	return memberID, nil
}

func (s *Service) CancelQueue(ctx context.Context, req CancelQueueRequest) error {
	queueKey := buildQueueKey(req.TargetScore)
	memberID := strconv.FormatInt(req.PlayerID, 10)
	_, err := s.rdb.ZRem(ctx, queueKey, memberID).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	s.removeQueueMember(ctx, req.TargetScore, req.PlayerID)
	s.rdb.Del(ctx, buildMatchNotifyKey(req.PlayerID))

	reason := req.Reason
	if reason == "" {
		reason = "player"
	}
	logger.Log.Info("queue cancelled",
		zap.Int64("playerID", req.PlayerID),
		zap.Int("target", req.TargetScore),
		zap.String("reason", reason),
	)
	return nil
}

func (s *Service) GetStatus(ctx context.Context, playerID int64, target int) (*StatusResult, error) {
	notifyKey := buildMatchNotifyKey(playerID)
	payloadStr, err := s.rdb.Get(ctx, notifyKey).Result()
	if err == nil {
		var payload matchNotifyPayload
		if jsonErr := json.Unmarshal([]byte(payloadStr), &payload); jsonErr == nil {
			return &StatusResult{
				Status:      QueueStatusMatched,
				TargetScore: payload.TargetScore,
				GameID:      payload.GameID,
			}, nil
		}
	} else if err != redis.Nil {
		return nil, err
	}

	queueKey := buildQueueKey(target)
	memberID := strconv.FormatInt(playerID, 10)
	if _, err := s.rdb.ZScore(ctx, queueKey, memberID).Result(); err == nil {
		var joinedAt *time.Time
		if member, err := s.loadQueueMember(ctx, target, playerID); err == nil {
			joined := member.JoinedAt
			joinedAt = &joined
		}
		return &StatusResult{
			Status:      QueueStatusQueued,
			TargetScore: target,
			JoinedAt:    joinedAt,
		}, nil
	} else if err != redis.Nil {
		return nil, err
	}

	return &StatusResult{
		Status:      QueueStatusIdle,
		TargetScore: target,
	}, nil
}

func (s *Service) checkPlayer(ctx context.Context, playerID int64) error {
	if playerID == 0 {
		return appErr.ErrUnauthorized
	}
	var player model.Player
	if err := s.db.WithContext(ctx).Select("id", "status").First(&player, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.ErrPlayerNotFound
		}
		return err
	}
	if player.Status != "active" {
		return appErr.ErrPlayerDisabled
	}
	return nil
}

func (s *Service) saveQueueMember(ctx context.Context, member queueMember) error {
	data, err := json.Marshal(member)
	if err != nil {
		return err
	}
	key := buildQueueMemberKey(member.TargetScore, member.PlayerID)
	return s.rdb.Set(ctx, key, data, s.cfg.QueueMemberTTL).Err()
}

func (s *Service) loadQueueMember(ctx context.Context, target int, playerID int64) (queueMember, error) {
	var member queueMember
	key := buildQueueMemberKey(target, playerID)
	data, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return member, errQueueMemberNotFound
		}
		return member, err
	}
	if err := json.Unmarshal([]byte(data), &member); err != nil {
		return member, err
	}
	return member, nil
}

func (s *Service) removeQueueMember(ctx context.Context, target int, playerID int64) {
	key := buildQueueMemberKey(target, playerID)
	s.rdb.Del(ctx, key)
}

func (s *Service) cleanupExpiredQueue(ctx context.Context, target int) error {
	if s.cfg.QueueTimeout <= 0 {
		return nil
	}
	queueKey := buildQueueKey(target)
	deadline := time.Now().Add(-s.cfg.QueueTimeout).UnixMilli()
	maxScore := strconv.FormatFloat(float64(deadline), 'f', 0, 64)

	members, err := s.rdb.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: maxScore,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}

	for _, member := range members {
		playerID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		if err := s.CancelQueue(ctx, CancelQueueRequest{
			PlayerID:    playerID,
			TargetScore: target,
			Reason:      "timeout",
		}); err != nil {
			logger.Log.Warn("queue timeout cancel failed",
				zap.Int64("playerID", playerID),
				zap.Int("target", target),
				zap.Error(err),
			)
		}
	}

	return nil
}

func buildQueueKey(target int) string {
	return fmt.Sprintf("chinchon:queue:%d", target)
}

func buildQueueMemberKey(target int, playerID int64) string {
	return fmt.Sprintf("chinchon:queue:member:%d:%d", target, playerID)
}

func buildQueueLockKey(playerID int64) string {
	return fmt.Sprintf("chinchon:queue:lock:%d", playerID)
}

func buildMatchNotifyKey(playerID int64) string {
	return fmt.Sprintf("chinchon:match:pending:%d", playerID)
}
