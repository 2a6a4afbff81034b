package match

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"chinchon-service/pkg/logger"
	netutil "chinchon-service/pkg/utils/net"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func (s *Service) runMatcher(ctx context.Context, target int) {
	logger.Log.Info("matcher started", zap.Int("target", target))

	ticker := time.NewTicker(s.cfg.MatcherInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("matcher stopped", zap.Int("target", target))
			return
		case <-ticker.C:
			if err := s.tryCompose(ctx, target); err != nil {
				logger.Log.Warn("matcher compose error",
					zap.Int("target", target),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *Service) tryCompose(ctx context.Context, target int) error {
	if err := s.cleanupExpiredQueue(ctx, target); err != nil {
		logger.Log.Warn("queue cleanup error",
			zap.Int("target", target),
			zap.Error(err),
		)
	}

	queueKey := buildQueueKey(target)
	members, err := s.rdb.ZRange(ctx, queueKey, 0, int64(s.cfg.CandidateLimit-1)).Result()
	if err != nil {
		return err
	}
	if len(members) < 2 {
		return nil
	}

	candidates := make([]queueMember, 0, len(members))
	for _, member := range members {
		playerID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		qm, err := s.loadQueueMember(ctx, target, playerID)
		if err != nil {
			if err == errQueueMemberNotFound {
				// member data expired; the queue entry is useless
				s.rdb.ZRem(ctx, queueKey, member)
				continue
			}
			return err
		}
		candidates = append(candidates, qm)
	}

	for _, pair := range pairPlayers(candidates, s.cfg.SplitSubnets) {
		if err := s.composeGame(ctx, target, pair); err != nil {
			return err
		}
	}
	return nil
}

// pairPlayers pairs candidates in queue order, oldest first. A player listed twice is only
// paired once. With splitSubnets, players sharing a /24 network are never paired; they
// wait for someone else.
func pairPlayers(candidates []queueMember, splitSubnets bool) [][2]queueMember {
	seen := make(map[int64]bool, len(candidates))
	pairs := make([][2]queueMember, 0, len(candidates)/2)
	waiting := make([]queueMember, 0, len(candidates))
	for _, c := range candidates {
		if c.PlayerID == 0 || seen[c.PlayerID] {
			continue
		}
		seen[c.PlayerID] = true

		partner := -1
		for i, w := range waiting {
			if splitSubnets && netutil.SameSubnet24(w.ClientIP, c.ClientIP) {
				continue
			}
			partner = i
			break
		}
		if partner < 0 {
			waiting = append(waiting, c)
			continue
		}
		pairs = append(pairs, [2]queueMember{waiting[partner], c})
		waiting = append(waiting[:partner], waiting[partner+1:]...)
	}
	return pairs
}

func (s *Service) composeGame(ctx context.Context, target int, pair [2]queueMember) error {
	queueKey := buildQueueKey(target)
	removed := make([]queueMember, 0, len(pair))
	for _, player := range pair {
		memberID := strconv.FormatInt(player.PlayerID, 10)
		n, err := s.rdb.ZRem(ctx, queueKey, memberID).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			// someone else took or cancelled this player; put the partner back
			s.requeue(ctx, queueKey, removed)
			return nil
		}
		removed = append(removed, player)
	}
	for _, player := range pair {
		s.removeQueueMember(ctx, target, player.PlayerID)
		s.rdb.Set(ctx, buildQueueLockKey(player.PlayerID), target, s.cfg.MatchedLockTTL)
	}

	game, err := s.composer.CreateMatchedGame(ctx, pair[0].PlayerID, pair[1].PlayerID, target)
	if err != nil {
		for _, player := range pair {
			s.rdb.Del(ctx, buildQueueLockKey(player.PlayerID))
		}
		return err
	}

	data, _ := json.Marshal(matchNotifyPayload{TargetScore: target, GameID: game.ID})
	for _, player := range pair {
		s.rdb.Set(ctx, buildMatchNotifyKey(player.PlayerID), data, s.cfg.MatchedNotifyTTL)
	}

	logger.Log.Info("match composed",
		zap.Int("target", target),
		zap.String("gameID", game.ID),
		zap.Int64("player1", pair[0].PlayerID),
		zap.Int64("player2", pair[1].PlayerID),
	)
	return nil
}

func (s *Service) requeue(ctx context.Context, queueKey string, members []queueMember) {
	for _, m := range members {
		s.rdb.ZAdd(ctx, queueKey, redis.Z{
			Score:  float64(m.JoinedAt.UnixMilli()),
			Member: strconv.FormatInt(m.PlayerID, 10),
		})
	}
}
