package player

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"chinchon-service/internal/model"
	appErr "chinchon-service/pkg/errors"
	"chinchon-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultLeaderboardSize = 20
	maxLeaderboardSize     = 100
	maxNicknameLen         = 32
)

type Service struct {
	db *gorm.DB
}

type UpdateProfileRequest struct {
	Nickname *string
	Avatar   *string
}

type LeaderboardFilter struct {
	Page int
	Size int
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	PlayerID    int64  `json:"playerId"`
	Nickname    string `json:"nickname"`
	Avatar      string `json:"avatar"`
	GamesPlayed int    `json:"gamesPlayed"`
	GamesWon    int    `json:"gamesWon"`
	Chinchones  int    `json:"chinchones"`
}

type LeaderboardResult struct {
	Items []LeaderboardEntry `json:"items"`
	Total int64              `json:"total"`
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (f *LeaderboardFilter) sanitize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Size <= 0 {
		f.Size = defaultLeaderboardSize
	}
	if f.Size > maxLeaderboardSize {
		f.Size = maxLeaderboardSize
	}
}

func (s *Service) GetProfile(ctx context.Context, playerID int64) (*model.Player, error) {
	var player model.Player
	if err := s.db.WithContext(ctx).First(&player, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}

func (s *Service) UpdateProfile(ctx context.Context, playerID int64, req UpdateProfileRequest) (*model.Player, error) {
	updates := map[string]interface{}{}
	if req.Nickname != nil {
		nickname := strings.TrimSpace(*req.Nickname)
		if nickname == "" || utf8.RuneCountInString(nickname) > maxNicknameLen {
			return nil, appErr.ErrInvalidPayload
		}
		updates["nickname"] = nickname
	}
	if req.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*req.Avatar)
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&model.Player{}).Where("id = ?", playerID).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, appErr.ErrPlayerNotFound
		}
		logger.Log.Info("player profile updated", zap.Int64("playerID", playerID), zap.Int("fields", len(updates)))
	}

	return s.GetProfile(ctx, playerID)
}

// Leaderboard ranks players who finished at least one game by wins, then chinchones.
func (s *Service) Leaderboard(ctx context.Context, filter LeaderboardFilter) (*LeaderboardResult, error) {
	filter.sanitize()

	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&model.Player{}).Where("games_played > 0")
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, err
	}

	result := &LeaderboardResult{
		Items: make([]LeaderboardEntry, 0),
		Total: total,
	}
	if total == 0 {
		return result, nil
	}

	var players []model.Player
	offset := (filter.Page - 1) * filter.Size
	if err := base().
		Order("games_won DESC").
		Order("chinchones DESC").
		Order("id ASC").
		Limit(filter.Size).
		Offset(offset).
		Find(&players).Error; err != nil {
		return nil, err
	}

	for i, p := range players {
		result.Items = append(result.Items, LeaderboardEntry{
			Rank:        offset + i + 1,
			PlayerID:    p.ID,
			Nickname:    p.Nickname,
			Avatar:      p.Avatar,
			GamesPlayed: p.GamesPlayed,
			GamesWon:    p.GamesWon,
			Chinchones:  p.Chinchones,
		})
	}
	return result, nil
}
