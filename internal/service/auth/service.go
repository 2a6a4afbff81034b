package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"chinchon-service/internal/model"
	pkgAuth "chinchon-service/pkg/auth"
	appErr "chinchon-service/pkg/errors"
	"chinchon-service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

const minPasswordLen = 6

type Service struct {
	db *gorm.DB
}

type LoginResult struct {
	Token    string       `json:"token"`
	ExpireAt time.Time    `json:"expireAt"`
	Player   model.Player `json:"player"`
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Register(ctx context.Context, username, password, nickname string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, appErr.ErrInvalidUsername
	}
	if len(password) < minPasswordLen {
		return nil, appErr.ErrWeakPassword
	}

	var exists int64
	if err := s.db.WithContext(ctx).
		Model(&model.Player{}).
		Where("username = ?", username).
		Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, appErr.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = username
	}
	player := model.Player{
		Username:     username,
		PasswordHash: string(hash),
		Nickname:     nickname,
		Status:       "active",
	}
	if err := s.db.WithContext(ctx).Create(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, appErr.ErrUsernameTaken
		}
		return nil, err
	}
	logger.Log.Info("player registered", zap.Int64("playerID", player.ID), zap.String("username", username))

	return s.issue(player)
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, appErr.ErrInvalidCredentials
	}

	var player model.Player
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrInvalidCredentials
		}
		return nil, err
	}
	if !strings.EqualFold(player.Status, "active") {
		return nil, appErr.ErrPlayerDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(player.PasswordHash), []byte(password)); err != nil {
		return nil, appErr.ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).
		Model(&player).
		Update("last_login_at", now).Error; err != nil {
		return nil, err
	}
	player.LastLoginAt = &now

	return s.issue(player)
}

func (s *Service) issue(player model.Player) (*LoginResult, error) {
	token, err := pkgAuth.GenerateToken(player.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:    token,
		ExpireAt: time.Now().Add(pkgAuth.TokenTTL()),
		Player:   player,
	}, nil
}
