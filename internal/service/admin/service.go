package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"chinchon-service/internal/config"
	"chinchon-service/internal/model"
	pkgAuth "chinchon-service/pkg/auth"
	appErr "chinchon-service/pkg/errors"
	"chinchon-service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service struct {
	db *gorm.DB
}

type LoginResult struct {
	Token    string    `json:"token"`
	ExpireAt time.Time `json:"expireAt"`
	Admin    AdminInfo `json:"admin"`
}

type AdminInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type GameFilter struct {
	Status   string
	PlayerID int64
	Page     int
	Size     int
}

type GameListResult struct {
	Items []model.Game `json:"items"`
	Total int64        `json:"total"`
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, appErr.ErrInvalidAdminPassword
	}

	var admin model.Admin
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrAdminNotFound
		}
		return nil, err
	}
	if !strings.EqualFold(admin.Status, "active") {
		return nil, appErr.ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, appErr.ErrInvalidAdminPassword
	}

	token, err := pkgAuth.GenerateAdminToken(admin.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).
		Model(&admin).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"updated_at":    now,
		}).Error; err != nil {
		return nil, err
	}
	admin.LastLoginAt = &now

	return &LoginResult{
		Token:    token,
		ExpireAt: now.Add(pkgAuth.TokenTTL()),
		Admin:    sanitizeAdmin(admin),
	}, nil
}

// EnsureDefaultAdmin creates the configured admin when it does not exist yet.
func (s *Service) EnsureDefaultAdmin(ctx context.Context) error {
	cfg := config.GlobalConfig.Admin
	if cfg.DefaultUsername == "" || cfg.DefaultPassword == "" {
		logger.Log.Warn("default admin credentials not configured; skipping bootstrap")
		return nil
	}

	var exists int64
	if err := s.db.WithContext(ctx).
		Model(&model.Admin{}).
		Where("username = ?", cfg.DefaultUsername).
		Count(&exists).Error; err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := model.Admin{
		Username:     cfg.DefaultUsername,
		PasswordHash: string(hash),
		DisplayName:  cfg.DefaultUsername,
		Status:       "active",
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}
	logger.Log.Info("default admin account created",
		zap.String("username", cfg.DefaultUsername))
	return nil
}

// SetPlayerStatus enables or disables a player account. Disabled players can neither log
// in nor queue; games already running are left alone.
func (s *Service) SetPlayerStatus(ctx context.Context, adminID, playerID int64, status string) (*model.Player, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "active" && status != "disabled" {
		return nil, appErr.ErrInvalidStatus
	}

	var player model.Player
	if err := s.db.WithContext(ctx).First(&player, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPlayerNotFound
		}
		return nil, err
	}
	if player.Status == status {
		return &player, nil
	}

	if err := s.db.WithContext(ctx).Model(&player).Update("status", status).Error; err != nil {
		return nil, err
	}
	player.Status = status
	logger.Log.Info("player status changed",
		zap.Int64("adminID", adminID),
		zap.Int64("playerID", playerID),
		zap.String("status", status),
	)
	return &player, nil
}

func (s *Service) ListGames(ctx context.Context, filter GameFilter) (*GameListResult, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.Size
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	query := s.db.WithContext(ctx).Model(&model.Game{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PlayerID > 0 {
		query = query.Where("player1_id = ? OR player2_id = ?", filter.PlayerID, filter.PlayerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var games []model.Game
	if err := query.
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&games).Error; err != nil {
		return nil, err
	}

	return &GameListResult{Items: games, Total: total}, nil
}

func sanitizeAdmin(admin model.Admin) AdminInfo {
	return AdminInfo{
		ID:          admin.ID,
		Username:    admin.Username,
		DisplayName: admin.DisplayName,
		Status:      admin.Status,
		LastLoginAt: admin.LastLoginAt,
		CreatedAt:   admin.CreatedAt,
	}
}
