package service

import (
	"context"

	"chinchon-service/internal/config"
	"chinchon-service/internal/service/admin"
	"chinchon-service/internal/service/auth"
	"chinchon-service/internal/service/game"
	"chinchon-service/internal/service/match"
	"chinchon-service/internal/service/player"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Admin  *admin.Service
	Auth   *auth.Service
	Player *player.Service
	Game   *game.Service
	Match  *match.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Container {
	gameSvc := game.NewService(db, game.NewRedisStore(rdb), game.SettingsFromConfig(cfg.Game))
	return &Container{
		Admin:  admin.NewService(db),
		Auth:   auth.NewService(db),
		Player: player.NewService(db),
		Game:   gameSvc,
		Match:  match.NewService(db, rdb, gameSvc, match.ConfigFrom(cfg.Match)),
	}
}

func (c *Container) Start(ctx context.Context) error {
	if err := c.Admin.EnsureDefaultAdmin(ctx); err != nil {
		return err
	}
	return c.Match.Start(ctx)
}

// Stop halts every live game clock.
func (c *Container) Stop() {
	c.Game.Shutdown()
}
