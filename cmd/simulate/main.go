package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chinchon-service/internal/bot"
	"chinchon-service/internal/chinchon"
	"chinchon-service/internal/config"
	"chinchon-service/internal/sim"
	"chinchon-service/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		games      int
		target     int
		seat1      string
		seat2      string
		seed       int64
		workers    int
	)
	flag.StringVar(&configPath, "config", "", "optional config file for game rules")
	flag.IntVar(&games, "games", 1000, "number of games to simulate")
	flag.IntVar(&target, "target", 100, "target score (50 or 100)")
	flag.StringVar(&seat1, "p1", "hard", "difficulty of seat 1")
	flag.StringVar(&seat2, "p2", "medium", "difficulty of seat 2")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "base seed")
	flag.IntVar(&workers, "workers", 0, "worker goroutines (0 = NumCPU)")
	flag.Parse()

	if err := logger.InitLogger("debug"); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Log.Sync()

	rules := chinchon.DefaultRules()
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			logger.Log.Fatal("load config", zap.Error(err))
		}
		rules = cfg.Game.Rules()
	}

	d1, err := bot.ParseDifficulty(seat1)
	if err != nil {
		logger.Log.Fatal("seat 1", zap.Error(err))
	}
	d2, err := bot.ParseDifficulty(seat2)
	if err != nil {
		logger.Log.Fatal("seat 2", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("simulating",
		zap.Int("games", games),
		zap.Int("target", target),
		zap.String("p1", seat1),
		zap.String("p2", seat2),
		zap.Int64("seed", seed),
	)
	report, err := sim.Run(ctx, sim.Config{
		Games:   games,
		Target:  target,
		Seats:   [2]bot.Difficulty{d1, d2},
		Rules:   rules,
		Seed:    seed,
		Workers: workers,
	})
	if err != nil {
		logger.Log.Fatal("simulation failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Log.Fatal("write report", zap.Error(err))
	}
}
