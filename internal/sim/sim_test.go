package sim_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"chinchon-service/internal/bot"
	"chinchon-service/internal/chinchon"
	"chinchon-service/internal/sim"
)

func testConfig(games int) sim.Config {
	return sim.Config{
		Games:   games,
		Target:  chinchon.TargetShort,
		Seats:   [2]bot.Difficulty{bot.Hard, bot.Easy},
		Rules:   chinchon.DefaultRules(),
		Seed:    42,
		Workers: 4,
	}
}

func TestRunReportsEveryGame(t *testing.T) {
	report, err := sim.Run(context.Background(), testConfig(12))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Games != 12 {
		t.Fatalf("expected 12 games, got %d", report.Games)
	}
	if got := report.Seats[0].Wins + report.Seats[1].Wins + report.Undecided; got != 12 {
		t.Fatalf("wins and undecided should cover every game, got %d", got)
	}
	if report.Rounds < 12 || report.MeanRounds < 1 {
		t.Fatalf("every game plays at least one round: %+v", report)
	}
	if report.ChinchonRate < 0 || report.ChinchonRate > 1 || report.ExhaustedRate < 0 || report.ExhaustedRate > 1 {
		t.Fatalf("rates out of range: %+v", report)
	}
	if report.Seats[0].Difficulty != bot.Hard || report.Seats[1].Difficulty != bot.Easy {
		t.Fatalf("seat difficulties lost: %+v", report.Seats)
	}
}

func TestRunIsReproducible(t *testing.T) {
	first, err := sim.Run(context.Background(), testConfig(8))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	cfg := testConfig(8)
	cfg.Workers = 1
	second, err := sim.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed gave different reports:\n%+v\n%+v", first, second)
	}
}

func TestPlayGameReachesTarget(t *testing.T) {
	cfg := testConfig(1)
	res, err := sim.PlayGame(cfg, chinchon.NewAnalyzer(cfg.Rules), 3)
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if res.Index != 3 {
		t.Fatalf("unexpected index %d", res.Index)
	}
	if res.Winner != 0 && res.Score.Total(res.Winner) < cfg.Target {
		t.Fatalf("winner below target: %+v", res.Score)
	}
	if res.Score.Round != res.Rounds {
		t.Fatalf("score counted %d rounds, game played %d", res.Score.Round, res.Rounds)
	}
}

func TestRunValidation(t *testing.T) {
	cfg := testConfig(0)
	if _, err := sim.Run(context.Background(), cfg); !errors.Is(err, sim.ErrNoGames) {
		t.Fatalf("expected ErrNoGames, got %v", err)
	}

	cfg = testConfig(2)
	cfg.Target = 75
	if _, err := sim.Run(context.Background(), cfg); !errors.Is(err, chinchon.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}

	cfg = testConfig(2)
	cfg.Seats[1] = "expert"
	if _, err := sim.Run(context.Background(), cfg); err == nil {
		t.Fatalf("expected unknown difficulty error")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sim.Run(ctx, testConfig(4)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	cfg := testConfig(3)
	report := sim.Summarize(cfg, []sim.GameResult{
		{Winner: chinchon.Player1, Rounds: 4, Chinchones: [2]int{1, 0}, Awarded: []float64{10, 20, 30}, Exhausted: 1},
		{Winner: chinchon.Player2, Rounds: 2, Awarded: []float64{20, 20}},
		{Winner: 0, Rounds: 6, Exhausted: 6},
	})
	if report.Seats[0].Wins != 1 || report.Seats[1].Wins != 1 || report.Undecided != 1 {
		t.Fatalf("unexpected wins: %+v", report)
	}
	if report.Rounds != 12 || report.MeanRounds != 4 {
		t.Fatalf("unexpected rounds: %+v", report)
	}
	if report.ExhaustedRate != 7.0/12.0 {
		t.Fatalf("unexpected exhausted rate %v", report.ExhaustedRate)
	}
	if report.ChinchonRate != 1.0/5.0 {
		t.Fatalf("unexpected chinchon rate %v", report.ChinchonRate)
	}
	if report.MeanAwarded != 20 || report.StdAwarded <= 0 {
		t.Fatalf("unexpected awarded stats: %v ± %v", report.MeanAwarded, report.StdAwarded)
	}
}
