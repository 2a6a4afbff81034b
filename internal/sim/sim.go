// Package sim pits two bot difficulties against each other over many seeded games.
package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"chinchon-service/internal/bot"
	"chinchon-service/internal/chinchon"
	"chinchon-service/pkg/logger"
	"chinchon-service/pkg/utils/random"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultMaxRounds = 200
	maxMovesPerRound = 1000
)

var ErrNoGames = errors.New("sim: games must be positive")

type Config struct {
	Games   int
	Target  int
	Seats   [2]bot.Difficulty
	Rules   chinchon.Rules
	Seed    int64
	Workers int
	// MaxRounds stops a game that never reaches the target; it is reported as undecided.
	MaxRounds int
}

// GameResult is one finished simulated game.
type GameResult struct {
	Index      int                `json:"index"`
	Winner     chinchon.PlayerID  `json:"winner"`
	Score      chinchon.GameScore `json:"score"`
	Rounds     int                `json:"rounds"`
	Exhausted  int                `json:"exhausted"`
	Chinchones [2]int             `json:"chinchones"`
	// Awarded holds the points handed out by each decided round.
	Awarded []float64 `json:"-"`
}

type SeatReport struct {
	Difficulty bot.Difficulty `json:"difficulty"`
	Wins       int            `json:"wins"`
	WinRate    float64        `json:"winRate"`
	Chinchones int            `json:"chinchones"`
}

type Report struct {
	Games         int           `json:"games"`
	Target        int           `json:"target"`
	Seats         [2]SeatReport `json:"seats"`
	Undecided     int           `json:"undecided"`
	Rounds        int           `json:"rounds"`
	MeanRounds    float64       `json:"meanRounds"`
	StdRounds     float64       `json:"stdRounds"`
	ExhaustedRate float64       `json:"exhaustedRate"`
	ChinchonRate  float64       `json:"chinchonRate"`
	MeanAwarded   float64       `json:"meanAwarded"`
	StdAwarded    float64       `json:"stdAwarded"`
}

// Run plays cfg.Games games on a bounded worker pool. Game i uses seed cfg.Seed+i and the
// first round alternates between seats across games, so reports are reproducible.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.Games <= 0 {
		return nil, ErrNoGames
	}
	if _, err := chinchon.NewGameScore(cfg.Target); err != nil {
		return nil, err
	}
	for _, d := range cfg.Seats {
		if _, err := bot.ParseDifficulty(string(d)); err != nil {
			return nil, err
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaultMaxRounds
	}

	analyzer := chinchon.NewAnalyzer(cfg.Rules)
	p := pool.NewWithResults[GameResult]().
		WithContext(ctx).
		WithMaxGoroutines(cfg.Workers)
	for i := 0; i < cfg.Games; i++ {
		idx := i
		p.Go(func(ctx context.Context) (GameResult, error) {
			if err := ctx.Err(); err != nil {
				return GameResult{}, err
			}
			return PlayGame(cfg, analyzer, idx)
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	report := Summarize(cfg, results)
	logger.Log.Info("simulation finished",
		zap.Int("games", report.Games),
		zap.String("seat1", string(cfg.Seats[0])),
		zap.String("seat2", string(cfg.Seats[1])),
		zap.Float64("seat1WinRate", report.Seats[0].WinRate),
		zap.Float64("seat2WinRate", report.Seats[1].WinRate),
	)
	return report, nil
}

// PlayGame plays a single game to the target. The analyzer is shared and must be safe for
// concurrent use.
func PlayGame(cfg Config, analyzer *chinchon.Analyzer, idx int) (GameResult, error) {
	src := random.NewSeeded(cfg.Seed + int64(idx))
	score, err := chinchon.NewGameScore(cfg.Target)
	if err != nil {
		return GameResult{}, err
	}

	var seats [2]*bot.Policy
	for i, d := range cfg.Seats {
		policy, err := bot.NewPolicy(d, cfg.Rules, src)
		if err != nil {
			return GameResult{}, err
		}
		seats[i] = policy
	}

	res := GameResult{Index: idx}
	starter := chinchon.Player1
	if idx%2 == 1 {
		starter = chinchon.Player2
	}

	for !score.IsOver() && res.Rounds < cfg.MaxRounds {
		round := chinchon.NewRound(cfg.Rules, src)
		round.UseAnalyzer(analyzer)
		round.Turn = starter
		for _, s := range seats {
			s.Memory().Reset()
		}

		if err := playRound(round, seats); err != nil {
			return GameResult{}, fmt.Errorf("game %d round %d: %w", idx, res.Rounds+1, err)
		}
		result, err := round.Result()
		if err != nil {
			return GameResult{}, err
		}

		score = score.Apply(result.Delta)
		res.Rounds++
		if w := result.Outcome.Winner; w.Valid() {
			if result.Analyses[w-1].Closed {
				res.Chinchones[w-1]++
			}
			res.Awarded = append(res.Awarded, float64(result.Delta.Player1+result.Delta.Player2))
		} else {
			res.Exhausted++
		}
		starter = starter.Other()
	}

	res.Score = score
	res.Winner = score.Winner()
	return res, nil
}

func playRound(round *chinchon.Round, seats [2]*bot.Policy) error {
	for moves := 0; !round.Over(); moves++ {
		if moves >= maxMovesPerRound {
			return fmt.Errorf("round did not finish after %d moves", moves)
		}
		actor := round.Turn
		m, err := seats[actor-1].NextMove(round.View(actor), 0)
		if err != nil {
			return err
		}
		top, _ := round.TopDiscard()
		if _, err := round.Apply(m); err != nil {
			return fmt.Errorf("bot move %+v rejected: %w", m, err)
		}
		for i, s := range seats {
			s.Observe(chinchon.PlayerID(i+1), m, top)
		}
	}
	return nil
}

// Summarize aggregates finished games into a report.
func Summarize(cfg Config, results []GameResult) *Report {
	report := &Report{Games: len(results), Target: cfg.Target}
	for i, d := range cfg.Seats {
		report.Seats[i].Difficulty = d
	}

	rounds := make([]float64, 0, len(results))
	var awarded []float64
	exhausted, chinchones := 0, 0
	for _, r := range results {
		switch r.Winner {
		case chinchon.Player1, chinchon.Player2:
			report.Seats[r.Winner-1].Wins++
		default:
			report.Undecided++
		}
		for i, n := range r.Chinchones {
			report.Seats[i].Chinchones += n
			chinchones += n
		}
		report.Rounds += r.Rounds
		exhausted += r.Exhausted
		rounds = append(rounds, float64(r.Rounds))
		awarded = append(awarded, r.Awarded...)
	}

	if report.Games > 0 {
		for i := range report.Seats {
			report.Seats[i].WinRate = float64(report.Seats[i].Wins) / float64(report.Games)
		}
	}
	if report.Rounds > 0 {
		report.ExhaustedRate = float64(exhausted) / float64(report.Rounds)
	}
	if decided := report.Rounds - exhausted; decided > 0 {
		report.ChinchonRate = float64(chinchones) / float64(decided)
	}
	report.MeanRounds, report.StdRounds = meanStd(rounds)
	report.MeanAwarded, report.StdAwarded = meanStd(awarded)
	return report
}

func meanStd(x []float64) (float64, float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}
