package chinchon

import (
	"errors"
	"fmt"
)

var ErrInvalidTarget = errors.New("target score must be 50 or 100")

// ScoreDelta is what one round adds to each player's total.
type ScoreDelta struct {
	Winner        PlayerID `json:"winner,omitempty"`
	Player1       int      `json:"player1"`
	Player2       int      `json:"player2"`
	ChinchonBonus bool     `json:"chinchonBonus"`
}

// For returns the delta credited to p.
func (d ScoreDelta) For(p PlayerID) int {
	if p == Player2 {
		return d.Player2
	}
	return d.Player1
}

// ScoreRound credits the loser's deadwood to the winner, plus the bonus for a closed hand.
func ScoreRound(winner, loser Analysis, winnerID PlayerID, rules Rules) ScoreDelta {
	d := ScoreDelta{Winner: winnerID}
	points := loser.Points
	if winner.Closed {
		points += rules.ChinchonBonus
		d.ChinchonBonus = true
	}
	if winnerID == Player2 {
		d.Player2 = points
	} else {
		d.Player1 = points
	}
	return d
}

// GameScore holds running totals. Totals are points earned: the first to reach Target wins.
type GameScore struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
	Round   int `json:"round"`
	Target  int `json:"target"`
}

func NewGameScore(target int) (GameScore, error) {
	if target != TargetShort && target != TargetLong {
		return GameScore{}, fmt.Errorf("%w: got %d", ErrInvalidTarget, target)
	}
	return GameScore{Target: target}, nil
}

// Apply returns the score after one more round.
func (s GameScore) Apply(d ScoreDelta) GameScore {
	s.Player1 += d.Player1
	s.Player2 += d.Player2
	s.Round++
	return s
}

func (s GameScore) Total(p PlayerID) int {
	if p == Player2 {
		return s.Player2
	}
	return s.Player1
}

func (s GameScore) IsOver() bool {
	return s.Player1 >= s.Target || s.Player2 >= s.Target
}

// Winner is the player over the target with the higher total; zero while the game runs.
// Points are awarded to the player who closes, so the larger total is the better one.
func (s GameScore) Winner() PlayerID {
	if !s.IsOver() {
		return 0
	}
	switch {
	case s.Player1 > s.Player2:
		return Player1
	case s.Player2 > s.Player1:
		return Player2
	default:
		return 0
	}
}

// RoundResult is the settled outcome of a finished round.
type RoundResult struct {
	Outcome  Outcome     `json:"outcome"`
	Analyses [2]Analysis `json:"analyses"`
	Delta    ScoreDelta  `json:"delta"`
}

// Result analyses both final hands and scores the round. An exhausted round scores zero.
func (r *Round) Result() (RoundResult, error) {
	if r.Phase != PhaseRoundOver || r.Outcome == nil {
		return RoundResult{}, moveErr(KindWrongPhase, "round still running")
	}
	a := r.Analyzer()
	res := RoundResult{
		Outcome:  *r.Outcome,
		Analyses: [2]Analysis{a.Analyze(r.Hands[0]), a.Analyze(r.Hands[1])},
	}
	if w := r.Outcome.Winner; w.Valid() {
		res.Delta = ScoreRound(res.Analyses[w.seat()], res.Analyses[w.Other().seat()], w, r.Rules)
	}
	return res, nil
}
