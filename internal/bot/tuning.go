package bot

import "fmt"

// Difficulty selects thresholds and randomness; every level plays the same way.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty: %q", s)
	}
}

// Tuning holds the knobs a difficulty controls.
type Tuning struct {
	// DrawThreshold is the deadwood improvement needed to take the discard top.
	DrawThreshold int
	// RunnerUpChance is the probability of discarding the second-worst deadwood card.
	RunnerUpChance float64
	// CutPoints is the highest deadwood total the bot is willing to cut with.
	CutPoints int
	// BeatHint also allows a cut when the hand is under the opponent's known points.
	BeatHint bool
	// CutChance is the probability of taking an allowed cut.
	CutChance float64
	// UseMemory breaks discard ties away from cards the opponent is collecting.
	UseMemory bool
}

var DefaultTuning = map[Difficulty]Tuning{
	Easy: {
		DrawThreshold: 1,
		CutPoints:     3,
		CutChance:     1,
	},
	Medium: {
		DrawThreshold: 2,
		CutPoints:     4,
		BeatHint:      true,
		CutChance:     1,
		UseMemory:     true,
	},
	Hard: {
		DrawThreshold:  0,
		RunnerUpChance: 0.3,
		CutPoints:      5,
		CutChance:      0.8,
		UseMemory:      true,
	},
}
