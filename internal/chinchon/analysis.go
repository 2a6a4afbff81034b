package chinchon

// Analysis is the best partition of a hand into melds and deadwood.
type Analysis struct {
	Melds    []Meld `json:"melds"`
	Deadwood []Card `json:"deadwood"`
	Points   int    `json:"points"`
	// Closed is a chinchón: every card sits in a meld.
	Closed bool `json:"closed"`
	CanCut bool `json:"canCut"`
}

// Selection is a solver result: indexes into the candidate meld slice.
type Selection struct {
	Melds  []int
	Points int
}

// Solver picks the card-disjoint subset of candidate melds with the lowest deadwood.
type Solver interface {
	Solve(hand []Card, melds []Meld) Selection
}

// Analyzer evaluates hands under a rule set.
type Analyzer struct {
	rules  Rules
	solver Solver
}

type AnalyzerOption func(*Analyzer)

// WithSolver replaces the default BruteForce search.
func WithSolver(s Solver) AnalyzerOption {
	return func(a *Analyzer) { a.solver = s }
}

func NewAnalyzer(rules Rules, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{rules: rules, solver: BruteForce{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAnalyzer = NewAnalyzer(DefaultRules())

// Analyze evaluates hand with the default rules.
func Analyze(hand []Card) Analysis {
	return defaultAnalyzer.Analyze(hand)
}

func (a *Analyzer) Rules() Rules {
	return a.rules
}

// Analyze never fails; an empty hand is a vacuous chinchón worth zero points.
func (a *Analyzer) Analyze(hand []Card) Analysis {
	candidates := FindMelds(hand, a.rules)
	if len(candidates) == 0 {
		deadwood := append([]Card{}, hand...)
		points := Points(deadwood)
		return Analysis{
			Melds:    []Meld{},
			Deadwood: deadwood,
			Points:   points,
			Closed:   len(deadwood) == 0,
			CanCut:   points <= a.rules.CutThreshold,
		}
	}

	sel := a.solver.Solve(hand, candidates)
	melds := make([]Meld, 0, len(sel.Melds))
	used := make([]bool, len(hand))
	for _, idx := range sel.Melds {
		m := candidates[idx]
		melds = append(melds, m)
		markUsed(hand, used, m)
	}
	deadwood := make([]Card, 0, len(hand))
	for i, c := range hand {
		if !used[i] {
			deadwood = append(deadwood, c)
		}
	}
	points := Points(deadwood)
	return Analysis{
		Melds:    melds,
		Deadwood: deadwood,
		Points:   points,
		Closed:   len(deadwood) == 0,
		CanCut:   points <= a.rules.CutThreshold,
	}
}

// markUsed flags the hand positions holding m's cards.
func markUsed(hand []Card, used []bool, m Meld) {
	for _, mc := range m.Cards {
		for i, hc := range hand {
			if !used[i] && hc == mc {
				used[i] = true
				break
			}
		}
	}
}

// meldMasks converts each meld into a bitmask over hand positions.
// Hands are capped at 64 cards by construction of the uint64 mask.
func meldMasks(hand []Card, melds []Meld) []uint64 {
	masks := make([]uint64, len(melds))
	for i, m := range melds {
		var mask uint64
		for _, mc := range m.Cards {
			for j, hc := range hand {
				bit := uint64(1) << uint(j)
				if hc == mc && mask&bit == 0 {
					mask |= bit
					break
				}
			}
		}
		masks[i] = mask
	}
	return masks
}

func maskPoints(hand []Card, used uint64) int {
	total := 0
	for i, c := range hand {
		if used&(uint64(1)<<uint(i)) == 0 {
			total += c.Points()
		}
	}
	return total
}
