package bot

import (
	"errors"
	"fmt"
	"sort"

	"chinchon-service/internal/chinchon"
	"chinchon-service/pkg/utils/random"
)

// ErrNoMove is returned when the bot is asked to act out of turn or after the round ended.
var ErrNoMove = errors.New("bot: no move available")

// Policy decides moves for one seat. It is not safe for concurrent use.
type Policy struct {
	difficulty Difficulty
	tuning     Tuning
	analyzer   *chinchon.Analyzer
	rng        random.Source
	memory     *Memory
}

// NewPolicy creates a policy for the given level playing under rules.
func NewPolicy(d Difficulty, rules chinchon.Rules, src random.Source) (*Policy, error) {
	t, ok := DefaultTuning[d]
	if !ok {
		return nil, fmt.Errorf("unknown bot difficulty: %q", d)
	}
	return NewPolicyWithTuning(d, t, rules, src), nil
}

func NewPolicyWithTuning(d Difficulty, t Tuning, rules chinchon.Rules, src random.Source) *Policy {
	if src == nil {
		src = random.NewCrypto()
	}
	return &Policy{
		difficulty: d,
		tuning:     t,
		analyzer:   chinchon.NewAnalyzer(rules),
		rng:        src,
		memory:     NewMemory(DefaultMemorySize),
	}
}

func (p *Policy) Difficulty() Difficulty {
	return p.difficulty
}

func (p *Policy) Memory() *Memory {
	return p.memory
}

// ShouldDrawFromDiscard takes top when it lowers the deadwood by at least the level's threshold.
func (p *Policy) ShouldDrawFromDiscard(hand []chinchon.Card, top chinchon.Card) bool {
	current := p.analyzer.Analyze(hand).Points
	with := p.analyzer.Analyze(append(append([]chinchon.Card(nil), hand...), top)).Points
	return current-with >= p.tuning.DrawThreshold
}

// SelectDiscard picks the highest-point deadwood card, first in hand order on ties.
// A fully melded hand gives up its lowest card. hand must not be empty.
func (p *Policy) SelectDiscard(hand []chinchon.Card) chinchon.Card {
	a := p.analyzer.Analyze(hand)
	if len(a.Deadwood) == 0 {
		return lowest(hand)
	}

	ranked := append([]chinchon.Card(nil), a.Deadwood...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points() > ranked[j].Points()
	})
	if p.tuning.UseMemory {
		p.preferSafe(ranked)
	}
	if len(ranked) > 1 && p.tuning.RunnerUpChance > 0 && p.rng.Float64() < p.tuning.RunnerUpChance {
		return ranked[1]
	}
	return ranked[0]
}

// preferSafe moves the first card of the leading tie that the opponent is not collecting to
// the front.
func (p *Policy) preferSafe(ranked []chinchon.Card) {
	top := ranked[0].Points()
	for i := 0; i < len(ranked) && ranked[i].Points() == top; i++ {
		if p.memory.Feeds(ranked[i]) {
			continue
		}
		safe := ranked[i]
		copy(ranked[1:i+1], ranked[:i])
		ranked[0] = safe
		return
	}
}

func lowest(hand []chinchon.Card) chinchon.Card {
	var best chinchon.Card
	for i, c := range hand {
		if i == 0 || c.Points() < best.Points() {
			best = c
		}
	}
	return best
}

// ShouldCut always takes a chinchón. Otherwise the hand must be cuttable and pass the
// level's extra condition. opponentHint is the opponent's known deadwood, 0 when unknown.
func (p *Policy) ShouldCut(hand []chinchon.Card, opponentHint int) bool {
	a := p.analyzer.Analyze(hand)
	if a.Closed {
		return true
	}
	if !a.CanCut {
		return false
	}
	ok := a.Points <= p.tuning.CutPoints ||
		(p.tuning.BeatHint && opponentHint > 0 && a.Points < opponentHint)
	if !ok {
		return false
	}
	return p.tuning.CutChance >= 1 || p.rng.Float64() < p.tuning.CutChance
}

// NextMove returns a legal move for the seat the view belongs to.
func (p *Policy) NextMove(v chinchon.View, opponentHint int) (chinchon.Move, error) {
	if v.Turn != v.Player || !v.Player.Valid() {
		return chinchon.Move{}, ErrNoMove
	}
	switch v.Phase {
	case chinchon.PhaseAwaitingDraw:
		if p.ShouldCut(v.Hand, opponentHint) {
			return chinchon.Move{Action: chinchon.ActionCut, Player: v.Player}, nil
		}
		if v.TopDiscard != nil && (v.StockCount == 0 || p.ShouldDrawFromDiscard(v.Hand, *v.TopDiscard)) {
			return chinchon.Move{Action: chinchon.ActionDraw, Player: v.Player, Source: chinchon.SourceDiscard}, nil
		}
		if v.StockCount > 0 {
			return chinchon.Move{Action: chinchon.ActionDraw, Player: v.Player, Source: chinchon.SourceStock}, nil
		}
		return chinchon.Move{}, ErrNoMove
	case chinchon.PhaseAwaitingDiscard:
		if len(v.Hand) == 0 {
			return chinchon.Move{}, ErrNoMove
		}
		card := p.SelectDiscard(v.Hand)
		if p.ShouldCut(chinchon.Without(v.Hand, card), opponentHint) {
			return chinchon.Move{Action: chinchon.ActionCut, Player: v.Player, Card: &card}, nil
		}
		return chinchon.Move{Action: chinchon.ActionDiscard, Player: v.Player, Card: &card}, nil
	default:
		return chinchon.Move{}, ErrNoMove
	}
}

// Observe feeds a move made by either seat into the memory. drawn is the card taken by a
// draw; it is ignored for other actions.
func (p *Policy) Observe(self chinchon.PlayerID, m chinchon.Move, drawn chinchon.Card) {
	switch m.Action {
	case chinchon.ActionDraw:
		if m.Player != self && m.Source == chinchon.SourceDiscard {
			p.memory.ObservePickup(drawn)
		}
	case chinchon.ActionDiscard, chinchon.ActionCut:
		if m.Card != nil {
			p.memory.ObserveDiscard(*m.Card)
		}
	}
}
