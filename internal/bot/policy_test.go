package bot_test

import (
	"errors"
	"testing"

	"chinchon-service/internal/bot"
	"chinchon-service/internal/chinchon"
	"chinchon-service/pkg/utils/random"
)

type fixedSource struct{ f float64 }

func (s fixedSource) Intn(int) int     { return 0 }
func (s fixedSource) Float64() float64 { return s.f }

func newPolicy(t *testing.T, d bot.Difficulty, f float64) *bot.Policy {
	t.Helper()

	p, err := bot.NewPolicy(d, chinchon.DefaultRules(), fixedSource{f: f})
	if err != nil {
		t.Fatalf("failed to create %s policy: %v", d, err)
	}
	return p
}

func cards(ids ...string) []chinchon.Card {
	return chinchon.MustParseCards(ids...)
}

func card(id string) chinchon.Card {
	return cards(id)[0]
}

func TestParseDifficulty(t *testing.T) {
	for _, s := range []string{"easy", "medium", "hard"} {
		if _, err := bot.ParseDifficulty(s); err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
	}
	if _, err := bot.ParseDifficulty("expert"); err == nil {
		t.Fatalf("expected unknown difficulty to fail")
	}
	if _, err := bot.NewPolicy("expert", chinchon.DefaultRules(), nil); err == nil {
		t.Fatalf("expected NewPolicy to reject unknown difficulty")
	}
}

func TestShouldDrawFromDiscard(t *testing.T) {
	hand := cards("1-oros", "2-oros", "5-copas", "7-bastos", "10-espadas", "11-espadas", "3-copas")
	medium := newPolicy(t, bot.Medium, 0)

	if !medium.ShouldDrawFromDiscard(hand, card("4-copas")) {
		t.Fatalf("4-copas completes a run and should be taken")
	}
	if !medium.ShouldDrawFromDiscard(hand, card("3-oros")) {
		t.Fatalf("3-oros saves 3 points and should be taken on medium")
	}
	if medium.ShouldDrawFromDiscard(hand, card("12-bastos")) {
		t.Fatalf("12-bastos adds deadwood and should be left")
	}
}

func TestDrawThresholdPerDifficulty(t *testing.T) {
	// the fourth 4 turns a trio into a quad: zero improvement
	hand := cards("4-oros", "4-copas", "4-espadas", "1-copas", "7-bastos", "10-espadas", "12-oros")
	top := card("4-bastos")

	if !newPolicy(t, bot.Hard, 0).ShouldDrawFromDiscard(hand, top) {
		t.Fatalf("hard takes any non-negative improvement")
	}
	if newPolicy(t, bot.Easy, 0).ShouldDrawFromDiscard(hand, top) {
		t.Fatalf("easy needs at least one point of improvement")
	}
}

func TestSelectDiscard(t *testing.T) {
	hand := cards("1-oros", "2-oros", "3-oros", "10-espadas", "11-copas", "5-bastos", "2-copas", "6-espadas")

	if got := newPolicy(t, bot.Easy, 0).SelectDiscard(hand); got != card("10-espadas") {
		t.Fatalf("expected 10-espadas, got %s", got)
	}
	if got := newPolicy(t, bot.Hard, 0.1).SelectDiscard(hand); got != card("11-copas") {
		t.Fatalf("hard with a low roll should keep its best card: got %s", got)
	}
	if got := newPolicy(t, bot.Hard, 0.9).SelectDiscard(hand); got != card("10-espadas") {
		t.Fatalf("hard with a high roll should play the top card: got %s", got)
	}
}

func TestSelectDiscardFromClosedHand(t *testing.T) {
	hand := cards("4-oros", "2-oros", "3-oros", "1-oros", "5-copas", "5-espadas", "5-bastos")
	if got := newPolicy(t, bot.Medium, 0).SelectDiscard(hand); got != card("1-oros") {
		t.Fatalf("expected the lowest card, got %s", got)
	}
}

func TestSelectDiscardAvoidsFeedingOpponent(t *testing.T) {
	hand := cards("1-oros", "2-oros", "3-oros", "10-espadas", "11-copas", "5-bastos", "2-copas", "6-espadas")

	p := newPolicy(t, bot.Medium, 0)
	p.Memory().ObservePickup(card("10-bastos"))
	if got := p.SelectDiscard(hand); got != card("11-copas") {
		t.Fatalf("expected the safe tie 11-copas, got %s", got)
	}

	easy := newPolicy(t, bot.Easy, 0)
	easy.Memory().ObservePickup(card("10-bastos"))
	if got := easy.SelectDiscard(hand); got != card("10-espadas") {
		t.Fatalf("easy ignores memory, got %s", got)
	}
}

func TestShouldCut(t *testing.T) {
	base := []string{"1-oros", "2-oros", "3-oros", "10-copas", "11-copas", "12-copas"}
	withCard := func(id string) []chinchon.Card { return cards(append(append([]string{}, base...), id)...) }
	closed := cards("1-oros", "2-oros", "3-oros", "4-oros", "5-copas", "5-espadas", "5-bastos")

	tests := []struct {
		name  string
		level bot.Difficulty
		roll  float64
		hand  []chinchon.Card
		hint  int
		want  bool
	}{
		{"easy cuts at 3", bot.Easy, 0, withCard("3-espadas"), 0, true},
		{"easy holds at 4", bot.Easy, 0, withCard("4-espadas"), 0, false},
		{"medium cuts at 4", bot.Medium, 0, withCard("4-espadas"), 0, true},
		{"medium holds at 5", bot.Medium, 0, withCard("5-espadas"), 0, false},
		{"medium beats hint", bot.Medium, 0, withCard("5-espadas"), 6, true},
		{"hard cuts on a low roll", bot.Hard, 0.5, withCard("5-espadas"), 0, true},
		{"hard holds on a high roll", bot.Hard, 0.9, withCard("5-espadas"), 0, false},
		{"nobody cuts at 6", bot.Medium, 0, withCard("6-espadas"), 30, false},
		{"chinchon always cuts", bot.Hard, 0.99, closed, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newPolicy(t, tt.level, tt.roll).ShouldCut(tt.hand, tt.hint); got != tt.want {
				t.Fatalf("ShouldCut = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextMoveOutOfTurn(t *testing.T) {
	r := chinchon.NewRound(chinchon.DefaultRules(), random.NewSeeded(3))
	p := newPolicy(t, bot.Medium, 0)
	if _, err := p.NextMove(r.View(chinchon.Player2), 0); !errors.Is(err, bot.ErrNoMove) {
		t.Fatalf("expected ErrNoMove, got %v", err)
	}
}

func TestBotsPlayLegalRounds(t *testing.T) {
	for seed := int64(0); seed < 40; seed++ {
		r := chinchon.NewRound(chinchon.DefaultRules(), random.NewSeeded(seed))
		seats := [2]*bot.Policy{}
		for i, d := range []bot.Difficulty{bot.Hard, bot.Medium} {
			p, err := bot.NewPolicy(d, r.Rules, random.NewSeeded(seed+int64(i)))
			if err != nil {
				t.Fatalf("new policy: %v", err)
			}
			seats[i] = p
		}

		for moves := 0; !r.Over() && moves < 500; moves++ {
			actor := r.Turn
			m, err := seats[actor-1].NextMove(r.View(actor), 0)
			if err != nil {
				t.Fatalf("seed %d: no move for %d in %s: %v", seed, actor, r.Phase, err)
			}
			top, _ := r.TopDiscard()
			if _, err := r.Apply(m); err != nil {
				t.Fatalf("seed %d: illegal move %+v: %v", seed, m, err)
			}
			for i, p := range seats {
				p.Observe(chinchon.PlayerID(i+1), m, top)
			}
		}
	}
}
