package chinchon_test

import (
	"testing"

	"chinchon-service/internal/chinchon"
	"chinchon-service/pkg/utils/random"
)

func TestAnalyzeScoreExample(t *testing.T) {
	hand := cards("1-oros", "2-oros", "3-oros", "5-copas", "7-bastos", "10-espadas", "11-espadas")
	a := chinchon.Analyze(hand)

	if len(a.Melds) != 1 || a.Melds[0].Kind != chinchon.MeldRun || !sameCards(a.Melds[0].Cards, cards("1-oros", "2-oros", "3-oros")) {
		t.Fatalf("unexpected melds: %+v", a.Melds)
	}
	if !sameCards(a.Deadwood, cards("5-copas", "7-bastos", "10-espadas", "11-espadas")) {
		t.Fatalf("unexpected deadwood: %v", a.Deadwood)
	}
	if a.Points != 32 || a.CanCut || a.Closed {
		t.Fatalf("expected 32 points, no cut, not closed; got %+v", a)
	}
}

func TestAnalyzeChinchon(t *testing.T) {
	hand := cards("1-oros", "2-oros", "3-oros", "4-oros", "5-copas", "5-espadas", "5-bastos")
	a := chinchon.Analyze(hand)
	if !a.Closed || a.Points != 0 || !a.CanCut || len(a.Deadwood) != 0 {
		t.Fatalf("expected a closed hand, got %+v", a)
	}

	loser := chinchon.Analyze(cards("1-copas", "3-copas", "6-bastos", "10-bastos", "12-espadas", "2-espadas", "4-bastos"))
	delta := chinchon.ScoreRound(a, loser, chinchon.Player1, chinchon.DefaultRules())
	if !delta.ChinchonBonus || delta.Player1 != loser.Points+25 || delta.Player2 != 0 {
		t.Fatalf("unexpected delta %+v for loser points %d", delta, loser.Points)
	}
}

func TestCutThresholdBoundary(t *testing.T) {
	five := chinchon.Analyze(cards("1-oros", "2-oros", "3-oros", "10-copas", "11-copas", "12-copas", "5-espadas"))
	if five.Points != 5 || !five.CanCut {
		t.Fatalf("5 points must allow a cut: %+v", five)
	}
	six := chinchon.Analyze(cards("1-oros", "2-oros", "3-oros", "10-copas", "11-copas", "12-copas", "6-espadas"))
	if six.Points != 6 || six.CanCut {
		t.Fatalf("6 points must not allow a cut: %+v", six)
	}
}

func TestAnalyzeEmptyHand(t *testing.T) {
	a := chinchon.Analyze(nil)
	if len(a.Melds) != 0 || a.Points != 0 || !a.Closed || !a.CanCut {
		t.Fatalf("unexpected analysis of empty hand: %+v", a)
	}
}

func TestAnalyzeWithoutMelds(t *testing.T) {
	hand := cards("1-oros", "3-copas", "5-espadas", "7-bastos", "11-oros", "12-copas", "2-espadas")
	a := chinchon.Analyze(hand)
	if len(a.Melds) != 0 || !sameCards(a.Deadwood, hand) || a.Points != chinchon.Points(hand) {
		t.Fatalf("expected the whole hand as deadwood, got %+v", a)
	}
}

func TestSplitSetsFindsLowerDeadwood(t *testing.T) {
	hand := cards("5-oros", "5-copas", "5-espadas", "5-bastos", "4-oros", "6-oros", "12-bastos")

	whole := chinchon.Analyze(hand)
	if whole.Points != 20 {
		t.Fatalf("all-or-nothing quad: expected 20 points, got %d", whole.Points)
	}

	rules := chinchon.DefaultRules()
	rules.SplitSets = true
	split := chinchon.NewAnalyzer(rules).Analyze(hand)
	if split.Points != 10 || len(split.Melds) != 2 {
		t.Fatalf("split quad: expected 10 points over two melds, got %+v", split)
	}
}

func TestAnalyzeIsMinimal(t *testing.T) {
	rules := chinchon.DefaultRules()
	for seed := int64(0); seed < 200; seed++ {
		hand := chinchon.Shuffle(chinchon.BuildDeck(), random.NewSeeded(seed))[:8]
		got := chinchon.NewAnalyzer(rules).Analyze(hand)
		want := exhaustiveMin(hand, chinchon.FindMelds(hand, rules))
		if got.Points != want {
			t.Fatalf("seed %d: analyze returned %d points, exhaustive minimum is %d (hand %v)", seed, got.Points, want, hand)
		}
		if got.Points != chinchon.Points(got.Deadwood) {
			t.Fatalf("seed %d: points do not match deadwood", seed)
		}
		if len(got.Deadwood)+meldCards(got.Melds) != len(hand) {
			t.Fatalf("seed %d: melds and deadwood do not partition the hand", seed)
		}
	}
}

func TestBacktrackAgreesWithBruteForce(t *testing.T) {
	rules := chinchon.DefaultRules()
	rules.SplitSets = true
	brute := chinchon.NewAnalyzer(rules)
	back := chinchon.NewAnalyzer(rules, chinchon.WithSolver(chinchon.Backtrack{}))
	for seed := int64(0); seed < 300; seed++ {
		hand := chinchon.Shuffle(chinchon.BuildDeck(), random.NewSeeded(seed))[:8]
		a, b := brute.Analyze(hand), back.Analyze(hand)
		if a.Points != b.Points || a.Closed != b.Closed {
			t.Fatalf("seed %d: brute force %d points, backtrack %d points", seed, a.Points, b.Points)
		}
	}
}

// exhaustiveMin tries every card-disjoint combination of melds by identity.
func exhaustiveMin(hand []chinchon.Card, melds []chinchon.Meld) int {
	used := make(map[chinchon.Card]bool)
	var rec func(i int) int
	rec = func(i int) int {
		if i == len(melds) {
			total := 0
			for _, c := range hand {
				if !used[c] {
					total += c.Points()
				}
			}
			return total
		}
		best := rec(i + 1)
		for _, c := range melds[i].Cards {
			if used[c] {
				return best
			}
		}
		for _, c := range melds[i].Cards {
			used[c] = true
		}
		if v := rec(i + 1); v < best {
			best = v
		}
		for _, c := range melds[i].Cards {
			used[c] = false
		}
		return best
	}
	return rec(0)
}

func meldCards(melds []chinchon.Meld) int {
	n := 0
	for _, m := range melds {
		n += len(m.Cards)
	}
	return n
}
