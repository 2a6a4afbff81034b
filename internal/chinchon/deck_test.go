package chinchon_test

import (
	"errors"
	"testing"

	"chinchon-service/internal/chinchon"
	"chinchon-service/pkg/utils/random"
)

func TestBuildDeckIsComplete(t *testing.T) {
	deck := chinchon.BuildDeck()
	if len(deck) != chinchon.DeckSize {
		t.Fatalf("expected %d cards, got %d", chinchon.DeckSize, len(deck))
	}
	seen := make(map[chinchon.Card]bool)
	for _, c := range deck {
		if seen[c] {
			t.Fatalf("duplicate card %s", c)
		}
		seen[c] = true
	}
	for _, s := range chinchon.Suits {
		for _, r := range chinchon.Ranks {
			if !seen[chinchon.Card{Suit: s, Rank: r}] {
				t.Fatalf("missing card %d-%s", r, s)
			}
		}
	}
	if deck[0].ID() != "1-oros" || deck[len(deck)-1].ID() != "12-bastos" {
		t.Fatalf("unexpected canonical order: first=%s last=%s", deck[0], deck[len(deck)-1])
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	deck := chinchon.BuildDeck()
	for seed := int64(0); seed < 50; seed++ {
		shuffled := chinchon.Shuffle(deck, random.NewSeeded(seed))
		if !sameCards(deck, shuffled) {
			t.Fatalf("seed %d: shuffle changed the card multiset", seed)
		}
	}
	if deck[0].ID() != "1-oros" {
		t.Fatalf("shuffle modified its input")
	}
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	deck := chinchon.BuildDeck()
	a := chinchon.Shuffle(deck, random.NewSeeded(42))
	b := chinchon.Shuffle(deck, random.NewSeeded(42))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different orders at %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestDealConservesCards(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		shuffled := chinchon.Shuffle(chinchon.BuildDeck(), random.NewSeeded(seed))
		r, err := chinchon.Deal(shuffled, chinchon.DefaultRules())
		if err != nil {
			t.Fatalf("deal failed: %v", err)
		}
		if len(r.Hands[0]) != 7 || len(r.Hands[1]) != 7 || len(r.Discard) != 1 || len(r.Stock) != 25 {
			t.Fatalf("unexpected split: %d/%d/%d/%d", len(r.Hands[0]), len(r.Hands[1]), len(r.Discard), len(r.Stock))
		}
		if err := r.Verify(); err != nil {
			t.Fatalf("dealt round inconsistent: %v", err)
		}
		if r.Turn != chinchon.Player1 || r.Phase != chinchon.PhaseAwaitingDraw {
			t.Fatalf("unexpected start state: turn=%d phase=%s", r.Turn, r.Phase)
		}
		if r.Discard[0] != shuffled[14] || r.Stock[0] != shuffled[15] {
			t.Fatalf("deal order does not follow the shuffled deck")
		}
	}
}

func TestDealRejectsShortDeck(t *testing.T) {
	_, err := chinchon.Deal(chinchon.BuildDeck()[:14], chinchon.DefaultRules())
	if !errors.Is(err, chinchon.ErrInsufficientCards) {
		t.Fatalf("expected ErrInsufficientCards, got %v", err)
	}
	var ice *chinchon.InsufficientCardsError
	if !errors.As(err, &ice) || ice.Have != 14 || ice.Need != 15 {
		t.Fatalf("unexpected error detail: %+v", ice)
	}
}

func TestNewRoundUsesSource(t *testing.T) {
	a := chinchon.NewRound(chinchon.DefaultRules(), random.NewSeeded(7))
	b := chinchon.NewRound(chinchon.DefaultRules(), random.NewSeeded(7))
	if !sameCards(a.Hands[0], b.Hands[0]) || a.Discard[0] != b.Discard[0] {
		t.Fatalf("seeded rounds differ")
	}
}

func TestParseCardRoundTrip(t *testing.T) {
	for _, c := range chinchon.BuildDeck() {
		parsed, err := chinchon.ParseCard(c.ID())
		if err != nil || parsed != c {
			t.Fatalf("parse %q: got %v, %v", c.ID(), parsed, err)
		}
	}
	for _, bad := range []string{"8-oros", "9-copas", "0-oros", "13-bastos", "1-diamantes", "oros"} {
		if _, err := chinchon.ParseCard(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func cards(ids ...string) []chinchon.Card {
	return chinchon.MustParseCards(ids...)
}

func sameCards(a, b []chinchon.Card) bool {
	if len(a) != len(b) {
		return false
	}
	count := make(map[chinchon.Card]int)
	for _, c := range a {
		count[c]++
	}
	for _, c := range b {
		count[c]--
		if count[c] < 0 {
			return false
		}
	}
	return true
}
