package chinchon_test

import (
	"errors"
	"testing"

	"chinchon-service/internal/chinchon"
)

func fixture(t *testing.T, p1, p2, discard, stock []string) *chinchon.Round {
	t.Helper()

	r := &chinchon.Round{
		Hands:   [2][]chinchon.Card{cards(p1...), cards(p2...)},
		Discard: cards(discard...),
		Stock:   cards(stock...),
		Turn:    chinchon.Player1,
		Phase:   chinchon.PhaseAwaitingDraw,
		Rules:   chinchon.DefaultRules(),
		Total:   len(p1) + len(p2) + len(discard) + len(stock),
	}
	if err := r.Verify(); err != nil {
		t.Fatalf("invalid fixture: %v", err)
	}
	return r
}

var (
	highHand = []string{"1-oros", "2-oros", "3-oros", "5-copas", "7-bastos", "10-espadas", "11-espadas"}
	lowHand  = []string{"1-oros", "2-oros", "3-oros", "5-copas", "5-espadas", "5-bastos", "2-copas"}
	oppHand  = []string{"4-copas", "6-copas", "1-bastos", "3-bastos", "12-oros", "2-espadas", "6-espadas"}
)

func TestValidateRejectsOutOfTurnAndPhase(t *testing.T) {
	r := fixture(t, highHand, oppHand, []string{"12-espadas"}, []string{"4-oros", "5-oros", "7-copas"})
	card := cards("1-oros")[0]

	err := r.Validate(chinchon.Move{Action: chinchon.ActionDiscard, Player: chinchon.Player1, Card: &card})
	if !errors.Is(err, chinchon.ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase, got %v", err)
	}
	if _, err := r.Draw(chinchon.Player2, chinchon.SourceStock); !errors.Is(err, chinchon.ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if chinchon.KindOf(err) != chinchon.KindWrongPhase {
		t.Fatalf("unexpected kind %q", chinchon.KindOf(err))
	}
	if len(r.Stock) != 3 || len(r.Hands[1]) != 7 {
		t.Fatalf("rejected move changed the round")
	}
}

func TestCannotCutAboveThreshold(t *testing.T) {
	r := fixture(t, highHand, oppHand, []string{"12-espadas"}, []string{"4-oros"})
	if _, err := r.Cut(chinchon.Player1, nil); !errors.Is(err, chinchon.ErrCannotCut) {
		t.Fatalf("expected ErrCannotCut, got %v", err)
	}
	if r.Phase != chinchon.PhaseAwaitingDraw {
		t.Fatalf("phase changed to %s", r.Phase)
	}
}

func TestDrawThenDiscardSameCard(t *testing.T) {
	r := fixture(t, highHand, oppHand, []string{"12-espadas"}, []string{"4-oros", "5-oros", "7-copas"})
	before := r.Hand(chinchon.Player1)

	drawn, err := r.Draw(chinchon.Player1, chinchon.SourceStock)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if drawn.ID() != "4-oros" || len(r.Hands[0]) != 8 || r.Phase != chinchon.PhaseAwaitingDiscard {
		t.Fatalf("unexpected state after draw: drawn=%s hand=%d phase=%s", drawn, len(r.Hands[0]), r.Phase)
	}
	if err := r.DiscardCard(chinchon.Player1, drawn); err != nil {
		t.Fatalf("discard failed: %v", err)
	}
	if !sameCards(before, r.Hand(chinchon.Player1)) {
		t.Fatalf("hand changed: %v -> %v", before, r.Hand(chinchon.Player1))
	}
	if top, _ := r.TopDiscard(); top != drawn {
		t.Fatalf("expected %s on the discard pile, got %s", drawn, top)
	}
	if r.Turn != chinchon.Player2 || r.Phase != chinchon.PhaseAwaitingDraw {
		t.Fatalf("turn did not pass: turn=%d phase=%s", r.Turn, r.Phase)
	}
}

func TestDrawThenDiscardOtherCard(t *testing.T) {
	r := fixture(t, highHand, oppHand, []string{"12-espadas"}, []string{"4-oros", "5-oros", "7-copas"})

	drawn, err := r.Draw(chinchon.Player1, chinchon.SourceDiscard)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if drawn.ID() != "12-espadas" || len(r.Discard) != 0 {
		t.Fatalf("expected the discard top, got %s (pile %d)", drawn, len(r.Discard))
	}
	old := cards("7-bastos")[0]
	if err := r.DiscardCard(chinchon.Player1, old); err != nil {
		t.Fatalf("discard failed: %v", err)
	}
	hand := r.Hand(chinchon.Player1)
	if len(hand) != 7 || chinchon.IndexOf(hand, drawn) < 0 || chinchon.IndexOf(hand, old) >= 0 {
		t.Fatalf("unexpected hand %v", hand)
	}
}

func TestDiscardRequiresCardInHand(t *testing.T) {
	r := fixture(t, highHand, oppHand, []string{"12-espadas"}, []string{"4-oros", "5-oros"})
	if _, err := r.Draw(chinchon.Player1, chinchon.SourceStock); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	err := r.Validate(chinchon.Move{Action: chinchon.ActionDiscard, Player: chinchon.Player1})
	if !errors.Is(err, chinchon.ErrMissingCard) {
		t.Fatalf("expected ErrMissingCard, got %v", err)
	}
	if err := r.DiscardCard(chinchon.Player1, cards("6-copas")[0]); !errors.Is(err, chinchon.ErrCardNotInHand) {
		t.Fatalf("expected ErrCardNotInHand, got %v", err)
	}
	if _, err := r.Draw(chinchon.Player1, chinchon.SourceStock); !errors.Is(err, chinchon.ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase for a second draw, got %v", err)
	}
}

func TestDrawFromEmptySource(t *testing.T) {
	r := fixture(t, highHand, oppHand, nil, []string{"4-oros"})
	if _, err := r.Draw(chinchon.Player1, chinchon.SourceDiscard); !errors.Is(err, chinchon.ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
	if _, err := r.Draw(chinchon.Player1, "deck"); !errors.Is(err, chinchon.ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove, got %v", err)
	}
	if r.Phase != chinchon.PhaseAwaitingDraw || len(r.Hands[0]) != 7 {
		t.Fatalf("failed draw changed the round")
	}
}

func TestCutBeforeDrawing(t *testing.T) {
	r := fixture(t, lowHand, oppHand, []string{"12-espadas"}, []string{"4-oros"})
	out, err := r.Cut(chinchon.Player1, nil)
	if err != nil {
		t.Fatalf("cut failed: %v", err)
	}
	if out.Reason != chinchon.EndCut || out.Winner != chinchon.Player1 || !r.Over() {
		t.Fatalf("unexpected outcome %+v", out)
	}

	res, err := r.Result()
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	opp := chinchon.Analyze(cards(oppHand...))
	if res.Delta.Player1 != opp.Points || res.Delta.Player2 != 0 || res.Delta.ChinchonBonus {
		t.Fatalf("unexpected delta %+v, opponent had %d", res.Delta, opp.Points)
	}
	if _, err := r.Draw(chinchon.Player1, chinchon.SourceStock); !errors.Is(err, chinchon.ErrRoundOver) {
		t.Fatalf("expected ErrRoundOver, got %v", err)
	}
}

func TestCutWithDiscardClosesHand(t *testing.T) {
	r := fixture(t, lowHand, oppHand, []string{"12-espadas"}, []string{"4-oros", "7-copas"})
	spare := cards("2-copas")[0]

	err := r.Validate(chinchon.Move{Action: chinchon.ActionCut, Player: chinchon.Player1, Card: &spare})
	if !errors.Is(err, chinchon.ErrWrongPhase) {
		t.Fatalf("cutting with a card before drawing: expected ErrWrongPhase, got %v", err)
	}

	if _, err := r.Draw(chinchon.Player1, chinchon.SourceStock); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	out, err := r.Apply(chinchon.Move{Action: chinchon.ActionCut, Player: chinchon.Player1, Card: &spare})
	if err != nil {
		t.Fatalf("cut failed: %v", err)
	}
	if out == nil || out.Winner != chinchon.Player1 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if top, _ := r.TopDiscard(); top != spare {
		t.Fatalf("expected %s on the discard pile, got %s", spare, top)
	}

	res, err := r.Result()
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	opp := chinchon.Analyze(cards(oppHand...))
	if !res.Analyses[0].Closed || !res.Delta.ChinchonBonus || res.Delta.Player1 != opp.Points+25 {
		t.Fatalf("expected a chinchon worth %d, got %+v", opp.Points+25, res.Delta)
	}
}

func TestStockExhaustionEndsRound(t *testing.T) {
	r := fixture(t, highHand, oppHand, []string{"12-espadas"}, []string{"4-oros"})
	if _, err := r.Result(); err == nil {
		t.Fatalf("result of a running round should fail")
	}
	if _, err := r.Draw(chinchon.Player1, chinchon.SourceStock); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if err := r.DiscardCard(chinchon.Player1, cards("11-espadas")[0]); err != nil {
		t.Fatalf("discard failed: %v", err)
	}
	if !r.Over() || r.Outcome == nil || r.Outcome.Reason != chinchon.EndExhausted || r.Outcome.Winner != 0 {
		t.Fatalf("expected an exhausted round, got phase=%s outcome=%+v", r.Phase, r.Outcome)
	}
	res, err := r.Result()
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	if res.Delta.Player1 != 0 || res.Delta.Player2 != 0 {
		t.Fatalf("exhausted round must score zero, got %+v", res.Delta)
	}
}

func TestExhaustedRoundClosesDiscardPile(t *testing.T) {
	r := fixture(t, highHand, oppHand, []string{"12-espadas"}, []string{"4-oros"})
	if _, err := r.Draw(chinchon.Player1, chinchon.SourceStock); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if err := r.DiscardCard(chinchon.Player1, cards("11-espadas")[0]); err != nil {
		t.Fatalf("discard failed: %v", err)
	}
	if len(r.Stock) != 0 || len(r.Discard) != 2 {
		t.Fatalf("expected an empty stock and two discards, got %d/%d", len(r.Stock), len(r.Discard))
	}

	err := r.Validate(chinchon.Move{Action: chinchon.ActionDraw, Player: chinchon.Player2, Source: chinchon.SourceDiscard})
	if !errors.Is(err, chinchon.ErrRoundOver) {
		t.Fatalf("expected ErrRoundOver for a discard draw, got %v", err)
	}
	if _, err := r.Draw(chinchon.Player2, chinchon.SourceDiscard); !errors.Is(err, chinchon.ErrRoundOver) {
		t.Fatalf("expected ErrRoundOver, got %v", err)
	}
	if v := r.View(chinchon.Player2); v.Phase != chinchon.PhaseRoundOver || v.DiscardCount != 2 {
		t.Fatalf("unexpected view %+v", v)
	}
	if len(r.Hands[1]) != 7 {
		t.Fatalf("rejected draw changed the hand")
	}
}

func TestBrokenInvariantPanics(t *testing.T) {
	r := fixture(t, highHand, oppHand, []string{"12-espadas"}, []string{"4-oros"})
	r.Total++
	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, chinchon.ErrInvariant) {
			t.Fatalf("expected an invariant panic, got %v", rec)
		}
	}()
	_, _ = r.Draw(chinchon.Player1, chinchon.SourceStock)
}

func TestViewHidesOpponentHand(t *testing.T) {
	r := fixture(t, highHand, oppHand, []string{"12-espadas"}, []string{"4-oros"})
	v := r.View(chinchon.Player2)
	if !sameCards(v.Hand, cards(oppHand...)) || v.OpponentSize != 7 || v.StockCount != 1 {
		t.Fatalf("unexpected view %+v", v)
	}
	if v.TopDiscard == nil || v.TopDiscard.ID() != "12-espadas" {
		t.Fatalf("unexpected top discard %v", v.TopDiscard)
	}
}
