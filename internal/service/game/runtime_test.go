package game

import (
	"testing"
	"time"

	"chinchon-service/internal/chinchon"
	"chinchon-service/pkg/utils/random"
)

func newTimedRuntime(t *testing.T) *Runtime {
	t.Helper()

	settings := Settings{
		Rules:       chinchon.DefaultRules(),
		TargetScore: chinchon.TargetShort,
		TurnTimeout: time.Hour,
		NewSource:   func() random.Source { return random.NewSeeded(3) },
	}
	snap := Snapshot{
		GameID: "timed",
		Mode:   ModePvP,
		Seats: [2]SeatState{
			{Seat: chinchon.Player1, PlayerID: 1, Nickname: "ana"},
			{Seat: chinchon.Player2, PlayerID: 2, Nickname: "beto"},
		},
	}
	rt, err := newRuntime(snap, settings, nil)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	rt.resume()
	t.Cleanup(rt.Close)
	return rt
}

// armShortClockLocked gives the seat on turn a short clock; later turns get the hour again.
func armShortClockLocked(rt *Runtime, d time.Duration) {
	rt.settings.TurnTimeout = d
	rt.resetTurnTimerLocked()
	rt.settings.TurnTimeout = time.Hour
}

func TestTurnTimeoutAutoPlaysIdleSeat(t *testing.T) {
	rt := newTimedRuntime(t)

	rt.mu.Lock()
	if rt.phase != PhasePlaying || rt.round.Turn != chinchon.Player1 {
		rt.mu.Unlock()
		t.Fatalf("expected seat 1 on turn, got phase=%s", rt.phase)
	}
	armShortClockLocked(rt, 20*time.Millisecond)
	rt.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for {
		rt.mu.Lock()
		done := len(rt.actions) > 0 && (rt.phase != PhasePlaying || rt.round.Turn == chinchon.Player2)
		if done {
			break
		}
		rt.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("idle seat was never auto-played")
		}
		time.Sleep(5 * time.Millisecond)
	}
	defer rt.mu.Unlock()

	for i, a := range rt.actions {
		if !a.Auto || a.Move.Player != chinchon.Player1 {
			t.Fatalf("action %d: expected an auto move for seat 1, got %+v", i, a)
		}
	}
	if rt.phase == PhasePlaying {
		if len(rt.round.Hands[1]) != chinchon.HandSize {
			t.Fatalf("seat 2 hand changed: %d cards", len(rt.round.Hands[1]))
		}
		if rt.countdownSecondsLocked() < 60 {
			t.Fatalf("seat 2 should hold a fresh clock, got %ds", rt.countdownSecondsLocked())
		}
	}
}

func TestFiredTimeoutIgnoredAfterMove(t *testing.T) {
	rt := newTimedRuntime(t)

	rt.mu.Lock()
	armShortClockLocked(rt, time.Millisecond)
	// the callback fires and waits on the lock while seat 1 finishes its turn
	time.Sleep(30 * time.Millisecond)
	if err := rt.applyMoveLocked(chinchon.Move{Action: chinchon.ActionDraw, Player: chinchon.Player1, Source: chinchon.SourceStock}, false); err != nil {
		rt.mu.Unlock()
		t.Fatalf("draw: %v", err)
	}
	card := rt.round.Hand(chinchon.Player1)[0]
	if err := rt.applyMoveLocked(chinchon.Move{Action: chinchon.ActionDiscard, Player: chinchon.Player1, Card: &card}, false); err != nil {
		rt.mu.Unlock()
		t.Fatalf("discard: %v", err)
	}
	rt.mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.actions) != 2 {
		t.Fatalf("expected only seat 1's two moves, got %+v", rt.actions)
	}
	for _, a := range rt.actions {
		if a.Auto {
			t.Fatalf("unexpected auto move %+v", a)
		}
	}
	if rt.round.Turn != chinchon.Player2 || rt.round.Phase != chinchon.PhaseAwaitingDraw {
		t.Fatalf("seat 2 should still be on turn, got turn=%d phase=%s", rt.round.Turn, rt.round.Phase)
	}
	if len(rt.round.Hands[1]) != chinchon.HandSize {
		t.Fatalf("seat 2 was played for: %d cards", len(rt.round.Hands[1]))
	}
}
