package chinchon

// PlayerStats summarises one seat for a scoreboard.
type PlayerStats struct {
	Cards  int  `json:"cards"`
	Points int  `json:"points"`
	Melds  int  `json:"melds"`
	CanCut bool `json:"canCut"`
	Closed bool `json:"closed"`
	Score  int  `json:"score"`
}

type Stats struct {
	Players      [2]PlayerStats `json:"players"`
	StockCount   int            `json:"stockCount"`
	DiscardCount int            `json:"discardCount"`
	Round        int            `json:"round"`
	// Progress is the share of the deck no longer in the stock, 0-100.
	Progress float64 `json:"progress"`
}

func GameStats(r *Round, score GameScore) Stats {
	st := Stats{
		StockCount:   len(r.Stock),
		DiscardCount: len(r.Discard),
		Round:        score.Round + 1,
		Progress:     float64(DeckSize-len(r.Stock)) / DeckSize * 100,
	}
	a := r.Analyzer()
	for _, p := range []PlayerID{Player1, Player2} {
		an := a.Analyze(r.Hands[p.seat()])
		st.Players[p.seat()] = PlayerStats{
			Cards:  len(r.Hands[p.seat()]),
			Points: an.Points,
			Melds:  len(an.Melds),
			CanCut: an.CanCut,
			Closed: an.Closed,
			Score:  score.Total(p),
		}
	}
	return st
}
