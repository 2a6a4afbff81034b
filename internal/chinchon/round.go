package chinchon

import "fmt"

// PlayerID identifies a seat. The zero value means "nobody".
type PlayerID int

const (
	Player1 PlayerID = 1
	Player2 PlayerID = 2
)

func (p PlayerID) Valid() bool {
	return p == Player1 || p == Player2
}

// Other returns the opposing seat.
func (p PlayerID) Other() PlayerID {
	if p == Player1 {
		return Player2
	}
	return Player1
}

func (p PlayerID) seat() int {
	return int(p) - 1
}

// Phase of a round.
type Phase string

const (
	PhaseAwaitingDraw    Phase = "awaiting_draw"
	PhaseAwaitingDiscard Phase = "awaiting_discard"
	PhaseRoundOver       Phase = "round_over"
)

// Source is where a draw takes its card from.
type Source string

const (
	SourceStock   Source = "stock"
	SourceDiscard Source = "discard"
)

type ActionType string

const (
	ActionDraw    ActionType = "draw"
	ActionDiscard ActionType = "discard"
	ActionCut     ActionType = "cut"
)

// Move is one player action. Card is required for discard and optional for cut,
// where it names the card laid on the discard pile before the hand is shown.
type Move struct {
	Action ActionType `json:"action"`
	Player PlayerID   `json:"player"`
	Source Source     `json:"source,omitempty"`
	Card   *Card      `json:"card,omitempty"`
}

type EndReason string

const (
	EndCut EndReason = "cut"
	// EndExhausted ends a round without a winner once the stock runs out.
	EndExhausted EndReason = "exhausted"
)

// Outcome describes how a round finished. Winner is zero for an exhausted stock.
type Outcome struct {
	Reason EndReason `json:"reason"`
	Winner PlayerID  `json:"winner,omitempty"`
}

// Round is the table state between a deal and the end of the round. The discard pile
// top is its last element; the stock is drawn from the front.
type Round struct {
	Hands   [2][]Card `json:"hands"`
	Stock   []Card    `json:"stock"`
	Discard []Card    `json:"discard"`
	Turn    PlayerID  `json:"turn"`
	Phase   Phase     `json:"phase"`
	Outcome *Outcome  `json:"outcome,omitempty"`
	Rules   Rules     `json:"rules"`
	// Total is the number of cards dealt; conserved across every mutation.
	Total int `json:"total"`

	analyzer *Analyzer
}

// UseAnalyzer overrides the analyzer used for cut checks. Its rules should match r.Rules.
func (r *Round) UseAnalyzer(a *Analyzer) {
	r.analyzer = a
}

func (r *Round) Analyzer() *Analyzer {
	if r.analyzer == nil {
		r.analyzer = NewAnalyzer(r.Rules)
	}
	return r.analyzer
}

// Hand returns a copy of p's hand.
func (r *Round) Hand(p PlayerID) []Card {
	if !p.Valid() {
		return nil
	}
	return append([]Card(nil), r.Hands[p.seat()]...)
}

// TopDiscard returns the drawable discard card.
func (r *Round) TopDiscard() (Card, bool) {
	if len(r.Discard) == 0 {
		return Card{}, false
	}
	return r.Discard[len(r.Discard)-1], true
}

func (r *Round) Over() bool {
	return r.Phase == PhaseRoundOver
}

// Validate checks m against turn, phase and hand contents without changing anything.
func (r *Round) Validate(m Move) error {
	if r.Phase == PhaseRoundOver {
		return ErrRoundOver
	}
	if !m.Player.Valid() {
		return moveErr(KindInvalidMove, "unknown player %d", m.Player)
	}
	if m.Player != r.Turn {
		return ErrNotYourTurn
	}
	hand := r.Hands[m.Player.seat()]

	switch m.Action {
	case ActionDraw:
		if r.Phase != PhaseAwaitingDraw {
			return moveErr(KindWrongPhase, "cannot draw while %s", r.Phase)
		}
		switch m.Source {
		case SourceStock:
			if len(r.Stock) == 0 {
				return moveErr(KindEmptySource, "stock is empty")
			}
		case SourceDiscard:
			if len(r.Discard) == 0 {
				return moveErr(KindEmptySource, "discard pile is empty")
			}
		default:
			return moveErr(KindInvalidMove, "unknown source %q", m.Source)
		}
	case ActionDiscard:
		if r.Phase != PhaseAwaitingDiscard {
			return moveErr(KindWrongPhase, "cannot discard while %s", r.Phase)
		}
		if m.Card == nil {
			return ErrMissingCard
		}
		if IndexOf(hand, *m.Card) < 0 {
			return moveErr(KindCardNotInHand, "%s", m.Card.ID())
		}
	case ActionCut:
		shown := hand
		if m.Card != nil {
			if r.Phase != PhaseAwaitingDiscard {
				return moveErr(KindWrongPhase, "cut with a discard needs a drawn card")
			}
			if IndexOf(hand, *m.Card) < 0 {
				return moveErr(KindCardNotInHand, "%s", m.Card.ID())
			}
			shown = Without(hand, *m.Card)
		}
		if a := r.Analyzer().Analyze(shown); !a.CanCut {
			return moveErr(KindCannotCut, "%d points over the %d limit", a.Points, r.Rules.CutThreshold)
		}
	default:
		return moveErr(KindInvalidMove, "unknown action %q", m.Action)
	}
	return nil
}

// Apply validates and executes m. Outcome is non-nil when the move ended the round.
func (r *Round) Apply(m Move) (*Outcome, error) {
	switch m.Action {
	case ActionDraw:
		_, err := r.Draw(m.Player, m.Source)
		return nil, err
	case ActionDiscard:
		if m.Card == nil {
			return nil, r.Validate(m)
		}
		if err := r.DiscardCard(m.Player, *m.Card); err != nil {
			return nil, err
		}
		return r.Outcome, nil
	case ActionCut:
		return r.Cut(m.Player, m.Card)
	default:
		return nil, r.Validate(m)
	}
}

// Draw moves the stock front or the discard top into p's hand.
func (r *Round) Draw(p PlayerID, src Source) (Card, error) {
	if err := r.Validate(Move{Action: ActionDraw, Player: p, Source: src}); err != nil {
		return Card{}, err
	}
	var card Card
	if src == SourceStock {
		card = r.Stock[0]
		r.Stock = r.Stock[1:]
	} else {
		card = r.Discard[len(r.Discard)-1]
		r.Discard = r.Discard[:len(r.Discard)-1]
	}
	seat := p.seat()
	r.Hands[seat] = append(r.Hands[seat], card)
	r.Phase = PhaseAwaitingDiscard
	r.mustBeConsistent()
	return card, nil
}

// DiscardCard moves card from p's hand onto the discard pile and passes the turn. A discard
// that leaves the stock empty ends the round without a winner.
func (r *Round) DiscardCard(p PlayerID, card Card) error {
	if err := r.Validate(Move{Action: ActionDiscard, Player: p, Card: &card}); err != nil {
		return err
	}
	r.moveToDiscard(p, card)
	r.Turn = p.Other()
	r.Phase = PhaseAwaitingDraw
	if len(r.Stock) == 0 {
		r.Phase = PhaseRoundOver
		r.Outcome = &Outcome{Reason: EndExhausted}
	}
	r.mustBeConsistent()
	return nil
}

// Cut ends the round in p's favour. When card is given (only after drawing) it is laid on
// the discard pile first and the remaining hand must qualify.
func (r *Round) Cut(p PlayerID, card *Card) (*Outcome, error) {
	if err := r.Validate(Move{Action: ActionCut, Player: p, Card: card}); err != nil {
		return nil, err
	}
	if card != nil {
		r.moveToDiscard(p, *card)
	}
	r.Phase = PhaseRoundOver
	r.Outcome = &Outcome{Reason: EndCut, Winner: p}
	r.mustBeConsistent()
	return r.Outcome, nil
}

func (r *Round) moveToDiscard(p PlayerID, card Card) {
	seat := p.seat()
	r.Hands[seat] = Without(r.Hands[seat], card)
	r.Discard = append(r.Discard, card)
}

// Verify checks card conservation: Total distinct cards across hands, stock and discard.
func (r *Round) Verify() error {
	all := make([]Card, 0, r.Total)
	all = append(all, r.Hands[0]...)
	all = append(all, r.Hands[1]...)
	all = append(all, r.Stock...)
	all = append(all, r.Discard...)
	if len(all) != r.Total {
		return fmt.Errorf("%w: %d cards on the table, dealt %d", ErrInvariant, len(all), r.Total)
	}
	seen := make(map[Card]bool, len(all))
	for _, c := range all {
		if seen[c] {
			return fmt.Errorf("%w: card %s appears twice", ErrInvariant, c.ID())
		}
		seen[c] = true
	}
	return nil
}

func (r *Round) mustBeConsistent() {
	if err := r.Verify(); err != nil {
		panic(err)
	}
}

// View is what player p is allowed to see of the round.
type View struct {
	Player       PlayerID `json:"player"`
	Hand         []Card   `json:"hand"`
	TopDiscard   *Card    `json:"topDiscard,omitempty"`
	StockCount   int      `json:"stockCount"`
	DiscardCount int      `json:"discardCount"`
	OpponentSize int      `json:"opponentHandSize"`
	Turn         PlayerID `json:"turn"`
	Phase        Phase    `json:"phase"`
}

func (r *Round) View(p PlayerID) View {
	v := View{
		Player:       p,
		Hand:         r.Hand(p),
		StockCount:   len(r.Stock),
		DiscardCount: len(r.Discard),
		Turn:         r.Turn,
		Phase:        r.Phase,
	}
	if p.Valid() {
		v.OpponentSize = len(r.Hands[p.Other().seat()])
	}
	if top, ok := r.TopDiscard(); ok {
		v.TopDiscard = &top
	}
	return v
}
