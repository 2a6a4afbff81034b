package chinchon

import (
	"errors"
	"fmt"

	"chinchon-service/pkg/utils/random"
)

// ErrInsufficientCards is matched by *InsufficientCardsError.
var ErrInsufficientCards = errors.New("insufficient cards to deal")

// InsufficientCardsError is returned by Deal for decks shorter than two hands plus the
// first discard.
type InsufficientCardsError struct {
	Have int
	Need int
}

func (e *InsufficientCardsError) Error() string {
	return fmt.Sprintf("%v: have %d, need %d", ErrInsufficientCards, e.Have, e.Need)
}

func (e *InsufficientCardsError) Is(target error) bool {
	return target == ErrInsufficientCards
}

// BuildDeck returns the 40 canonical cards, suit-major in rank order.
func BuildDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shuffle returns a uniformly permuted copy of deck (Fisher-Yates).
// The input slice is left untouched.
func Shuffle(deck []Card, src random.Source) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	for i := len(out) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Deal splits a shuffled deck into a fresh round: [0,7) player one, [7,14) player two,
// card 14 opens the discard pile and the rest is the stock. Player one draws first.
func Deal(shuffled []Card, rules Rules) (*Round, error) {
	if len(shuffled) < dealtCards {
		return nil, &InsufficientCardsError{Have: len(shuffled), Need: dealtCards}
	}
	r := &Round{
		Hands: [2][]Card{
			append([]Card(nil), shuffled[0:HandSize]...),
			append([]Card(nil), shuffled[HandSize:2*HandSize]...),
		},
		Discard: []Card{shuffled[2*HandSize]},
		Stock:   append([]Card(nil), shuffled[dealtCards:]...),
		Turn:    Player1,
		Phase:   PhaseAwaitingDraw,
		Rules:   rules,
		Total:   len(shuffled),
	}
	r.mustBeConsistent()
	return r, nil
}

// NewRound builds, checks, shuffles and deals a full deck.
func NewRound(rules Rules, src random.Source) *Round {
	deck := BuildDeck()
	if err := checkDistinct(deck, DeckSize); err != nil {
		panic(err)
	}
	r, err := Deal(Shuffle(deck, src), rules)
	if err != nil {
		// unreachable with a 40-card deck
		panic(err)
	}
	return r
}

func checkDistinct(cards []Card, want int) error {
	if len(cards) != want {
		return fmt.Errorf("%w: %d cards, want %d", ErrInvariant, len(cards), want)
	}
	var seen [DeckSize]bool
	for _, c := range cards {
		idx := c.index()
		if idx < 0 || idx >= DeckSize {
			return fmt.Errorf("%w: invalid card %v", ErrInvariant, c)
		}
		if seen[idx] {
			return fmt.Errorf("%w: duplicate card %v", ErrInvariant, c)
		}
		seen[idx] = true
	}
	return nil
}
