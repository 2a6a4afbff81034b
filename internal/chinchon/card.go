package chinchon

import (
	"fmt"
	"strconv"
	"strings"
)

// Suit is one of the four Spanish suits.
type Suit uint8

const (
	Oros Suit = iota
	Copas
	Espadas
	Bastos
)

// Suits lists the suits in canonical deck order.
var Suits = [...]Suit{Oros, Copas, Espadas, Bastos}

var suitNames = [...]string{"oros", "copas", "espadas", "bastos"}

func (s Suit) String() string {
	if int(s) < len(suitNames) {
		return suitNames[s]
	}
	return "suit(" + strconv.Itoa(int(s)) + ")"
}

// ParseSuit accepts the suit name, case-insensitive.
func ParseSuit(name string) (Suit, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range suitNames {
		if n == name {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

// Rank is the printed face value: 1-7, then 10 (sota), 11 (caballo), 12 (rey).
// There are no 8s or 9s in the 40-card deck.
type Rank uint8

// Ranks lists the ranks in run order. Consecutive entries are adjacent in a run,
// so 7 is followed directly by 10.
var Ranks = [...]Rank{1, 2, 3, 4, 5, 6, 7, 10, 11, 12}

// order returns the position of r in Ranks, or -1 for a rank outside the deck.
func (r Rank) order() int {
	switch {
	case r >= 1 && r <= 7:
		return int(r) - 1
	case r >= 10 && r <= 12:
		return int(r) - 3
	default:
		return -1
	}
}

// Valid reports whether r exists in the deck.
func (r Rank) Valid() bool {
	return r.order() >= 0
}

// Points is the deadwood value of the rank: face value up to 7, figures are worth 10.
func (r Rank) Points() int {
	if r >= 10 {
		return 10
	}
	return int(r)
}

// Card is an immutable (suit, rank) pair. A 40-card deck never repeats a pair,
// so the pair is the card identity.
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard validates suit and rank.
func NewCard(suit Suit, rank Rank) (Card, error) {
	if int(suit) >= len(Suits) {
		return Card{}, fmt.Errorf("invalid suit %d", suit)
	}
	if !rank.Valid() {
		return Card{}, fmt.Errorf("invalid rank %d", rank)
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// Points is the card's deadwood value.
func (c Card) Points() int {
	return c.Rank.Points()
}

// ID is the stable identifier "<rank>-<suit>", e.g. "11-copas".
func (c Card) ID() string {
	return strconv.Itoa(int(c.Rank)) + "-" + c.Suit.String()
}

func (c Card) String() string {
	return c.ID()
}

// index is the card position in the canonical deck, 0..39, or -1 for a card not in it.
func (c Card) index() int {
	o := c.Rank.order()
	if o < 0 || int(c.Suit) >= len(Suits) {
		return -1
	}
	return int(c.Suit)*len(Ranks) + o
}

// ParseCard reads a card ID as produced by Card.ID.
func ParseCard(id string) (Card, error) {
	parts := strings.SplitN(strings.TrimSpace(id), "-", 2)
	if len(parts) != 2 {
		return Card{}, fmt.Errorf("invalid card id %q", id)
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n <= 0 || n > 12 {
		return Card{}, fmt.Errorf("invalid card rank in %q", id)
	}
	suit, err := ParseSuit(parts[1])
	if err != nil {
		return Card{}, err
	}
	return NewCard(suit, Rank(n))
}

// MustParseCards parses a list of card IDs and panics on the first invalid one.
// Intended for fixtures.
func MustParseCards(ids ...string) []Card {
	cards := make([]Card, 0, len(ids))
	for _, id := range ids {
		c, err := ParseCard(id)
		if err != nil {
			panic(err)
		}
		cards = append(cards, c)
	}
	return cards
}

func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.ID()), nil
}

func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Points sums the deadwood value of cards.
func Points(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.Points()
	}
	return total
}

// IndexOf returns the position of card in cards, or -1.
func IndexOf(cards []Card, card Card) int {
	for i, c := range cards {
		if c == card {
			return i
		}
	}
	return -1
}

// Without returns a copy of cards with the first occurrence of card removed.
func Without(cards []Card, card Card) []Card {
	out := make([]Card, 0, len(cards))
	removed := false
	for _, c := range cards {
		if !removed && c == card {
			removed = true
			continue
		}
		out = append(out, c)
	}
	return out
}
