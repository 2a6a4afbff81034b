package bot

import "chinchon-service/internal/chinchon"

// CardStatus is what the bot knows about a card it has seen leave the discard pile or land on it.
type CardStatus int

const (
	StatusUnknown   CardStatus = iota
	StatusDiscarded            // on the discard pile
	StatusOpponent             // taken by the opponent from the discard pile
)

// DefaultMemorySize bounds how many cards the bot remembers.
const DefaultMemorySize = 20

// forgetBatch is how many of the oldest entries are dropped once the memory is full.
const forgetBatch = 5

// Memory is a bounded record of observed cards, oldest first.
type Memory struct {
	size   int
	order  []chinchon.Card
	status map[chinchon.Card]CardStatus
}

func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &Memory{size: size, status: make(map[chinchon.Card]CardStatus)}
}

func (m *Memory) Reset() {
	m.order = m.order[:0]
	m.status = make(map[chinchon.Card]CardStatus)
}

// ObserveDiscard records a card placed on the discard pile by either player.
func (m *Memory) ObserveDiscard(c chinchon.Card) {
	m.remember(c, StatusDiscarded)
}

// ObservePickup records a card the opponent took from the discard pile.
func (m *Memory) ObservePickup(c chinchon.Card) {
	m.remember(c, StatusOpponent)
}

func (m *Memory) Status(c chinchon.Card) CardStatus {
	return m.status[c]
}

func (m *Memory) Len() int {
	return len(m.order)
}

func (m *Memory) remember(c chinchon.Card, st CardStatus) {
	if _, ok := m.status[c]; !ok {
		m.order = append(m.order, c)
	}
	m.status[c] = st
	if len(m.order) > m.size {
		drop := min(forgetBatch, len(m.order))
		for _, old := range m.order[:drop] {
			delete(m.status, old)
		}
		m.order = append(m.order[:0], m.order[drop:]...)
	}
}

// Feeds reports whether giving away c would help a set or run built around a card the
// opponent picked up.
func (m *Memory) Feeds(c chinchon.Card) bool {
	for card, st := range m.status {
		if st != StatusOpponent || card == c {
			continue
		}
		if card.Rank == c.Rank || chinchon.Adjacent(card, c) {
			return true
		}
	}
	return false
}
