package chinchon

import "sort"

// MeldKind distinguishes sets from runs.
type MeldKind string

const (
	MeldSet MeldKind = "set"
	MeldRun MeldKind = "run"
)

// Meld is a scoring group: 3-4 cards of one rank, or 3+ consecutive cards of one suit.
type Meld struct {
	Kind  MeldKind `json:"kind"`
	Cards []Card   `json:"cards"`
}

// Name is the table name of the meld: trio, cuarteto or escalera.
func (m Meld) Name() string {
	if m.Kind == MeldRun {
		return "escalera"
	}
	if len(m.Cards) == 4 {
		return "cuarteto"
	}
	return "trio"
}

// Valid checks the meld shape.
func (m Meld) Valid() bool {
	switch m.Kind {
	case MeldSet:
		return isSet(m.Cards)
	case MeldRun:
		return isRun(m.Cards)
	default:
		return false
	}
}

func isSet(cards []Card) bool {
	if len(cards) < 3 || len(cards) > 4 {
		return false
	}
	seen := make(map[Suit]bool, len(cards))
	for _, c := range cards {
		if c.Rank != cards[0].Rank || seen[c.Suit] {
			return false
		}
		seen[c.Suit] = true
	}
	return true
}

func isRun(cards []Card) bool {
	if len(cards) < 3 {
		return false
	}
	sorted := append([]Card(nil), cards...)
	sortByRank(sorted)
	for i, c := range sorted {
		if c.Suit != sorted[0].Suit || !c.Rank.Valid() {
			return false
		}
		if i > 0 && c.Rank.order() != sorted[i-1].Rank.order()+1 {
			return false
		}
	}
	return true
}

// Adjacent reports whether a and b are next to each other in a run.
func Adjacent(a, b Card) bool {
	if a.Suit != b.Suit || !a.Rank.Valid() || !b.Rank.Valid() {
		return false
	}
	d := a.Rank.order() - b.Rank.order()
	return d == 1 || d == -1
}

func sortByRank(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Rank.order() < cards[j].Rank.order()
	})
}

// FindMelds returns every candidate meld in hand: sets first, then runs.
func FindMelds(hand []Card, rules Rules) []Meld {
	melds := FindSets(hand)
	if rules.SplitSets {
		melds = append(melds, splitQuads(melds)...)
	}
	return append(melds, FindRuns(hand)...)
}

// FindSets emits one meld per rank holding three or more cards. A rank with four
// cards yields a single four-card meld.
func FindSets(hand []Card) []Meld {
	byRank := make(map[Rank][]Card)
	for _, c := range hand {
		byRank[c.Rank] = append(byRank[c.Rank], c)
	}
	var sets []Meld
	for _, r := range Ranks {
		cards := dedupSuits(byRank[r])
		if len(cards) < 3 {
			continue
		}
		sets = append(sets, Meld{Kind: MeldSet, Cards: cards})
	}
	return sets
}

func dedupSuits(cards []Card) []Card {
	out := make([]Card, 0, len(cards))
	var seen [len(Suits)]bool
	for _, c := range cards {
		if int(c.Suit) >= len(seen) || seen[c.Suit] {
			continue
		}
		seen[c.Suit] = true
		out = append(out, c)
	}
	return out
}

func splitQuads(sets []Meld) []Meld {
	var out []Meld
	for _, s := range sets {
		if len(s.Cards) != 4 {
			continue
		}
		for skip := range s.Cards {
			sub := make([]Card, 0, 3)
			for i, c := range s.Cards {
				if i != skip {
					sub = append(sub, c)
				}
			}
			out = append(out, Meld{Kind: MeldSet, Cards: sub})
		}
	}
	return out
}

// FindRuns emits every window of three or more consecutive same-suit cards,
// maximal or not, so the optimizer can choose among overlapping runs.
func FindRuns(hand []Card) []Meld {
	bySuit := make(map[Suit][]Card)
	for _, c := range hand {
		if !c.Rank.Valid() {
			continue
		}
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
	}
	var runs []Meld
	for _, s := range Suits {
		cards := bySuit[s]
		if len(cards) < 3 {
			continue
		}
		sortByRank(cards)
		cards = dedupRanks(cards)
		for _, seg := range segments(cards) {
			for start := 0; start+3 <= len(seg); start++ {
				for end := start + 3; end <= len(seg); end++ {
					runs = append(runs, Meld{Kind: MeldRun, Cards: append([]Card(nil), seg[start:end]...)})
				}
			}
		}
	}
	return runs
}

// dedupRanks drops repeated ranks from a rank-sorted single-suit slice.
func dedupRanks(sorted []Card) []Card {
	out := make([]Card, 0, len(sorted))
	for i, c := range sorted {
		if i > 0 && c.Rank == sorted[i-1].Rank {
			continue
		}
		out = append(out, c)
	}
	return out
}

// segments splits a rank-sorted single-suit slice into gap-free stretches.
func segments(sorted []Card) [][]Card {
	var segs [][]Card
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].Rank.order() != sorted[i-1].Rank.order()+1 {
			segs = append(segs, sorted[start:i])
			start = i
		}
	}
	return segs
}
