package chinchon

import "math/bits"

// BruteForce tries every subset of candidate melds. It is exponential in the number of
// candidates, which stays small for 7-8 card hands.
type BruteForce struct{}

func (BruteForce) Solve(hand []Card, melds []Meld) Selection {
	masks := meldMasks(hand, melds)
	best := Selection{Melds: []int{}, Points: Points(hand)}
	bestClosed := len(hand) == 0

	total := uint64(1) << uint(len(masks))
	for subset := uint64(1); subset < total; subset++ {
		var used uint64
		valid := true
		for rest := subset; rest != 0; rest &= rest - 1 {
			i := bits.TrailingZeros64(rest)
			if used&masks[i] != 0 {
				valid = false
				break
			}
			used |= masks[i]
		}
		if !valid {
			continue
		}
		points := maskPoints(hand, used)
		closed := bits.OnesCount64(used) == len(hand)
		if points < best.Points || (points == best.Points && closed && !bestClosed) {
			best = Selection{Melds: subsetIndexes(subset), Points: points}
			bestClosed = closed
		}
	}
	return best
}

func subsetIndexes(subset uint64) []int {
	out := make([]int, 0, bits.OnesCount64(subset))
	for rest := subset; rest != 0; rest &= rest - 1 {
		out = append(out, bits.TrailingZeros64(rest))
	}
	return out
}

// Backtrack is a depth-first search over melds that prunes branches which cannot beat
// the best deadwood found so far. It returns the same minimum as BruteForce and scales
// to hands with many overlapping candidates.
type Backtrack struct{}

func (Backtrack) Solve(hand []Card, melds []Meld) Selection {
	masks := meldMasks(hand, melds)
	// saved[i] = points a meld removes from deadwood; used as an optimistic bound
	saved := make([]int, len(masks))
	for i, m := range masks {
		saved[i] = Points(hand) - maskPoints(hand, m)
	}
	suffix := make([]int, len(masks)+1)
	for i := len(masks) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + saved[i]
	}

	s := &backtrackState{
		hand:   hand,
		masks:  masks,
		saved:  saved,
		suffix: suffix,
		best:   Selection{Melds: []int{}, Points: Points(hand)},
	}
	s.search(0, 0, Points(hand), nil)
	return s.best
}

type backtrackState struct {
	hand   []Card
	masks  []uint64
	saved  []int
	suffix []int
	best   Selection
}

func (s *backtrackState) search(i int, used uint64, points int, chosen []int) {
	if points < s.best.Points {
		s.best = Selection{Melds: append([]int{}, chosen...), Points: points}
	}
	if i == len(s.masks) || points == 0 {
		return
	}
	if points-s.suffix[i] >= s.best.Points {
		return
	}
	if used&s.masks[i] == 0 {
		s.search(i+1, used|s.masks[i], points-s.saved[i], append(chosen, i))
	}
	s.search(i+1, used, points, chosen)
}
