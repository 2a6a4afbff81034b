package chinchon

const (
	DeckSize     = 40
	HandSize     = 7
	dealtCards   = 2*HandSize + 1
	TargetShort  = 50
	TargetLong   = 100
	DefaultCut   = 5
	DefaultBonus = 25
)

// Rules holds the tunable constants of a game. The zero value is not usable;
// start from DefaultRules.
type Rules struct {
	// CutThreshold is the highest deadwood total that still allows a cut.
	CutThreshold int `json:"cutThreshold"`
	// ChinchonBonus is added to the winner's delta for a closed hand.
	ChinchonBonus int `json:"chinchonBonus"`
	// SplitSets makes a four-of-a-kind also produce its 3-card subsets as candidates.
	SplitSets bool `json:"splitSets"`
}

func DefaultRules() Rules {
	return Rules{
		CutThreshold:  DefaultCut,
		ChinchonBonus: DefaultBonus,
	}
}
