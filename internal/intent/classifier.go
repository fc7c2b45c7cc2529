package intent

// Tier is the purchase-intent category derived from a session score.
type Tier string

const (
	HighIntentBuyer Tier = "High-Intent Buyer"
	PotentialBuyer  Tier = "Potential Buyer"
	LikelyGhost     Tier = "Likely Ghost"
)

// Score thresholds. A score at or above a threshold belongs to that tier.
const (
	HighIntentThreshold = 7
	PotentialThreshold  = 2
)

// Classify maps an accumulated session score to its tier.
func Classify(score int) Tier {
	switch {
	case score >= HighIntentThreshold:
		return HighIntentBuyer
	case score >= PotentialThreshold:
		return PotentialBuyer
	default:
		return LikelyGhost
	}
}

// IsGhost reports whether the score classifies as Likely Ghost.
func IsGhost(score int) bool {
	return Classify(score) == LikelyGhost
}
