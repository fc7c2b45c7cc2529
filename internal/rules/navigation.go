package rules

import (
	"time"

	"github.com/MikeSquared-Agency/ghostrev/internal/session"
)

const (
	// SkipVisits is how many consecutive page loads form a skip window.
	SkipVisits = 3
	// SkipWindow is the span those loads must fit inside.
	SkipWindow = 20 * time.Second
)

// RapidSkip reports whether the newest SkipVisits entries of history were
// loaded within SkipWindow of each other.
func RapidSkip(history []session.Visit) bool {
	if len(history) < SkipVisits {
		return false
	}
	recent := history[len(history)-SkipVisits:]
	return recent[SkipVisits-1].Time-recent[0].Time < SkipWindow.Milliseconds()
}
