package playtime

import (
	"math"

	"mastery-tracker/internal/constants"
)

const (
	SourceMatches    = "matches"
	SourceLevelBoost = "level_boost"
	SourceLevelOnly  = "level_only"
	SourceError      = "error"
)

type Estimate struct {
	Hours            int
	Source           string
	HoursFromMatches int
	HoursFromLevel   int
}

// Compute estimates hours played from the match count and summoner level,
// taking whichever signal is larger. fetchFailed marks that at least one of
// the two lookups failed upstream.
func Compute(matches, level int, fetchFailed bool) Estimate {
	matches = max(matches, 0)
	level = max(level, 0)

	e := Estimate{
		HoursFromMatches: round(float64(matches) * constants.HoursPerMatch),
		HoursFromLevel:   round(float64(level) * constants.HoursPerLevel),
	}
	e.Hours = max(e.HoursFromMatches, e.HoursFromLevel)

	switch {
	case matches == 0 && level > 0:
		e.Source = SourceLevelOnly
	case matches == 0 && level == 0 && fetchFailed:
		e.Source = SourceError
	case matches > 0 && level > 0 && e.HoursFromLevel > e.HoursFromMatches:
		e.Source = SourceLevelBoost
	default:
		e.Source = SourceMatches
	}
	return e
}

func round(v float64) int {
	return int(math.Round(v))
}
