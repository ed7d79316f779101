package services

import (
	"math"
	"time"
)

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type score struct {
	Obtained   float64
	Total      float64
	Percentage float64
	Passed     bool
}

// computeScore derives the aggregate from summed marks. total must be positive.
func computeScore(obtained, total, passing float64) score {
	return score{
		Obtained:   obtained,
		Total:      total,
		Percentage: round2(obtained / total * 100),
		Passed:     obtained >= passing,
	}
}

// elapsedSeconds floors the duration between start and end to whole seconds.
func elapsedSeconds(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
