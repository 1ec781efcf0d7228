// Package trip implements the trip lifecycle (start/end stamping) and
// the per-vehicle timing statistics derived from finished trips.
package trip

import (
	"time"

	"github.com/merobus/merobus-backend/internal/model"
)

// Classify maps a finished trip's departure and arrival deviations to
// one of the five timing categories. depDiff is actual minus scheduled
// departure, arrDiff actual minus scheduled arrival. The four strict
// sign combinations name their category; anything touching zero on
// either side falls through to onTime.
func Classify(depDiff, arrDiff time.Duration) string {
	switch {
	case depDiff < 0 && arrDiff < 0:
		return model.CategoryEarly
	case depDiff > 0 && arrDiff > 0:
		return model.CategoryLate
	case depDiff < 0 && arrDiff > 0:
		return model.CategoryEarlyStartLateArrival
	case depDiff > 0 && arrDiff < 0:
		return model.CategoryLateStartEarlyArrival
	default:
		return model.CategoryOnTime
	}
}

// Dominant returns the category with the highest counter. Categories
// are scanned in model.TimingCategories order and a later category
// must strictly exceed the current best to win, so ties keep the
// earlier entry.
func Dominant(p model.VehiclePerformance) string {
	best := model.TimingCategories[0]
	bestCount := p.Count(best)
	for _, c := range model.TimingCategories[1:] {
		if n := p.Count(c); n > bestCount {
			best = c
			bestCount = n
		}
	}
	return best
}
