package workout

import (
	"math"
	"strings"
)

// MinItemXP is the floor every logged exercise earns, bodyweight included.
const MinItemXP = 10

// XPFor values one exercise line: max(10, ceil(sets * reps * max(weight, 1) / 10)).
// A zero, negative or NaN weight counts as 1. The result saturates at math.MaxInt64.
func XPFor(sets, reps int, weight float64) int64 {
	if !(weight >= 1) {
		weight = 1
	}
	volume := float64(sets) * float64(reps) * weight
	xp := math.Ceil(volume / 10)
	switch {
	case xp >= math.MaxInt64:
		return math.MaxInt64
	case math.IsNaN(xp) || xp < MinItemXP:
		return MinItemXP
	}
	return int64(xp)
}

// TotalXP sums item XP.
func TotalXP(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.XP
	}
	return total
}

// Price turns submitted lines into items carrying server-computed XP.
func Price(newItems []NewItem) []Item {
	items := make([]Item, 0, len(newItems))
	for _, ni := range newItems {
		weight := ni.Weight
		if weight < 0 {
			weight = 0
		}
		items = append(items, Item{
			Name:   strings.TrimSpace(ni.Name),
			Sets:   ni.Sets,
			Reps:   ni.Reps,
			Weight: weight,
			XP:     XPFor(ni.Sets, ni.Reps, weight),
		})
	}
	return items
}
