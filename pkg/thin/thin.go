// Package thin downsamples an ordered sequence to about a target count,
// always keeping both endpoints.
package thin

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/stronnag/ges2wpmz/pkg/types"
)

// Indices selects which of m items survive thinning to target. It returns
// nil when no thinning applies (target <= 1 or target >= m).
func Indices(m, target int) []int {
	if target <= 1 || target >= m {
		return nil
	}
	keep := make(map[int]struct{}, target+2)
	for i := 0; i < target; i++ {
		ideal := float64(i) * float64(m-1) / float64(target-1)
		idx := int(math.Round(ideal))
		idx = max(0, min(m-1, idx))
		keep[idx] = struct{}{}
	}
	keep[0] = struct{}{}
	keep[m-1] = struct{}{}

	res := make([]int, 0, len(keep))
	for k := range keep {
		res = append(res, k)
	}
	sort.Ints(res)
	return res
}

// Keyframes returns items thinned to approximately target. When thinning
// does not apply the input slice itself is returned.
func Keyframes[T any](items []T, target int, progress types.Progress) []T {
	m := len(items)
	idx := Indices(m, target)
	if idx == nil {
		if target != 0 {
			progress.Say("Invalid target count (%d). No thinning applied.", target)
		}
		return items
	}
	progress.Say("Thinning %d waypoints to approximately %d...", m, target)
	res := make([]T, 0, len(idx))
	for _, j := range idx {
		res = append(res, items[j])
	}
	progress.Say("Thinning complete: %d -> %d waypoints.", m, len(res))
	log.Debug().Int("original", m).Int("target", target).Int("actual", len(res)).Msg("Waypoint thinning")
	return res
}
