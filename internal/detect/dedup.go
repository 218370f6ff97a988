package detect

import "sort"

// Margin by which an overlapping detection's confidence must beat the kept
// one's before it replaces it. The hysteresis keeps near-tied detections from
// flapping between categories.
const replaceMargin = 0.2

// Deduplicate resolves overlapping raw detections into a disjoint sequence in
// ascending start order. Candidates are visited by (start, -confidence); a
// candidate overlapping the previously kept detection replaces it only when
// its confidence exceeds the kept one's by more than the margin.
func Deduplicate(detections []Detection) []Detection {
	if len(detections) <= 1 {
		return detections
	}

	sorted := make([]Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Detection, 0, len(sorted))
	lastEnd := 0
	for _, d := range sorted {
		if d.Start >= lastEnd {
			kept = append(kept, d)
			lastEnd = d.End
			continue
		}
		prev := &kept[len(kept)-1]
		if d.Confidence > prev.Confidence+replaceMargin {
			*prev = d
			lastEnd = d.End
		}
	}
	return kept
}
