package event

import "sort"

// Breakdown records the components behind a final relevance score so scoring
// stays auditable. Final is always the fixed weighted combination of the three
// components, never the semantic value alone.
type Breakdown struct {
	Keyword  float64 `json:"keyword_component"`
	Semantic float64 `json:"semantic_component"`
	Location float64 `json:"location_component"`
	Final    float64 `json:"final_score"`
}

// ScoredEvent is an Event plus its relevance score breakdown.
type ScoredEvent struct {
	Event
	Breakdown Breakdown `json:"score_breakdown"`

	// Degraded marks an event whose semantic component could not be obtained
	// and was defaulted to 0.0.
	Degraded bool `json:"degraded_scoring,omitempty"`
}

// SortByPriority sorts scored events into the deterministic gating order:
// final score descending, ties broken by earlier start time, then identity key.
// The registration cap is applied in this order, so under a binding cap the
// highest-value events are always preferred.
func SortByPriority(events []ScoredEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Breakdown.Final != b.Breakdown.Final {
			return a.Breakdown.Final > b.Breakdown.Final
		}
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.IdentityKey < b.IdentityKey
	})
}
