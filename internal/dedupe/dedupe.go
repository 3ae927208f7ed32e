// Package dedupe merges normalized events across sources and across runs
// using the stable identity key.
package dedupe

import (
	"github.com/raptor-ai/event-scout/internal/event"
)

// Result partitions the unique events of one run against cross-run memory.
// Fresh events are absent from the caller's key set; Known events are present.
// The pipeline passes the decided-key set, so an event the gate never reached
// stays fresh and is reconsidered, while decided events are excluded from
// re-registration but may still surface in digests.
type Result struct {
	Fresh []event.Event
	Known []event.Event
}

// Dedupe collapses the input to one event per identity key and classifies
// each survivor against the previously-seen key set.
//
// Within a group the variant with the most non-empty attributes wins; on a
// completeness tie the latest-seen variant (later in input order) wins, so
// the most recent attributes are retained.
func Dedupe(events []event.Event, previouslySeen map[string]struct{}) Result {
	best := make(map[string]event.Event, len(events))
	order := make([]string, 0, len(events))

	for _, e := range events {
		current, exists := best[e.IdentityKey]
		if !exists {
			best[e.IdentityKey] = e
			order = append(order, e.IdentityKey)
			continue
		}
		// Latest-seen wins ties, so >= replaces.
		if e.CompletenessScore() >= current.CompletenessScore() {
			best[e.IdentityKey] = e
		}
	}

	result := Result{}
	for _, key := range order {
		e := best[key]
		if _, seen := previouslySeen[key]; seen {
			result.Known = append(result.Known, e)
		} else {
			result.Fresh = append(result.Fresh, e)
		}
	}
	return result
}
