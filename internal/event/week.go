package event

import "time"

// JST is the timezone anchoring the registration week. Japan observes no DST,
// so a fixed offset is exact and avoids a tzdata dependency.
var JST = time.FixedZone("JST", 9*60*60)

// Week is the Monday-aligned (JST) window used to reset the auto-registration
// cap. Start is inclusive, End exclusive.
type Week struct {
	Start time.Time
	End   time.Time
}

// WeekOf returns the registration week containing t.
func WeekOf(t time.Time) Week {
	local := t.In(JST)
	// time.Weekday puts Sunday at 0; shift so Monday is day 0.
	daysSinceMonday := (int(local.Weekday()) + 6) % 7
	y, m, d := local.AddDate(0, 0, -daysSinceMonday).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, JST)
	return Week{Start: start, End: start.AddDate(0, 0, 7)}
}

// Contains reports whether t falls inside the week window.
func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Counter tracks successful auto-registrations in the current registration
// week. It is seeded from the state store at the start of each cycle and
// discarded at the end of the run; it is never persisted in-process across
// cycles.
type Counter struct {
	Week  Week
	Count int
}

// NewCounter creates a counter for the given week seeded with the number of
// registrations the store already recorded inside that window.
func NewCounter(week Week, alreadyRecorded int) *Counter {
	return &Counter{Week: week, Count: alreadyRecorded}
}

// Increment records one successful registration. Only successes consume cap
// budget; the counter is never decremented.
func (c *Counter) Increment() {
	c.Count++
}

// Remaining returns how many registrations are left under the given cap.
func (c *Counter) Remaining(maxPerWeek int) int {
	if r := maxPerWeek - c.Count; r > 0 {
		return r
	}
	return 0
}
