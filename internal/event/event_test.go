package event

import (
	"testing"
	"time"
)

func TestIdentityKeyDeterministic(t *testing.T) {
	k1 := IdentityKey(PlatformConnpass, "12345")
	k2 := IdentityKey(PlatformConnpass, "12345")
	if k1 != k2 {
		t.Errorf("IdentityKey should be deterministic, got %s vs %s", k1, k2)
	}
	if len(k1) != 40 { // sha1 hex
		t.Errorf("expected key length of 40, got %d", len(k1))
	}
	if k1 == IdentityKey(PlatformPeatix, "12345") {
		t.Error("same native ID on different platforms must not collide")
	}
}

func TestFallbackIdentityKeyNormalizes(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	k1 := FallbackIdentityKey("AI Startup Meetup", start, "Osaka")
	k2 := FallbackIdentityKey("  ai startup meetup ", start, "OSAKA")
	if k1 != k2 {
		t.Error("fallback key should ignore case and surrounding whitespace")
	}

	k3 := FallbackIdentityKey("AI Startup Meetup", start.Add(time.Hour), "Osaka")
	if k1 == k3 {
		t.Error("different start times must produce different keys")
	}
}

func TestCompletenessScore(t *testing.T) {
	sparse := Event{Title: "Meetup"}
	full := Event{
		Title:           "Meetup",
		Description:     "An evening of talks",
		LocationCity:    "Osaka",
		Venue:           "Grand Front",
		StartTime:       time.Now(),
		Price:           "Free",
		RegistrationURL: "https://example.com/register",
		SourceURL:       "https://example.com",
	}
	if sparse.CompletenessScore() >= full.CompletenessScore() {
		t.Errorf("full event should outrank sparse: %d vs %d",
			full.CompletenessScore(), sparse.CompletenessScore())
	}

	other := full
	other.LocationCity = CityOther
	if other.CompletenessScore() != full.CompletenessScore()-1 {
		t.Error("the 'other' city bucket should not count as a resolved location")
	}
}

func TestWeekOfMondayAlignment(t *testing.T) {
	tests := []struct {
		name      string
		in        time.Time
		wantStart time.Time
	}{
		{
			name:      "wednesday maps to preceding monday",
			in:        time.Date(2026, 3, 11, 15, 0, 0, 0, JST), // Wed
			wantStart: time.Date(2026, 3, 9, 0, 0, 0, 0, JST),
		},
		{
			name:      "monday maps to itself",
			in:        time.Date(2026, 3, 9, 0, 0, 0, 0, JST),
			wantStart: time.Date(2026, 3, 9, 0, 0, 0, 0, JST),
		},
		{
			name:      "sunday maps to the monday six days back",
			in:        time.Date(2026, 3, 15, 23, 59, 0, 0, JST),
			wantStart: time.Date(2026, 3, 9, 0, 0, 0, 0, JST),
		},
		{
			name: "UTC sunday evening is already monday in JST",
			// 2026-03-08 16:00 UTC = 2026-03-09 01:00 JST (Monday)
			in:        time.Date(2026, 3, 8, 16, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, 3, 9, 0, 0, 0, 0, JST),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WeekOf(tt.in)
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("WeekOf(%v).Start = %v, want %v", tt.in, w.Start, tt.wantStart)
			}
			if !w.End.Equal(tt.wantStart.AddDate(0, 0, 7)) {
				t.Errorf("week should span exactly 7 days, got end %v", w.End)
			}
			if !w.Contains(tt.in) {
				t.Errorf("WeekOf(%v) should contain its input", tt.in)
			}
		})
	}
}

func TestCounter(t *testing.T) {
	w := WeekOf(time.Now())
	c := NewCounter(w, 2)

	if c.Remaining(3) != 1 {
		t.Errorf("expected 1 remaining, got %d", c.Remaining(3))
	}
	c.Increment()
	if c.Remaining(3) != 0 {
		t.Errorf("expected 0 remaining after increment, got %d", c.Remaining(3))
	}
	c.Increment()
	if c.Remaining(3) != 0 {
		t.Error("remaining must not go negative")
	}
}

func TestSortByPriority(t *testing.T) {
	early := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	late := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	events := []ScoredEvent{
		{Event: Event{IdentityKey: "c", StartTime: late}, Breakdown: Breakdown{Final: 0.90}},
		{Event: Event{IdentityKey: "a", StartTime: late}, Breakdown: Breakdown{Final: 0.95}},
		{Event: Event{IdentityKey: "b", StartTime: early}, Breakdown: Breakdown{Final: 0.90}},
		{Event: Event{IdentityKey: "d", StartTime: early}, Breakdown: Breakdown{Final: 0.50}},
	}

	SortByPriority(events)

	wantOrder := []string{"a", "b", "c", "d"}
	for i, want := range wantOrder {
		if events[i].IdentityKey != want {
			t.Fatalf("position %d: got %s, want %s", i, events[i].IdentityKey, want)
		}
	}
}

func TestSortByPriorityTieBreakIsDeterministic(t *testing.T) {
	same := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	a := ScoredEvent{Event: Event{IdentityKey: "aaa", StartTime: same}, Breakdown: Breakdown{Final: 0.9}}
	b := ScoredEvent{Event: Event{IdentityKey: "bbb", StartTime: same}, Breakdown: Breakdown{Final: 0.9}}

	forward := []ScoredEvent{a, b}
	backward := []ScoredEvent{b, a}
	SortByPriority(forward)
	SortByPriority(backward)

	if forward[0].IdentityKey != backward[0].IdentityKey {
		t.Error("equal score and start time must still order deterministically")
	}
}
