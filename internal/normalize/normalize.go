// Package normalize maps heterogeneous raw source records into the canonical
// Event shape: UTC start time, gazetteer-resolved city, free/paid flag and the
// deterministic identity key. Normalize is a pure function of its input; a
// record that cannot be normalized is reported as a NormalizationError and
// dropped by the caller, never failing the run.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
	"github.com/raptor-ai/event-scout/internal/source"
)

// NormalizationError reports a raw record missing a required field.
type NormalizationError struct {
	Field    string
	Platform event.Platform
	Title    string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalizing %s record %q: missing %s", e.Platform, e.Title, e.Field)
}

// startFormats is the ladder of date/time layouts tried against raw start
// text. Layouts without a zone are interpreted in JST, where the supported
// portals operate.
var startFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"2006-01-02",
	"Jan 2 2006 15:04",
	"Jan 2 2006",
}

// freeIndicators are the price-text fragments that mark an event as free.
var freeIndicators = []string{"free", "無料", "¥0", "no charge", "zero"}

// Normalizer converts raw records into canonical Events using a fixed city
// gazetteer.
type Normalizer struct {
	gazetteer []config.City
	now       func() time.Time
}

// New creates a Normalizer for the configured target cities.
func New(cities []config.City) *Normalizer {
	return &Normalizer{gazetteer: cities, now: time.Now}
}

// Normalize maps one raw record into a canonical Event.
func (n *Normalizer) Normalize(raw source.RawRecord) (event.Event, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return event.Event{}, &NormalizationError{Field: "title", Platform: raw.Platform}
	}

	start, ok := resolveStart(raw)
	if !ok {
		return event.Event{}, &NormalizationError{Field: "start_time", Platform: raw.Platform, Title: title}
	}

	city := n.ResolveCity(raw.Address, raw.Venue, title)

	e := event.Event{
		Title:           title,
		Description:     strings.TrimSpace(raw.Description),
		LocationCity:    city,
		Venue:           strings.TrimSpace(raw.Venue),
		StartTime:       start,
		IsFree:          IsFreePrice(raw.Price),
		Price:           strings.TrimSpace(raw.Price),
		RegistrationURL: raw.RegistrationURL,
		SourceURL:       raw.EventURL,
		Platform:        raw.Platform,
		FirstSeen:       n.now().UTC(),
	}

	if raw.NativeID != "" {
		e.IdentityKey = event.IdentityKey(raw.Platform, raw.NativeID)
	} else {
		e.IdentityKey = event.FallbackIdentityKey(title, start, city)
	}
	return e, nil
}

// ResolveCity maps free-text location hints to a target city by
// case-insensitive substring match against the gazetteer aliases. Unmatched
// locations map to "other" and are retained for scoring to penalize.
func (n *Normalizer) ResolveCity(hints ...string) string {
	haystack := strings.ToLower(strings.Join(hints, " "))
	for _, city := range n.gazetteer {
		for _, alias := range city.Aliases {
			if alias != "" && strings.Contains(haystack, strings.ToLower(alias)) {
				return city.Name
			}
		}
		if strings.Contains(haystack, strings.ToLower(city.Name)) {
			return city.Name
		}
	}
	return event.CityOther
}

// IsFreePrice reports whether price text marks a free event. Empty or unknown
// price text is not considered free: auto-registration must not spend budget
// on events whose price cannot be verified.
func IsFreePrice(price string) bool {
	p := strings.ToLower(strings.TrimSpace(price))
	if p == "" {
		return false
	}
	if p == "0" {
		return true
	}
	for _, indicator := range freeIndicators {
		if strings.Contains(p, indicator) {
			return true
		}
	}
	return false
}

// resolveStart picks the machine-readable start time when the adapter
// supplied one, otherwise parses the raw text against the format ladder.
func resolveStart(raw source.RawRecord) (time.Time, bool) {
	if !raw.StartTime.IsZero() {
		return raw.StartTime.UTC(), true
	}
	text := strings.TrimSpace(raw.StartText)
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range startFormats {
		if t, err := time.ParseInLocation(layout, text, event.JST); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
