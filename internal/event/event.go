// Package event defines the canonical event model shared by every pipeline stage:
// the normalized Event, its deterministic identity key, the scored and decided
// forms, and the Monday-aligned registration week.
package event

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"time"
)

// Platform identifies the source platform an event was discovered on.
type Platform string

const (
	PlatformConnpass   Platform = "connpass"
	PlatformPeatix     Platform = "peatix"
	PlatformMeetup     Platform = "meetup"
	PlatformDoorkeeper Platform = "doorkeeper"
	PlatformEventbrite Platform = "eventbrite"
	PlatformJetro      Platform = "jetro"
	PlatformChamber    Platform = "chamber"
)

// CityOther is the location bucket for events outside every target city.
// Such events are kept and penalized at scoring rather than dropped.
const CityOther = "other"

// Event is the canonical representation of a discovered event.
//
// Two Events with equal IdentityKey are the same real-world event; the
// most-recently-seen attributes win when they are merged.
type Event struct {
	IdentityKey     string    `json:"identity_key"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	LocationCity    string    `json:"location_city"` // target city or "other"
	Venue           string    `json:"venue,omitempty"`
	StartTime       time.Time `json:"start_time"` // always UTC
	IsFree          bool      `json:"is_free"`
	Price           string    `json:"price,omitempty"` // raw price text, kept for audit
	RegistrationURL string    `json:"registration_url,omitempty"`
	SourceURL       string    `json:"source_url,omitempty"`
	Platform        Platform  `json:"source_platform"`
	FirstSeen       time.Time `json:"first_seen"`
}

// IdentityKey derives the deterministic identity key from a platform and its
// native event ID. Stable across runs for the same platform event.
func IdentityKey(platform Platform, nativeID string) string {
	h := sha1.New()
	h.Write([]byte(string(platform) + "|" + strings.TrimSpace(nativeID)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// FallbackIdentityKey derives an identity key for sources that expose no native
// ID, from the normalized (title, start time, location) tuple. Title and
// location are lowercased and trimmed so cosmetic changes don't fork the key.
func FallbackIdentityKey(title string, start time.Time, location string) string {
	normTitle := strings.ToLower(strings.TrimSpace(title))
	normLoc := strings.ToLower(strings.TrimSpace(location))
	h := sha1.New()
	h.Write([]byte(normTitle + "|" + start.UTC().Format(time.RFC3339) + "|" + normLoc))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// CompletenessScore counts the non-empty attributes of an event. The
// deduplicator keeps the most complete variant within an identity-key group.
func (e Event) CompletenessScore() int {
	n := 0
	for _, s := range []string{e.Title, e.Description, e.Venue, e.Price, e.RegistrationURL, e.SourceURL} {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	if e.LocationCity != "" && e.LocationCity != CityOther {
		n++
	}
	if !e.StartTime.IsZero() {
		n++
	}
	return n
}
