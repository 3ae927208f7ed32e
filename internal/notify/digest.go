// Package notify builds the end-of-cycle digest and delivers it over the
// configured channels (Telegram, email, Twitter, or a dry-run printer).
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/raptor-ai/event-scout/internal/event"
)

// Item is one digest line: a scored event plus what the gatekeeper did
// with it.
type Item struct {
	Event        event.ScoredEvent
	Registered   bool
	Reason       event.Reason
	Confirmation map[string]string
}

// Digest is the payload handed to every channel.
type Digest struct {
	GeneratedAt     time.Time
	Week            event.Week
	Items           []Item
	NewCount        int
	RegisteredCount int
	FailedAttempts  int
	CapUsed         int
	CapMax          int
	Degraded        bool
}

// Build assembles a digest from the cycle's scored events and decisions.
// Scored events must already be in priority order; only the top N become
// digest items, but the counts cover the whole cycle.
func Build(week event.Week, scored []event.ScoredEvent, decisions []event.Decision, topN, capUsed, capMax int) *Digest {
	byKey := make(map[string]event.Decision, len(decisions))
	for _, d := range decisions {
		byKey[d.IdentityKey] = d
	}

	d := &Digest{
		GeneratedAt: time.Now().UTC(),
		Week:        week,
		NewCount:    len(scored),
		CapUsed:     capUsed,
		CapMax:      capMax,
	}

	for _, se := range scored {
		if se.Degraded {
			d.Degraded = true
		}
		dec, decided := byKey[se.IdentityKey]
		if decided {
			if dec.Registered() {
				d.RegisteredCount++
			} else if dec.Eligible && dec.Outcome != nil && !dec.Outcome.Success {
				d.FailedAttempts++
			}
		}

		if len(d.Items) >= topN {
			continue
		}
		item := Item{Event: se}
		if decided {
			item.Reason = dec.Reason
			item.Registered = dec.Registered()
			if dec.Outcome != nil {
				item.Confirmation = dec.Outcome.Confirmation
			}
		}
		d.Items = append(d.Items, item)
	}
	return d
}

// FormatHTML renders the digest for Telegram (HTML parse mode).
func FormatHTML(d *Digest) string {
	if len(d.Items) == 0 {
		return "No new events this cycle."
	}

	var msg strings.Builder
	msg.WriteString("🦖 <b>Event Scout Digest</b>\n\n")
	msg.WriteString(fmt.Sprintf("🗓 Week of %s • %d new event%s\n",
		d.Week.Start.Format("Jan 2"), d.NewCount, pluralize(d.NewCount)))
	msg.WriteString(fmt.Sprintf("✅ Registered %d • budget %d/%d\n\n",
		d.RegisteredCount, d.CapUsed, d.CapMax))

	for _, item := range d.Items {
		e := item.Event
		msg.WriteString(fmt.Sprintf("• <b>%s</b> (%.2f)\n", escapeHTML(e.Title), e.Breakdown.Final))
		msg.WriteString(fmt.Sprintf("  📍 %s • %s", e.LocationCity,
			e.StartTime.In(event.JST).Format("Jan 2 15:04")))
		if e.Price != "" {
			msg.WriteString(" • " + escapeHTML(e.Price))
		}
		msg.WriteString("\n")
		msg.WriteString("  " + statusLine(item) + "\n")
		if e.SourceURL != "" {
			msg.WriteString(fmt.Sprintf("  🔗 %s\n", e.SourceURL))
		}
	}

	if d.FailedAttempts > 0 {
		msg.WriteString(fmt.Sprintf("\n⚠️ %d registration attempt%s failed\n",
			d.FailedAttempts, pluralize(d.FailedAttempts)))
	}
	if d.Degraded {
		msg.WriteString("\n⚠️ Semantic scoring was unavailable for some events; scores may be low.\n")
	}
	return msg.String()
}

// FormatPlain renders the digest without markup, for email bodies and logs.
func FormatPlain(d *Digest) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("Event Scout Digest - week of %s\n", d.Week.Start.Format("2006-01-02")))
	msg.WriteString(fmt.Sprintf("%d new event(s), %d registered, budget %d/%d\n\n",
		d.NewCount, d.RegisteredCount, d.CapUsed, d.CapMax))

	for _, item := range d.Items {
		e := item.Event
		msg.WriteString(fmt.Sprintf("* %s (score %.2f)\n", e.Title, e.Breakdown.Final))
		msg.WriteString(fmt.Sprintf("  %s, %s", e.LocationCity,
			e.StartTime.In(event.JST).Format("Jan 2 2006 15:04 MST")))
		if e.Price != "" {
			msg.WriteString(", " + e.Price)
		}
		msg.WriteString("\n  " + statusLine(item) + "\n")
		if e.SourceURL != "" {
			msg.WriteString("  " + e.SourceURL + "\n")
		}
		msg.WriteString("\n")
	}

	if d.FailedAttempts > 0 {
		msg.WriteString(fmt.Sprintf("%d registration attempt(s) failed.\n", d.FailedAttempts))
	}
	if d.Degraded {
		msg.WriteString("Semantic scoring was degraded for some events.\n")
	}
	return msg.String()
}

// Summary is the one-line version recorded in the store and logged.
func Summary(d *Digest) string {
	return fmt.Sprintf("%d new, %d registered, %d failed, budget %d/%d",
		d.NewCount, d.RegisteredCount, d.FailedAttempts, d.CapUsed, d.CapMax)
}

func statusLine(item Item) string {
	switch {
	case item.Registered:
		if at, ok := item.Confirmation["registered_at"]; ok {
			return "✅ registered (" + at + ")"
		}
		return "✅ registered"
	case item.Reason == event.ReasonEligible:
		return "❌ registration failed"
	case item.Reason == event.ReasonCapReached:
		return "⏸ weekly budget reached"
	case item.Reason == event.ReasonNotFree:
		return "💴 paid event, skipped"
	case item.Reason == event.ReasonAlreadyRegistered:
		return "↩ already registered"
	case item.Reason == event.ReasonBelowThreshold:
		return "· below threshold"
	default:
		return "· not considered"
	}
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
