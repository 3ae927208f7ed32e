// Package calendar renders registered events as iCalendar entries so digest
// emails can carry invites.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/raptor-ai/event-scout/internal/event"
)

// Events without a published end time are blocked out for two hours.
const defaultDuration = 2 * time.Hour

// GenerateICS generates an iCalendar (.ics) document for an event.
func GenerateICS(e event.Event) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//Raptor AI//event-scout//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	ics.WriteString("BEGIN:VEVENT\r\n")

	ics.WriteString(fmt.Sprintf("UID:%s@raptorai.co\r\n", e.IdentityKey))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(time.Now())))
	ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICSTime(e.StartTime)))
	ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICSTime(e.StartTime.Add(defaultDuration))))
	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(e.Title)))

	description := e.Description
	if e.RegistrationURL != "" {
		if description != "" {
			description += "\n\n"
		}
		description += "Registration: " + e.RegistrationURL
	}
	if description != "" {
		ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(description)))
	}

	location := e.Venue
	if e.LocationCity != "" && e.LocationCity != event.CityOther {
		if location != "" {
			location += ", "
		}
		location += e.LocationCity
	}
	if location != "" {
		ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(location)))
	}

	if e.SourceURL != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", e.SourceURL))
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

// GenerateBulkICS generates one calendar holding every event. Returns the
// empty string when there are no events.
func GenerateBulkICS(events []event.Event, calendarName string) string {
	if len(events) == 0 {
		return ""
	}

	var ics strings.Builder
	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//Raptor AI//event-scout//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	if calendarName != "" {
		ics.WriteString(fmt.Sprintf("X-WR-CALNAME:%s\r\n", escapeICS(calendarName)))
	}

	for _, e := range events {
		single := GenerateICS(e)
		start := strings.Index(single, "BEGIN:VEVENT")
		end := strings.Index(single, "END:VEVENT")
		if start < 0 || end < 0 {
			continue
		}
		ics.WriteString(single[start : end+len("END:VEVENT")+2])
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters according to RFC 5545
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
