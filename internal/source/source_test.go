package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
)

func TestFromConfig(t *testing.T) {
	sources, err := FromConfig([]config.SourceConfig{
		{Type: "connpass"},
		{Type: "doorkeeper"},
		{Type: "peatix"},
	})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if len(sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(sources))
	}

	if _, err := FromConfig([]config.SourceConfig{{Type: "myspace"}}); err == nil {
		t.Error("unknown source type should error")
	}
}

func TestConnpassFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/event/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("keyword"); got != "Osaka" {
			t.Errorf("expected keyword=Osaka, got %q", got)
		}
		fmt.Fprint(w, `{
			"events": [
				{
					"event_id": 9001,
					"title": "AI Startup Meetup in Osaka",
					"catch": "Networking for founders",
					"description": "An evening of AI talks and networking.",
					"started_at": "2026-04-10T19:00:00+09:00",
					"place": "Grand Front Osaka",
					"address": "Osaka-shi, Kita-ku",
					"event_url": "https://connpass.com/event/9001/",
					"fee": 0
				},
				{
					"event_id": 9002,
					"title": "Paid Workshop",
					"started_at": "2026-04-11T10:00:00+09:00",
					"event_url": "https://connpass.com/event/9002/",
					"fee": 3000
				}
			]
		}`)
	}))
	defer srv.Close()

	c := NewConnpass(config.SourceConfig{BaseURL: srv.URL})
	records, err := c.Fetch(context.Background(), "Osaka")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.NativeID != "9001" {
		t.Errorf("expected native ID 9001, got %q", first.NativeID)
	}
	if first.Platform != event.PlatformConnpass {
		t.Errorf("expected connpass platform, got %s", first.Platform)
	}
	if first.Price != "Free" {
		t.Errorf("fee 0 should map to Free, got %q", first.Price)
	}
	want := time.Date(2026, 4, 10, 10, 0, 0, 0, time.UTC)
	if !first.StartTime.UTC().Equal(want) {
		t.Errorf("expected start %v, got %v", want, first.StartTime.UTC())
	}
	if first.Description != "An evening of AI talks and networking." {
		t.Errorf("description should prefer the long field, got %q", first.Description)
	}

	if records[1].Price != "¥3000" {
		t.Errorf("paid fee should map to yen text, got %q", records[1].Price)
	}
}

func TestConnpassFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewConnpass(config.SourceConfig{BaseURL: srv.URL})
	if _, err := c.Fetch(context.Background(), "Osaka"); err == nil {
		t.Error("non-200 response should surface as an error")
	}
}

func TestDoorkeeperFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Kobe" {
			t.Errorf("expected q=Kobe, got %q", got)
		}
		fmt.Fprint(w, `[
			{"event": {
				"id": 77,
				"title": "Kobe Startup Night",
				"starts_at": "2026-05-01T10:00:00.000Z",
				"venue_name": "Kobe Startup Hub",
				"address": "Chuo-ku, Kobe",
				"public_url": "https://kobe-startup.doorkeeper.jp/events/77"
			}}
		]`)
	}))
	defer srv.Close()

	d := NewDoorkeeper(config.SourceConfig{BaseURL: srv.URL})
	records, err := d.Fetch(context.Background(), "Kobe")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.NativeID != "77" {
		t.Errorf("expected native ID 77, got %q", rec.NativeID)
	}
	if rec.Platform != event.PlatformDoorkeeper {
		t.Errorf("expected doorkeeper platform, got %s", rec.Platform)
	}
	if rec.Price != "" {
		t.Errorf("doorkeeper list API has no price, got %q", rec.Price)
	}
	if rec.StartTime.IsZero() {
		t.Error("starts_at should parse")
	}
}

func TestDoorkeeperFetchRespectsCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"event": {"id": 1, "title": "One", "starts_at": "2026-05-01T10:00:00Z"}},
			{"event": {"id": 2, "title": "Two", "starts_at": "2026-05-02T10:00:00Z"}},
			{"event": {"id": 3, "title": "Three", "starts_at": "2026-05-03T10:00:00Z"}}
		]`)
	}))
	defer srv.Close()

	d := NewDoorkeeper(config.SourceConfig{BaseURL: srv.URL, Count: 2})
	records, err := d.Fetch(context.Background(), "Kyoto")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("count cap should apply, got %d records", len(records))
	}
}
