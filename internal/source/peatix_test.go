package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raptor-ai/event-scout/internal/config"
)

const peatixJSONLDPage = `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">
[
  {
    "@type": "Event",
    "name": "Kyoto AI Hackathon",
    "description": "Two-day hackathon for AI builders.",
    "startDate": "2026-06-20T09:00:00+09:00",
    "url": "https://peatix.com/event/4111222/view",
    "location": {
      "name": "Kyoto Research Park",
      "address": {"streetAddress": "134 Chudoji", "addressLocality": "Kyoto"}
    },
    "offers": {"price": 0, "priceCurrency": "JPY"}
  },
  {
    "@type": "Event",
    "name": "Wine Tasting Evening",
    "startDate": "2026-06-21T18:00:00+09:00",
    "url": "https://peatix.com/event/4111333/view",
    "location": {"name": "Kyoto Station Hall", "address": "Shimogyo-ku, Kyoto"},
    "offers": {"price": 5000, "priceCurrency": "JPY"}
  },
  {"@type": "Organization", "name": "Peatix"}
]
</script>
</head><body></body></html>`

const peatixCardPage = `<!DOCTYPE html>
<html><body>
<ul>
  <li class="event-list__item">
    <a href="/event/4222333/view"></a>
    <h3 class="event-thumb_name">Osaka Founders Coffee</h3>
    <time class="event-thumb_date">Jun 25 2026</time>
    <span class="event-thumb_venue">Umeda Sky Building</span>
    <span class="event-thumb_price">Free</span>
  </li>
</ul>
</body></html>`

func TestPeatixFetchJSONLD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, peatixJSONLDPage)
	}))
	defer srv.Close()

	p := NewPeatix(config.SourceConfig{BaseURL: srv.URL})
	records, err := p.Fetch(context.Background(), "Kyoto")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 event records (organization block skipped), got %d", len(records))
	}

	hack := records[0]
	if hack.NativeID != "4111222" {
		t.Errorf("expected native ID from URL, got %q", hack.NativeID)
	}
	if hack.Price != "Free" {
		t.Errorf("zero offer price should map to Free, got %q", hack.Price)
	}
	if hack.Address != "134 Chudoji, Kyoto" {
		t.Errorf("structured address should flatten, got %q", hack.Address)
	}
	if hack.StartTime.IsZero() {
		t.Error("ISO startDate should parse")
	}

	wine := records[1]
	if wine.Price != "5000 JPY" {
		t.Errorf("paid offer should keep amount and currency, got %q", wine.Price)
	}
	if wine.Address != "Shimogyo-ku, Kyoto" {
		t.Errorf("string address should pass through, got %q", wine.Address)
	}
}

func TestPeatixFetchCardFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, peatixCardPage)
	}))
	defer srv.Close()

	p := NewPeatix(config.SourceConfig{BaseURL: srv.URL})
	records, err := p.Fetch(context.Background(), "Osaka")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 card record, got %d", len(records))
	}
	rec := records[0]
	if rec.Title != "Osaka Founders Coffee" {
		t.Errorf("unexpected title %q", rec.Title)
	}
	if rec.EventURL != srv.URL+"/event/4222333/view" {
		t.Errorf("relative href should resolve against base, got %q", rec.EventURL)
	}
	if rec.Price != "Free" {
		t.Errorf("card price should be captured, got %q", rec.Price)
	}
}

func TestPeatixNativeID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://peatix.com/event/4123456/view", "4123456"},
		{"https://peatix.com/event/4123456", "4123456"},
		{"https://peatix.com/somewhere", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := peatixNativeID(tt.url); got != tt.want {
			t.Errorf("peatixNativeID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
