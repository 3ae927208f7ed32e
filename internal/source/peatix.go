package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
)

const defaultPeatixBaseURL = "https://peatix.com"

// Peatix scrapes the Peatix search page. The page embeds schema.org Event
// records as JSON-LD, which is far more stable than its CSS classes, so that
// is the primary parsing strategy; event cards are a fallback.
type Peatix struct {
	baseURL string
	count   int
	client  *http.Client
}

// NewPeatix creates a Peatix adapter.
func NewPeatix(cfg config.SourceConfig) *Peatix {
	base := cfg.BaseURL
	if base == "" {
		base = defaultPeatixBaseURL
	}
	count := cfg.Count
	if count <= 0 {
		count = 20
	}
	return &Peatix{
		baseURL: base,
		count:   count,
		client:  httpClient(cfg.Timeout),
	}
}

func (p *Peatix) Name() string { return "peatix" }

func (p *Peatix) Platform() event.Platform { return event.PlatformPeatix }

// Fetch scrapes the search results for the city.
func (p *Peatix) Fetch(ctx context.Context, city string) ([]RawRecord, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("country", "JP")

	body, err := get(ctx, p.client, p.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	records, err := p.parse(body)
	if err != nil {
		return nil, err
	}
	if len(records) > p.count {
		records = records[:p.count]
	}
	return records, nil
}

// ldEvent is the subset of a schema.org Event we consume.
type ldEvent struct {
	Type        string `json:"@type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	URL         string `json:"url"`
	Location    struct {
		Name    string          `json:"name"`
		Address json.RawMessage `json:"address"`
	} `json:"location"`
	Offers struct {
		Price         json.Number `json:"price"`
		PriceCurrency string      `json:"priceCurrency"`
	} `json:"offers"`
}

func (p *Peatix) parse(body []byte) ([]RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var records []RawRecord

	// Strategy 1: JSON-LD event records.
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		records = append(records, parseLDBlock(sel.Text())...)
	})
	if len(records) > 0 {
		return records, nil
	}

	// Strategy 2: event cards. Selectors are kept loose because Peatix
	// reshuffles its markup.
	doc.Find("li.event-list__item, div.event-thumb, article").Each(func(i int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(".event-thumb_name, .event-title, h3").First().Text())
		if title == "" {
			return
		}
		href, _ := sel.Find("a").First().Attr("href")
		records = append(records, RawRecord{
			Platform:        event.PlatformPeatix,
			Title:           title,
			StartText:       strings.TrimSpace(sel.Find(".event-thumb_date, time").First().Text()),
			Venue:           strings.TrimSpace(sel.Find(".event-thumb_venue, .venue").First().Text()),
			Price:           strings.TrimSpace(sel.Find(".event-thumb_price, .price").First().Text()),
			EventURL:        absoluteURL(p.baseURL, href),
			RegistrationURL: absoluteURL(p.baseURL, href),
		})
	})

	return records, nil
}

// parseLDBlock decodes one JSON-LD script body, which may hold a single
// object or an array of them.
func parseLDBlock(raw string) []RawRecord {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var blocks []ldEvent
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
			return nil
		}
	} else {
		var one ldEvent
		if err := json.Unmarshal([]byte(raw), &one); err != nil {
			return nil
		}
		blocks = []ldEvent{one}
	}

	var records []RawRecord
	for _, b := range blocks {
		if !strings.EqualFold(b.Type, "Event") || b.Name == "" {
			continue
		}
		rec := RawRecord{
			Platform:        event.PlatformPeatix,
			NativeID:        peatixNativeID(b.URL),
			Title:           b.Name,
			Description:     b.Description,
			StartText:       b.StartDate,
			Venue:           b.Location.Name,
			Address:         ldAddress(b.Location.Address),
			Price:           ldPrice(b.Offers.Price, b.Offers.PriceCurrency),
			EventURL:        b.URL,
			RegistrationURL: b.URL,
		}
		if t, err := time.Parse(time.RFC3339, b.StartDate); err == nil {
			rec.StartTime = t
		}
		records = append(records, rec)
	}
	return records
}

// peatixNativeID extracts the numeric event ID from an event URL such as
// https://peatix.com/event/4123456/view.
func peatixNativeID(eventURL string) string {
	parts := strings.Split(strings.Trim(eventURL, "/"), "/")
	for i, part := range parts {
		if part == "event" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

// ldAddress flattens a schema.org address, which may be a bare string or a
// PostalAddress object.
func ldAddress(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var addr struct {
		StreetAddress   string `json:"streetAddress"`
		AddressLocality string `json:"addressLocality"`
		AddressRegion   string `json:"addressRegion"`
	}
	if err := json.Unmarshal(raw, &addr); err != nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{addr.StreetAddress, addr.AddressLocality, addr.AddressRegion} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func ldPrice(price json.Number, currency string) string {
	s := price.String()
	if s == "" {
		return ""
	}
	if s == "0" {
		return "Free"
	}
	if currency == "" {
		return s
	}
	return s + " " + currency
}

func absoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
}
