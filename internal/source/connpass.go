package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
)

const defaultConnpassBaseURL = "https://connpass.com"

// Connpass fetches events from the Connpass public JSON API.
type Connpass struct {
	baseURL string
	count   int
	client  *http.Client
}

// NewConnpass creates a Connpass adapter.
func NewConnpass(cfg config.SourceConfig) *Connpass {
	base := cfg.BaseURL
	if base == "" {
		base = defaultConnpassBaseURL
	}
	count := cfg.Count
	if count <= 0 {
		count = 20
	}
	return &Connpass{
		baseURL: base,
		count:   count,
		client:  httpClient(cfg.Timeout),
	}
}

func (c *Connpass) Name() string { return "connpass" }

func (c *Connpass) Platform() event.Platform { return event.PlatformConnpass }

type connpassEvent struct {
	EventID     int         `json:"event_id"`
	Title       string      `json:"title"`
	Catch       string      `json:"catch"`
	Description string      `json:"description"`
	StartedAt   string      `json:"started_at"` // ISO 8601 with offset
	Place       string      `json:"place"`
	Address     string      `json:"address"`
	EventURL    string      `json:"event_url"`
	Fee         json.Number `json:"fee"`
}

type connpassResponse struct {
	Events []connpassEvent `json:"events"`
}

// Fetch queries the event search API with the city as keyword, ordered by
// update time.
func (c *Connpass) Fetch(ctx context.Context, city string) ([]RawRecord, error) {
	q := url.Values{}
	q.Set("keyword", city)
	q.Set("count", strconv.Itoa(c.count))
	q.Set("order", "2")

	body, err := get(ctx, c.client, c.baseURL+"/api/v1/event/?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp connpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing connpass response: %w", err)
	}

	records := make([]RawRecord, 0, len(resp.Events))
	for _, e := range resp.Events {
		rec := RawRecord{
			Platform:        event.PlatformConnpass,
			NativeID:        strconv.Itoa(e.EventID),
			Title:           e.Title,
			Description:     firstNonEmpty(e.Description, e.Catch),
			StartText:       e.StartedAt,
			Venue:           e.Place,
			Address:         e.Address,
			Price:           connpassPrice(e.Fee),
			EventURL:        e.EventURL,
			RegistrationURL: e.EventURL,
		}
		if t, err := time.Parse(time.RFC3339, e.StartedAt); err == nil {
			rec.StartTime = t
		}
		records = append(records, rec)
	}
	return records, nil
}

// connpassPrice maps the API fee field to price text. Connpass omits the fee
// for free events and reports yen otherwise.
func connpassPrice(fee json.Number) string {
	s := fee.String()
	if s == "" || s == "0" {
		return "Free"
	}
	return "¥" + s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
