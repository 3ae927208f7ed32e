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

const defaultDoorkeeperBaseURL = "https://api.doorkeeper.jp"

// Doorkeeper fetches events from the Doorkeeper public JSON API.
type Doorkeeper struct {
	baseURL string
	count   int
	client  *http.Client
}

// NewDoorkeeper creates a Doorkeeper adapter.
func NewDoorkeeper(cfg config.SourceConfig) *Doorkeeper {
	base := cfg.BaseURL
	if base == "" {
		base = defaultDoorkeeperBaseURL
	}
	count := cfg.Count
	if count <= 0 {
		count = 20
	}
	return &Doorkeeper{
		baseURL: base,
		count:   count,
		client:  httpClient(cfg.Timeout),
	}
}

func (d *Doorkeeper) Name() string { return "doorkeeper" }

func (d *Doorkeeper) Platform() event.Platform { return event.PlatformDoorkeeper }

type doorkeeperEvent struct {
	Event struct {
		ID        int    `json:"id"`
		Title     string `json:"title"`
		StartsAt  string `json:"starts_at"`
		VenueName string `json:"venue_name"`
		Address   string `json:"address"`
		PublicURL string `json:"public_url"`
		Banner    string `json:"banner"`
	} `json:"event"`
}

// Fetch queries the event list filtered by the city as a free-text query.
// Doorkeeper does not expose ticket prices in its list API, so Price is left
// empty and the normalizer treats the event as not verifiably free.
func (d *Doorkeeper) Fetch(ctx context.Context, city string) ([]RawRecord, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("locale", "en")
	q.Set("sort", "starts_at")

	body, err := get(ctx, d.client, d.baseURL+"/events?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var entries []doorkeeperEvent
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("parsing doorkeeper response: %w", err)
	}

	if len(entries) > d.count {
		entries = entries[:d.count]
	}

	records := make([]RawRecord, 0, len(entries))
	for _, entry := range entries {
		e := entry.Event
		rec := RawRecord{
			Platform:        event.PlatformDoorkeeper,
			NativeID:        strconv.Itoa(e.ID),
			Title:           e.Title,
			StartText:       e.StartsAt,
			Venue:           e.VenueName,
			Address:         e.Address,
			EventURL:        e.PublicURL,
			RegistrationURL: e.PublicURL,
		}
		if t, err := time.Parse(time.RFC3339, e.StartsAt); err == nil {
			rec.StartTime = t
		}
		records = append(records, rec)
	}
	return records, nil
}
