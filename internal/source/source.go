// Package source implements the per-platform event source adapters.
//
// Each adapter fetches raw candidate events for one platform and city and
// returns them as RawRecords, leaving normalization (timezones, identity keys,
// price semantics) to the normalize package. Adapters are independent: a
// failure in one never affects another, and the orchestrator treats any fetch
// error as a skipped source for that cycle.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
)

const userAgent = "event-scout/1.0 (github.com/raptor-ai/event-scout)"

// RawRecord is one candidate event as a platform reported it, before
// normalization. StartTime is set when the platform exposes a machine-readable
// time; StartText carries the raw text otherwise.
type RawRecord struct {
	Platform        event.Platform
	NativeID        string
	Title           string
	Description     string
	StartTime       time.Time
	StartText       string
	Venue           string
	Address         string
	Price           string
	EventURL        string
	RegistrationURL string
}

// FetchError wraps a failed fetch with the adapter and city it came from.
// The orchestrator skips the pair and continues the cycle.
type FetchError struct {
	Source string
	City   string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Source, e.City, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Source yields raw candidate events for one platform.
type Source interface {
	// Name identifies the adapter instance for logging.
	Name() string

	// Platform reports the platform tag this adapter produces records for.
	Platform() event.Platform

	// Fetch returns raw candidate events for one city. Results carry no
	// ordering guarantee.
	Fetch(ctx context.Context, city string) ([]RawRecord, error)
}

// FromConfig builds the configured source adapters.
func FromConfig(cfgs []config.SourceConfig) ([]Source, error) {
	sources := make([]Source, 0, len(cfgs))
	for _, c := range cfgs {
		switch c.Type {
		case "connpass":
			sources = append(sources, NewConnpass(c))
		case "doorkeeper":
			sources = append(sources, NewDoorkeeper(c))
		case "peatix":
			sources = append(sources, NewPeatix(c))
		default:
			return nil, fmt.Errorf("unknown source type: %s", c.Type)
		}
	}
	return sources, nil
}

// get performs a GET with the scout's User-Agent and returns the body on 200.
func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ja;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

func httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
