package register

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
)

const userAgent = "event-scout/1.0 (github.com/raptor-ai/event-scout)"

// HTTPRegistrar posts the company profile to an event's registration URL.
// Calls are paced by a token bucket so back-to-back registrations don't
// hammer the platforms.
type HTTPRegistrar struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTP creates an HTTP registrar.
func NewHTTP(cfg config.RegistrationConfig) *HTTPRegistrar {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 0.5
	}
	return &HTTPRegistrar{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (r *HTTPRegistrar) Name() string { return "http" }

// Register submits the registration form and builds the confirmation payload.
func (r *HTTPRegistrar) Register(ctx context.Context, e event.Event, profile config.Profile) (event.Outcome, error) {
	if e.RegistrationURL == "" {
		return event.Outcome{}, fmt.Errorf("event %q has no registration URL", e.Title)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return event.Outcome{}, fmt.Errorf("waiting for rate limit: %w", err)
	}

	form := formFor(e.Platform, profile)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.RegistrationURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return event.Outcome{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return event.Outcome{}, fmt.Errorf("registration request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return event.Outcome{}, fmt.Errorf("registration rejected with status %d", resp.StatusCode)
	}

	return event.Outcome{
		Success: true,
		Confirmation: map[string]string{
			"platform":      string(e.Platform),
			"status":        "confirmed",
			"registered_at": time.Now().UTC().Format(time.RFC3339),
			"event_url":     e.RegistrationURL,
		},
	}, nil
}

// formFor shapes the profile into the field names each platform's form
// expects; unknown platforms get the generic shape.
func formFor(platform event.Platform, profile config.Profile) url.Values {
	form := url.Values{}
	switch platform {
	case event.PlatformConnpass:
		form.Set("display_name", profile.Name)
		form.Set("organization", profile.Company)
		form.Set("email", profile.Email)
	case event.PlatformPeatix:
		form.Set("attendee_name", profile.Name)
		form.Set("attendee_company", profile.Company)
		form.Set("attendee_email", profile.Email)
		form.Set("attendee_phone", profile.Phone)
	default:
		form.Set("name", profile.Name)
		form.Set("company", profile.Company)
		form.Set("email", profile.Email)
		form.Set("phone", profile.Phone)
		form.Set("position", profile.Position)
	}
	return form
}
