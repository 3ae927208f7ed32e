// Package register implements the external registration capability: submit
// the company profile to an event's registration endpoint and capture the
// confirmation payload.
package register

import (
	"context"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
)

// Registrar performs one registration attempt. A returned error means the
// attempt failed; the gatekeeper records it without consuming cap budget.
type Registrar interface {
	// Name identifies the registrar for logging.
	Name() string

	// Register attempts to register the company profile for the event and
	// returns the platform confirmation on success.
	Register(ctx context.Context, e event.Event, profile config.Profile) (event.Outcome, error)
}
