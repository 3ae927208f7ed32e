package register

import (
	"context"
	"fmt"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
)

// DryRunRegistrar prints what would be registered without touching any
// platform. Used for local runs and as the safe default.
type DryRunRegistrar struct{}

// NewDryRun creates a dry-run registrar.
func NewDryRun() *DryRunRegistrar {
	return &DryRunRegistrar{}
}

func (r *DryRunRegistrar) Name() string { return "dry-run" }

// Register reports success without side effects.
func (r *DryRunRegistrar) Register(ctx context.Context, e event.Event, profile config.Profile) (event.Outcome, error) {
	fmt.Printf("--- Would register ---\n%s\n%s as %s <%s>\n\n",
		e.Title, profile.Name, profile.Position, profile.Email)
	return event.Outcome{
		Success: true,
		Confirmation: map[string]string{
			"platform": string(e.Platform),
			"status":   "dry-run",
		},
	}, nil
}
