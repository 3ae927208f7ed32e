// Package gate decides which scored events get a registration attempt. It
// enforces the relevance threshold, the free-only rule and the weekly cap,
// and persists every decision before moving to the next candidate so a crash
// never loses or repeats a registration.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
	"github.com/raptor-ai/event-scout/internal/logger"
	"github.com/raptor-ai/event-scout/internal/register"
)

// DecisionRecorder persists one decision. Satisfied by *store.Store.
type DecisionRecorder interface {
	RecordDecision(d event.Decision) error
}

// Gatekeeper walks candidates in priority order and attempts registration for
// the ones that pass every gate.
type Gatekeeper struct {
	registrar register.Registrar
	recorder  DecisionRecorder
	profile   config.Profile
	threshold float64
	retries   int
	now       func() time.Time
}

// New creates a Gatekeeper.
func New(registrar register.Registrar, recorder DecisionRecorder, cfg config.Config) *Gatekeeper {
	return &Gatekeeper{
		registrar: registrar,
		recorder:  recorder,
		profile:   cfg.Registration.Profile,
		threshold: cfg.ScoreThreshold,
		retries:   cfg.Registration.Retries,
		now:       time.Now,
	}
}

// Decide evaluates candidates in the given order against the weekly counter
// and the set of already-registered identity keys. Candidates must be sorted
// by priority before the call; the counter must be seeded from the store.
//
// Each decision is persisted before the next candidate is considered. A
// failed registration attempt is recorded but does not consume cap budget.
//
// If ctx ends mid-walk, the committed prefix is returned together with the
// context error; the caller defers the undecided candidates to the next cycle.
func (g *Gatekeeper) Decide(ctx context.Context, candidates []event.ScoredEvent, registered map[string]struct{}, counter *event.Counter, maxPerWeek int) ([]event.Decision, error) {
	decisions := make([]event.Decision, 0, len(candidates))

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return decisions, fmt.Errorf("gating interrupted: %w", err)
		}

		d := g.decideOne(ctx, c, registered, counter, maxPerWeek)
		if err := g.recorder.RecordDecision(d); err != nil {
			return decisions, fmt.Errorf("persisting decision for %s: %w", d.IdentityKey, err)
		}
		decisions = append(decisions, d)

		if d.Registered() {
			counter.Increment()
			registered[d.IdentityKey] = struct{}{}
			logger.Info("registered for event", logger.Fields{
				"title": c.Title,
				"score": c.Breakdown.Final,
				"used":  counter.Count,
			})
		}
	}
	return decisions, nil
}

func (g *Gatekeeper) decideOne(ctx context.Context, c event.ScoredEvent, registered map[string]struct{}, counter *event.Counter, maxPerWeek int) event.Decision {
	d := event.Decision{
		IdentityKey: c.IdentityKey,
		Title:       c.Title,
		Score:       c.Breakdown.Final,
		DecidedAt:   g.now(),
	}

	switch {
	case c.Breakdown.Final < g.threshold:
		d.Reason = event.ReasonBelowThreshold
	case !c.IsFree:
		d.Reason = event.ReasonNotFree
	case isRegistered(registered, c.IdentityKey):
		d.Reason = event.ReasonAlreadyRegistered
	case counter.Remaining(maxPerWeek) <= 0:
		d.Reason = event.ReasonCapReached
	default:
		d.Eligible = true
		d.Reason = event.ReasonEligible
		d.Outcome = g.attempt(ctx, c.Event)
	}
	return d
}

// attempt runs the registrar with retry. Errors are folded into the outcome
// so the caller always gets a recordable decision.
func (g *Gatekeeper) attempt(ctx context.Context, e event.Event) *event.Outcome {
	var outcome event.Outcome
	op := func() error {
		var err error
		outcome, err = g.registrar.Register(ctx, e, g.profile)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(g.retries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		logger.Warn("registration attempt failed", logger.Fields{
			"title": e.Title,
			"error": err.Error(),
		})
		return &event.Outcome{Success: false, Err: err.Error()}
	}
	return &outcome
}

func isRegistered(registered map[string]struct{}, key string) bool {
	_, ok := registered[key]
	return ok
}
