// Package score computes the composite relevance score: keyword match,
// delegated semantic assessment and location weight, combined under fixed,
// documented policy weights.
package score

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
	"github.com/raptor-ai/event-scout/internal/logger"
	"github.com/raptor-ai/event-scout/internal/semantic"
)

// locationPenalty is the location component for events outside every target
// city. Such events stay in the pipeline but rarely clear the threshold.
const locationPenalty = 0.2

// scoreParallelism bounds concurrent semantic-assessment calls.
const scoreParallelism = 4

// Scorer computes ScoredEvents. Scoring has no side effects beyond the
// delegated assessment call.
type Scorer struct {
	assessor semantic.Assessor
	keywords []string
	weights  config.Weights
	timeout  time.Duration
	retries  int
}

// New creates a Scorer.
func New(assessor semantic.Assessor, cfg config.Config) *Scorer {
	timeout := cfg.Semantic.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Scorer{
		assessor: assessor,
		keywords: cfg.Keywords,
		weights:  cfg.Weights,
		timeout:  timeout,
		retries:  cfg.Semantic.Retries,
	}
}

// Score computes the composite score for one event. A failed or timed-out
// semantic assessment (after the configured retry) defaults the semantic
// component to 0.0 and flags the event as degraded instead of failing.
func (s *Scorer) Score(ctx context.Context, e event.Event) event.ScoredEvent {
	keyword := s.KeywordComponent(e)
	location := locationComponent(e)

	semanticScore, degraded := s.semanticComponent(ctx, e)

	b := event.Breakdown{
		Keyword:  keyword,
		Semantic: semanticScore,
		Location: location,
	}
	b.Final = Combine(b, s.weights)

	return event.ScoredEvent{Event: e, Breakdown: b, Degraded: degraded}
}

// ScoreAll scores events with bounded parallelism, returning results in input
// order. Individual degradations never fail the batch.
func (s *Scorer) ScoreAll(ctx context.Context, events []event.Event) []event.ScoredEvent {
	scored := make([]event.ScoredEvent, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scoreParallelism)
	for i, e := range events {
		i, e := i, e
		g.Go(func() error {
			scored[i] = s.Score(gctx, e)
			return nil
		})
	}
	// Workers only write their own slot and never return errors.
	_ = g.Wait()

	return scored
}

// KeywordComponent returns the fraction of the configured keyword set found
// (case-insensitively) in title+description, capped at 1.0.
func (s *Scorer) KeywordComponent(e event.Event) float64 {
	if len(s.keywords) == 0 {
		return 0
	}
	text := strings.ToLower(e.Title + " " + e.Description)
	matches := 0
	for _, kw := range s.keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			matches++
		}
	}
	frac := float64(matches) / float64(len(s.keywords))
	if frac > 1 {
		frac = 1
	}
	return frac
}

// Combine applies the policy weights and clamps the result to [0,1]. The
// final score is a pure function of the breakdown components.
func Combine(b event.Breakdown, w config.Weights) float64 {
	final := w.Semantic*b.Semantic + w.Keyword*b.Keyword + w.Location*b.Location
	if final < 0 {
		return 0
	}
	if final > 1 {
		return 1
	}
	return final
}

func locationComponent(e event.Event) float64 {
	if e.LocationCity != "" && e.LocationCity != event.CityOther {
		return 1.0
	}
	return locationPenalty
}

// semanticComponent obtains the delegated assessment with at most the
// configured number of retries, each attempt under its own timeout. On
// exhaustion it returns 0.0 and the degraded flag.
func (s *Scorer) semanticComponent(ctx context.Context, e event.Event) (float64, bool) {
	if s.assessor == nil || !s.assessor.Available() {
		return 0, true
	}

	var result float64
	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		v, err := s.assessor.Assess(callCtx, e.Title, e.Description)
		if err != nil {
			return err
		}
		result = v
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.retries)),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		logger.Warn("semantic assessment degraded", logger.Fields{
			"identity_key": e.IdentityKey,
			"title":        e.Title,
		})
		return 0, true
	}
	return result, false
}
