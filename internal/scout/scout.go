// Package scout runs the discovery cycle: fetch from every source, normalize,
// dedupe against the store, score, gate registrations and send the digest.
package scout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/dedupe"
	"github.com/raptor-ai/event-scout/internal/event"
	"github.com/raptor-ai/event-scout/internal/gate"
	"github.com/raptor-ai/event-scout/internal/logger"
	"github.com/raptor-ai/event-scout/internal/normalize"
	"github.com/raptor-ai/event-scout/internal/notify"
	"github.com/raptor-ai/event-scout/internal/score"
	"github.com/raptor-ai/event-scout/internal/source"
)

// Phase names the pipeline stage a cycle is in. Exposed for logging and the
// run summary.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseFetching      Phase = "fetching"
	PhaseNormalizing   Phase = "normalizing"
	PhaseDeduplicating Phase = "deduplicating"
	PhaseScoring       Phase = "scoring"
	PhaseGating        Phase = "gating"
	PhaseNotifying     Phase = "notifying"
	PhaseFailed        Phase = "failed"
)

// StateStore is the persistence the cycle needs. Satisfied by *store.Store.
type StateStore interface {
	DecidedIdentityKeys() (map[string]struct{}, error)
	RegisteredIdentityKeys() (map[string]struct{}, error)
	RegistrationsInWindow(start, end time.Time) (int, error)
	UpsertEvent(e event.Event) error
	UpsertScore(se event.ScoredEvent) error
	RecordDecision(d event.Decision) error
}

// Summary is what one cycle produced.
type Summary struct {
	Fetched        int
	Dropped        int
	Fresh          int
	Known          int
	DegradedEvents int
	Eligible       int
	Registered     int
	FailedAttempts int
	Deferred       int
	CapUsed        int
	SourceFailures []string
	DigestFailure  string
}

// Partial reports whether the cycle completed with degraded results: source
// failures, failed registration attempts, degraded scoring, candidates
// deferred by an expired run budget, or an undelivered digest.
func (s Summary) Partial() bool {
	return len(s.SourceFailures) > 0 || s.FailedAttempts > 0 ||
		s.DigestFailure != "" || s.DegradedEvents > 0 || s.Deferred > 0
}

// Scout wires the pipeline together and runs cycles.
type Scout struct {
	cfg        config.Config
	sources    []source.Source
	normalizer *normalize.Normalizer
	scorer     *score.Scorer
	gatekeeper *gate.Gatekeeper
	dispatcher *notify.Dispatcher
	store      StateStore
	now        func() time.Time

	mu    sync.Mutex
	phase Phase
}

// New assembles a Scout from already-constructed parts.
func New(cfg config.Config, sources []source.Source, scorer *score.Scorer,
	gatekeeper *gate.Gatekeeper, dispatcher *notify.Dispatcher, st StateStore) *Scout {
	return &Scout{
		cfg:        cfg,
		sources:    sources,
		normalizer: normalize.New(cfg.Cities),
		scorer:     scorer,
		gatekeeper: gatekeeper,
		dispatcher: dispatcher,
		store:      st,
		now:        time.Now,
		phase:      PhaseIdle,
	}
}

// Phase returns the current pipeline stage.
func (s *Scout) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Scout) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	logger.Debug("phase change", logger.Fields{"phase": string(p)})
}

// Run executes one full cycle under the configured run budget. The returned
// error is fatal (store unavailable, persistence failure, every source down);
// recoverable problems, including a budget that expires mid-gating, are folded
// into the summary instead.
func (s *Scout) Run(ctx context.Context) (Summary, error) {
	runCtx := ctx
	if s.cfg.RunBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.RunBudget)
		defer cancel()
	}

	summary, err := s.runCycle(ctx, runCtx)
	if err != nil {
		s.setPhase(PhaseFailed)
		return summary, err
	}
	s.setPhase(PhaseIdle)
	return summary, nil
}

// runCycle walks the pipeline under ctx, the budget-bounded context derived
// from parent. parent outlives the budget and bounds the final digest send.
func (s *Scout) runCycle(parent, ctx context.Context) (Summary, error) {
	var summary Summary
	start := s.now()

	s.setPhase(PhaseFetching)
	raw, failures := s.fetchAll(ctx)
	summary.Fetched = len(raw)
	summary.SourceFailures = failures
	if len(raw) == 0 && len(failures) == len(s.sources)*len(s.cfg.TargetCityNames()) && len(failures) > 0 {
		return summary, fmt.Errorf("every source failed: %v", failures)
	}

	s.setPhase(PhaseNormalizing)
	events := s.normalizeAll(raw, &summary)

	s.setPhase(PhaseDeduplicating)
	decided, err := s.store.DecidedIdentityKeys()
	if err != nil {
		return summary, fmt.Errorf("loading decided events: %w", err)
	}
	result := dedupe.Dedupe(events, decided)
	summary.Fresh = len(result.Fresh)
	summary.Known = len(result.Known)

	for _, e := range append(result.Fresh, result.Known...) {
		if err := s.store.UpsertEvent(e); err != nil {
			return summary, fmt.Errorf("persisting event: %w", err)
		}
	}

	s.setPhase(PhaseScoring)
	scored := s.scorer.ScoreAll(ctx, result.Fresh)
	for _, se := range scored {
		if se.Degraded {
			summary.DegradedEvents++
		}
		if err := s.store.UpsertScore(se); err != nil {
			return summary, fmt.Errorf("persisting score: %w", err)
		}
	}
	event.SortByPriority(scored)

	s.setPhase(PhaseGating)
	week := event.WeekOf(s.now())
	used, err := s.store.RegistrationsInWindow(week.Start, week.End)
	if err != nil {
		return summary, fmt.Errorf("loading weekly registration count: %w", err)
	}
	counter := event.NewCounter(week, used)

	registered, err := s.store.RegisteredIdentityKeys()
	if err != nil {
		return summary, fmt.Errorf("loading registered events: %w", err)
	}

	decisions, err := s.gatekeeper.Decide(ctx, scored, registered, counter, s.cfg.MaxPerWeek)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return summary, fmt.Errorf("gating: %w", err)
		}
		// The run budget expired mid-gating. The committed prefix stands;
		// the remaining candidates carry no decision yet, so the next
		// cycle classifies them as fresh and gates them again.
		summary.Deferred = len(scored) - len(decisions)
		logger.Warn("run budget expired during gating", logger.Fields{
			"decided":  len(decisions),
			"deferred": summary.Deferred,
		})
	}
	for _, d := range decisions {
		if d.Eligible {
			summary.Eligible++
		}
		if d.Registered() {
			summary.Registered++
		} else if d.Eligible && d.Outcome != nil && !d.Outcome.Success {
			summary.FailedAttempts++
		}
	}
	summary.CapUsed = counter.Count

	s.setPhase(PhaseNotifying)
	notifyCtx := ctx
	if ctx.Err() != nil {
		// The digest for the committed prefix still goes out after the
		// budget is spent, under a short grace period.
		var cancel context.CancelFunc
		notifyCtx, cancel = context.WithTimeout(parent, time.Minute)
		defer cancel()
	}
	digest := notify.Build(week, scored, decisions, s.cfg.Notify.TopN, counter.Count, s.cfg.MaxPerWeek)
	if err := s.dispatcher.Dispatch(notifyCtx, digest); err != nil {
		summary.DigestFailure = err.Error()
	}

	logger.Info("cycle complete", logger.Fields{
		"fetched":    summary.Fetched,
		"fresh":      summary.Fresh,
		"registered": summary.Registered,
		"elapsed":    s.now().Sub(start).String(),
	})
	return summary, nil
}

// fetchAll queries every (source, city) pair concurrently. A failing pair is
// reported, not fatal; the cycle continues with whatever arrived.
func (s *Scout) fetchAll(ctx context.Context) ([]source.RawRecord, []string) {
	var (
		mu       sync.Mutex
		records  []source.RawRecord
		failures []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, src := range s.sources {
		for _, city := range s.cfg.TargetCityNames() {
			src, city := src, city
			g.Go(func() error {
				recs, err := src.Fetch(gctx, city)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					fe := &source.FetchError{Source: src.Name(), City: city, Err: err}
					logger.Warn("source fetch failed", logger.Fields{
						"source": src.Name(),
						"city":   city,
						"error":  err.Error(),
					})
					failures = append(failures, fe.Error())
					return nil
				}
				logger.Incr("fetched_" + src.Name())
				records = append(records, recs...)
				return nil
			})
		}
	}
	g.Wait()
	return records, failures
}

func (s *Scout) normalizeAll(raw []source.RawRecord, summary *Summary) []event.Event {
	events := make([]event.Event, 0, len(raw))
	for _, r := range raw {
		e, err := s.normalizer.Normalize(r)
		if err != nil {
			summary.Dropped++
			logger.Debug("dropped record", logger.Fields{
				"platform": string(r.Platform),
				"title":    r.Title,
				"error":    err.Error(),
			})
			continue
		}
		events = append(events, e)
	}
	return events
}
