package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/event"
)

type fakeRegistrar struct {
	calls    int
	failures int
}

func (f *fakeRegistrar) Name() string { return "fake" }

func (f *fakeRegistrar) Register(ctx context.Context, e event.Event, profile config.Profile) (event.Outcome, error) {
	f.calls++
	if f.calls <= f.failures {
		return event.Outcome{}, errors.New("platform unavailable")
	}
	return event.Outcome{
		Success:      true,
		Confirmation: map[string]string{"status": "confirmed"},
	}, nil
}

type memRecorder struct {
	decisions []event.Decision
	failAfter int
}

func (m *memRecorder) RecordDecision(d event.Decision) error {
	if m.failAfter > 0 && len(m.decisions) >= m.failAfter {
		return errors.New("disk full")
	}
	m.decisions = append(m.decisions, d)
	return nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Registration.Retries = 1
	return cfg
}

func scored(key, title string, final float64, free bool) event.ScoredEvent {
	return event.ScoredEvent{
		Event: event.Event{
			IdentityKey:     key,
			Title:           title,
			IsFree:          free,
			Price:           "Free",
			RegistrationURL: "https://example.com/register",
			StartTime:       time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC),
		},
		Breakdown: event.Breakdown{Final: final},
	}
}

func freshCounter(used int) *event.Counter {
	week := event.WeekOf(time.Date(2026, 8, 26, 12, 0, 0, 0, event.JST))
	return event.NewCounter(week, used)
}

func TestDecideGateOrder(t *testing.T) {
	reg := &fakeRegistrar{}
	rec := &memRecorder{}
	g := New(reg, rec, testConfig())

	registered := map[string]struct{}{"already": {}}
	candidates := []event.ScoredEvent{
		scored("low", "Low Score Event", 0.5, true),
		scored("paid", "Paid Conference", 0.9, false),
		scored("already", "Repeat Event", 0.9, true),
		scored("winner", "AI Meetup", 0.95, true),
	}

	decisions, err := g.Decide(context.Background(), candidates, registered, freshCounter(0), 3)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(decisions) != 4 {
		t.Fatalf("expected 4 decisions, got %d", len(decisions))
	}

	want := []event.Reason{
		event.ReasonBelowThreshold,
		event.ReasonNotFree,
		event.ReasonAlreadyRegistered,
		event.ReasonEligible,
	}
	for i, d := range decisions {
		if d.Reason != want[i] {
			t.Errorf("decision %d: expected reason %q, got %q", i, want[i], d.Reason)
		}
	}
	if !decisions[3].Registered() {
		t.Error("eligible candidate should be registered")
	}
	if reg.calls != 1 {
		t.Errorf("only the eligible candidate should reach the registrar, got %d calls", reg.calls)
	}
}

func TestDecideWeeklyCap(t *testing.T) {
	reg := &fakeRegistrar{}
	rec := &memRecorder{}
	g := New(reg, rec, testConfig())

	candidates := []event.ScoredEvent{
		scored("a", "Event A", 0.95, true),
		scored("b", "Event B", 0.92, true),
		scored("c", "Event C", 0.90, true),
	}

	counter := freshCounter(2)
	decisions, err := g.Decide(context.Background(), candidates, map[string]struct{}{}, counter, 3)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if !decisions[0].Registered() {
		t.Error("first candidate should consume the last cap slot")
	}
	for _, d := range decisions[1:] {
		if d.Reason != event.ReasonCapReached {
			t.Errorf("expected cap-reached after budget exhausted, got %q", d.Reason)
		}
	}
	if counter.Count != 3 {
		t.Errorf("counter should end at 3, got %d", counter.Count)
	}
}

func TestDecideFailedAttemptKeepsBudget(t *testing.T) {
	// Fails the first two calls; retries=1 means both attempts for the first
	// candidate fail, then the second candidate succeeds immediately.
	reg := &fakeRegistrar{failures: 2}
	rec := &memRecorder{}
	g := New(reg, rec, testConfig())

	candidates := []event.ScoredEvent{
		scored("flaky", "Flaky Platform Event", 0.95, true),
		scored("solid", "Reliable Event", 0.90, true),
	}

	counter := freshCounter(2)
	decisions, err := g.Decide(context.Background(), candidates, map[string]struct{}{}, counter, 3)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	first := decisions[0]
	if !first.Eligible || first.Outcome == nil || first.Outcome.Success {
		t.Fatalf("first decision should be a failed attempt: %+v", first)
	}
	if !decisions[1].Registered() {
		t.Error("budget freed by the failed attempt should go to the next candidate")
	}
	if counter.Count != 3 {
		t.Errorf("only the success should consume budget, counter = %d", counter.Count)
	}
}

func TestDecideRetriesOnceThenSucceeds(t *testing.T) {
	reg := &fakeRegistrar{failures: 1}
	rec := &memRecorder{}
	g := New(reg, rec, testConfig())

	decisions, err := g.Decide(context.Background(),
		[]event.ScoredEvent{scored("a", "Event A", 0.95, true)},
		map[string]struct{}{}, freshCounter(0), 3)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !decisions[0].Registered() {
		t.Error("retry should recover the registration")
	}
	if reg.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", reg.calls)
	}
}

func TestDecidePersistsBeforeContinuing(t *testing.T) {
	reg := &fakeRegistrar{}
	rec := &memRecorder{failAfter: 1}
	g := New(reg, rec, testConfig())

	candidates := []event.ScoredEvent{
		scored("a", "Event A", 0.95, true),
		scored("b", "Event B", 0.92, true),
	}

	decisions, err := g.Decide(context.Background(), candidates, map[string]struct{}{}, freshCounter(0), 3)
	if err == nil {
		t.Fatal("persistence failure should surface as an error")
	}
	if len(decisions) != 1 {
		t.Fatalf("expected the committed prefix only, got %d decisions", len(decisions))
	}
	if len(rec.decisions) != 1 {
		t.Fatalf("recorder should hold exactly the committed prefix, got %d", len(rec.decisions))
	}
}

func TestDecideCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := &fakeRegistrar{}
	g := New(reg, &memRecorder{}, testConfig())
	decisions, err := g.Decide(ctx, []event.ScoredEvent{scored("a", "Event A", 0.95, true)},
		map[string]struct{}{}, freshCounter(0), 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the context error, got %v", err)
	}
	if len(decisions) != 0 {
		t.Errorf("no decisions should be committed, got %d", len(decisions))
	}
	if reg.calls != 0 {
		t.Error("the registrar must not be reached on a dead context")
	}
}

// interruptingRegistrar cancels the run context as a side effect of its first
// registration, standing in for a budget that expires mid-walk.
type interruptingRegistrar struct {
	cancel context.CancelFunc
	calls  int
}

func (r *interruptingRegistrar) Name() string { return "interrupting" }

func (r *interruptingRegistrar) Register(ctx context.Context, e event.Event, profile config.Profile) (event.Outcome, error) {
	r.calls++
	r.cancel()
	return event.Outcome{
		Success:      true,
		Confirmation: map[string]string{"status": "confirmed"},
	}, nil
}

func TestDecideInterruptedMidWalkReturnsCommittedPrefix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := &interruptingRegistrar{cancel: cancel}
	rec := &memRecorder{}
	g := New(reg, rec, testConfig())

	candidates := []event.ScoredEvent{
		scored("a", "Event A", 0.95, true),
		scored("b", "Event B", 0.90, true),
	}
	counter := freshCounter(0)

	decisions, err := g.Decide(ctx, candidates, map[string]struct{}{}, counter, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the context error, got %v", err)
	}
	if len(decisions) != 1 || !decisions[0].Registered() {
		t.Fatalf("the committed prefix should hold the first registration: %+v", decisions)
	}
	if len(rec.decisions) != 1 {
		t.Errorf("exactly the committed prefix should be persisted, got %d", len(rec.decisions))
	}
	if reg.calls != 1 {
		t.Errorf("the second candidate must not reach the registrar, got %d calls", reg.calls)
	}
	if counter.Count != 1 {
		t.Errorf("counter should reflect the committed registration, got %d", counter.Count)
	}
}
