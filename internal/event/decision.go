package event

import "time"

// Reason explains the gatekeeper's verdict for one scored event.
type Reason string

const (
	ReasonBelowThreshold    Reason = "below-threshold"
	ReasonNotFree           Reason = "not-free"
	ReasonAlreadyRegistered Reason = "already-registered"
	ReasonCapReached        Reason = "cap-reached"
	ReasonEligible          Reason = "eligible"
)

// Outcome is the result of one attempted registration.
type Outcome struct {
	Success      bool              `json:"success"`
	Confirmation map[string]string `json:"confirmation,omitempty"` // opaque platform payload
	Err          string            `json:"error,omitempty"`
}

// Decision records the gatekeeper outcome for one scored event. Outcome is nil
// unless the event reached an actual registration attempt.
type Decision struct {
	IdentityKey string    `json:"identity_key"`
	Title       string    `json:"title"`
	Score       float64   `json:"score"`
	Eligible    bool      `json:"eligible"`
	Reason      Reason    `json:"reason"`
	Outcome     *Outcome  `json:"registration_outcome,omitempty"`
	DecidedAt   time.Time `json:"decided_at"`
}

// Registered reports whether this decision ended in a confirmed registration.
func (d Decision) Registered() bool {
	return d.Outcome != nil && d.Outcome.Success
}
