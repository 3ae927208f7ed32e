// Package semantic provides the external semantic-assessment capability: given
// an event's title and description, return a business-relevance score in [0,1]
// against a fixed rubric. The concrete client speaks the OpenAI-compatible
// chat-completions API that Groq exposes.
package semantic

import "context"

// Assessor scores an event's business relevance in [0,1]. Implementations may
// fail or time out; the scorer degrades rather than propagating the failure.
type Assessor interface {
	// Name identifies the assessor for logging.
	Name() string

	// Available reports whether the assessor is configured and usable.
	Available() bool

	// Assess scores the event described by title and description against the
	// fixed rubric. The result is clamped to [0,1].
	Assess(ctx context.Context, title, description string) (float64, error)
}

// Rubric is the fixed business-relevance rubric the model scores against. It
// is a policy constant, not a prompt-engineering surface.
const Rubric = `Analyze this event for relevance to a tech company that wants to:
- Find business partners
- Acquire new clients
- Network with startups and investors
- Stay updated on AI and tech trends

Consider:
- How relevant is this event for business development?
- Does it attract the target audience (tech companies, startups, investors)?
- Is the topic aligned with AI, HR tech, or business innovation?

Provide a relevance score from 0.0 to 1.0, where:
0.0 = Completely irrelevant
0.3 = Slightly relevant
0.6 = Moderately relevant
0.8 = Highly relevant
1.0 = Perfect match

Return ONLY the numeric score, no other text.`
