package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raptor-ai/event-scout/internal/logger"
)

// Channel delivers a digest over one medium.
type Channel interface {
	// Name identifies the channel for logging and the digest record.
	Name() string

	// Send delivers the digest.
	Send(ctx context.Context, d *Digest) error
}

// DigestRecorder persists the fact that a digest went out. Satisfied by
// *store.Store.
type DigestRecorder interface {
	RecordDigest(channel, summary string, sentAt time.Time) error
}

// Dispatcher fans a digest out to every configured channel. One channel
// failing does not stop the others.
type Dispatcher struct {
	channels []Channel
	recorder DigestRecorder
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(recorder DigestRecorder, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, recorder: recorder}
}

// Dispatch sends the digest through all channels and records each delivery.
// Returns an aggregate error naming every channel that failed.
func (disp *Dispatcher) Dispatch(ctx context.Context, d *Digest) error {
	var failed []string
	for _, ch := range disp.channels {
		if err := ch.Send(ctx, d); err != nil {
			logger.Warn("digest delivery failed", logger.Fields{
				"channel": ch.Name(),
				"error":   err.Error(),
			})
			failed = append(failed, fmt.Sprintf("%s: %v", ch.Name(), err))
			continue
		}
		if disp.recorder != nil {
			if err := disp.recorder.RecordDigest(ch.Name(), Summary(d), time.Now()); err != nil {
				return fmt.Errorf("recording digest for %s: %w", ch.Name(), err)
			}
		}
		logger.Info("digest sent", logger.Fields{"channel": ch.Name()})
	}
	if len(failed) > 0 {
		return fmt.Errorf("digest delivery failed on %d channel(s): %s",
			len(failed), strings.Join(failed, "; "))
	}
	return nil
}
