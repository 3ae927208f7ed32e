package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raptor-ai/event-scout/internal/calendar"
	"github.com/raptor-ai/event-scout/internal/event"
)

// FileChannel writes the digest and a calendar of registered events into the
// data directory, so every cycle leaves an inspectable record on disk even
// when no remote channel is configured.
type FileChannel struct {
	dir string
}

// NewFile creates a file channel rooted at dir. A leading "~/" expands to the
// user's home directory.
func NewFile(dir string) (*FileChannel, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileChannel{dir: dir}, nil
}

func (c *FileChannel) Name() string { return "file" }

// Send writes digest-<date>.txt and, when the cycle registered for anything,
// registrations-<date>.ics.
func (c *FileChannel) Send(ctx context.Context, d *Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stamp := d.GeneratedAt.Format("2006-01-02")
	digestPath := filepath.Join(c.dir, "digest-"+stamp+".txt")
	if err := os.WriteFile(digestPath, []byte(FormatPlain(d)), 0644); err != nil {
		return fmt.Errorf("writing digest file: %w", err)
	}

	var registered []event.Event
	for _, item := range d.Items {
		if item.Registered {
			registered = append(registered, item.Event.Event)
		}
	}
	ics := calendar.GenerateBulkICS(registered, "Event Scout Registrations")
	if ics == "" {
		return nil
	}
	icsPath := filepath.Join(c.dir, "registrations-"+stamp+".ics")
	if err := os.WriteFile(icsPath, []byte(ics), 0644); err != nil {
		return fmt.Errorf("writing calendar file: %w", err)
	}
	return nil
}
