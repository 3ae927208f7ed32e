package notify

import (
	"context"
	"fmt"
	"io"
	"os"
)

// DryRunChannel prints the digest instead of sending it. Used for local runs
// and as the fallback when no channel is configured.
type DryRunChannel struct {
	out io.Writer
}

// NewDryRun creates a dry-run channel writing to stdout.
func NewDryRun() *DryRunChannel {
	return &DryRunChannel{out: os.Stdout}
}

func (c *DryRunChannel) Name() string { return "dry-run" }

// Send prints the plain-text digest.
func (c *DryRunChannel) Send(ctx context.Context, d *Digest) error {
	fmt.Fprintln(c.out, "--- Digest (dry run) ---")
	fmt.Fprint(c.out, FormatPlain(d))
	return nil
}
