// Package sink delivers captured turn content to its destinations:
// the system clipboard and files on disk.
//
// Sinks are best-effort and run post-hoc: by the time a sink is
// invoked, the broker loop has already optimistically reported the
// delivery successful, and a sink failure makes it retroactively
// replace that response with an error. Sinks therefore never retry;
// retry policy, if any, belongs to the caller.
//
// Failures deliberately collapse to single opaque codes. The only
// required reaction across the boundary is "treat this delivery as
// failed", so the root cause is logged locally and discarded.
package sink

import (
	"context"
	"errors"
	"os"
)

// Opaque failure codes surfaced to the broker. No further structured
// detail crosses this boundary.
var (
	ErrClipboardFailed = errors.New("clipboard_failed")
	ErrFileWriteFailed = errors.New("file_write_failed")
)

// Metadata describes the turn being delivered. Current sinks accept
// and ignore it; the parameter keeps the contract stable for future
// sinks that need it (naming files by turn id, suppressing truncated
// output, and so on).
type Metadata struct {
	TurnID      string
	Timestamp   int64
	ByteLength  int
	Interrupted bool
	Truncated   bool
}

// ClipboardWriter writes bytes to a clipboard. The platform mechanism
// is injected by the caller, which keeps this layer free of any
// specific clipboard dependency and testable without one.
type ClipboardWriter func([]byte) error

// DeliverClipboard writes content through the injected clipboard
// writer. Any writer failure collapses to ErrClipboardFailed.
func DeliverClipboard(ctx context.Context, write ClipboardWriter, content []byte, _ *Metadata) error {
	if err := ctx.Err(); err != nil {
		return ErrClipboardFailed
	}
	if write == nil {
		return ErrClipboardFailed
	}
	if err := write(content); err != nil {
		return ErrClipboardFailed
	}
	return nil
}

// DeliverFile writes content to path. Any I/O failure (missing
// directory, permission, disk full) collapses to ErrFileWriteFailed;
// no partial-write recovery is attempted.
func DeliverFile(ctx context.Context, path string, content []byte, _ *Metadata) error {
	if err := ctx.Err(); err != nil {
		return ErrFileWriteFailed
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return ErrFileWriteFailed
	}
	return nil
}
