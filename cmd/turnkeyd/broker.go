package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"turnkeyd/internal/config"
	"turnkeyd/internal/focus"
	"turnkeyd/internal/hotkey"
	"turnkeyd/internal/journal"
	"turnkeyd/internal/logging"
	"turnkeyd/internal/notify"
	"turnkeyd/internal/registry"
	"turnkeyd/internal/sink"
)

// requestTimeout bounds the registry round trips for one hotkey press.
const requestTimeout = 5 * time.Second

const (
	sinkFile      = "file"
	sinkClipboard = "clipboard"
)

// broker turns classified hotkey events into registry calls and sink
// deliveries. Every fetched turn gets a journal row, success or not.
type broker struct {
	client    *registry.Client
	resolver  focus.SessionResolver
	journal   *journal.Journal
	notifier  *notify.Notifier
	clipboard sink.ClipboardWriter
	sinkDir   string
	notify    bool
	logger    *logging.Logger
}

func (b *broker) handle(ev hotkey.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var err error
	switch ev {
	case hotkey.EventCapture:
		err = b.capture(ctx, sinkFile)
	case hotkey.EventClipboard:
		err = b.capture(ctx, sinkClipboard)
	case hotkey.EventPaste:
		err = b.paste(ctx)
	default:
		b.logger.Warn("unknown hotkey event", "event", int(ev))
		return
	}
	if err != nil {
		b.report(ev, err)
	}
}

// capture resolves the focused session, fetches its current turn, and
// delivers it to the named sink.
func (b *broker) capture(ctx context.Context, target string) error {
	session, err := b.focusedSession(ctx)
	if err != nil {
		return err
	}
	if session == "" {
		// No focused window, or it publishes no pid. Not an error.
		return nil
	}

	turn, err := b.client.FetchTurn(ctx, session)
	if err != nil {
		return fmt.Errorf("fetch turn: %w", err)
	}

	meta := &sink.Metadata{
		TurnID:      turn.TurnID,
		Timestamp:   turn.Timestamp,
		ByteLength:  len(turn.Content),
		Interrupted: turn.Interrupted,
		Truncated:   turn.Truncated,
	}

	var deliverErr error
	switch target {
	case sinkClipboard:
		deliverErr = sink.DeliverClipboard(ctx, b.clipboard, turn.Content, meta)
	default:
		path := filepath.Join(b.sinkDir, turn.TurnID+".txt")
		deliverErr = sink.DeliverFile(ctx, path, turn.Content, meta)
	}

	b.record(target, meta, deliverErr)

	if deliverErr != nil {
		return deliverErr
	}
	b.logger.Info("turn delivered",
		"session", session, "turn_id", turn.TurnID, "sink", target, "bytes", meta.ByteLength)
	return nil
}

// paste asks the registry to replay the session's last captured turn.
func (b *broker) paste(ctx context.Context) error {
	session, err := b.focusedSession(ctx)
	if err != nil {
		return err
	}
	if session == "" {
		return nil
	}
	if err := b.client.PasteTurn(ctx, session); err != nil {
		return fmt.Errorf("paste turn: %w", err)
	}
	b.logger.Info("turn pasted", "session", session)
	return nil
}

func (b *broker) focusedSession(ctx context.Context) (string, error) {
	sessions, err := b.client.ListSessions(ctx)
	if err != nil {
		return "", fmt.Errorf("list sessions: %w", err)
	}
	return b.resolver.FocusedSession(sessions)
}

// record writes one journal row for a completed sink delivery. Journal
// failures are logged and swallowed; the delivery outcome stands.
func (b *broker) record(target string, meta *sink.Metadata, deliverErr error) {
	code := journal.CodeOK
	if deliverErr != nil {
		code = deliverErr.Error()
	}
	_, err := b.journal.Record(journal.Delivery{
		TurnID:      meta.TurnID,
		Sink:        target,
		Code:        code,
		ByteLength:  meta.ByteLength,
		Interrupted: meta.Interrupted,
		Truncated:   meta.Truncated,
	})
	if err != nil {
		b.logger.Error("journal write failed", "error", err)
	}
}

// report logs a failed event and raises a desktop notification when
// the failure is actionable for the user.
func (b *broker) report(ev hotkey.Event, err error) {
	var ambiguous *focus.AmbiguousError
	switch {
	case errors.Is(err, focus.ErrNoSession):
		b.logger.Debug("hotkey ignored", "event", ev.String(), "reason", "no focused session")
	case errors.As(err, &ambiguous):
		b.logger.Warn("ambiguous focus", "event", ev.String(), "sessions", ambiguous.Sessions)
		b.send("Ambiguous focus",
			fmt.Sprintf("%d sessions share the focused window; nothing was delivered.",
				len(ambiguous.Sessions)))
	case errors.Is(err, sink.ErrClipboardFailed), errors.Is(err, sink.ErrFileWriteFailed):
		b.logger.Error("delivery failed", "event", ev.String(), "error", err)
		b.send("Delivery failed", fmt.Sprintf("Could not %s the current turn: %s.", ev.String(), err))
	default:
		b.logger.Error("hotkey handling failed", "event", ev.String(), "error", err)
	}
}

func (b *broker) send(summary, body string) {
	if !b.notify || b.notifier == nil {
		return
	}
	if err := b.notifier.Send(summary, body); err != nil {
		b.logger.Debug("notification failed", "error", err)
	}
}

// bindings converts the configured spec strings into a Register call's
// arguments. An empty clipboard spec disables that binding.
func bindings(cfg *config.Config) (capture, paste hotkey.KeyBinding, clipboard *hotkey.KeyBinding) {
	capture = hotkey.KeyBinding{Spec: cfg.Hotkeys.Capture}
	paste = hotkey.KeyBinding{Spec: cfg.Hotkeys.Paste}
	if cfg.Hotkeys.Clipboard != "" {
		clipboard = &hotkey.KeyBinding{Spec: cfg.Hotkeys.Clipboard}
	}
	return capture, paste, clipboard
}
