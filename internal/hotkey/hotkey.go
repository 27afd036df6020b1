// Package hotkey registers global key bindings and delivers classified
// hotkey events.
//
// The platform-agnostic Provider capability hides the grab mechanism
// from the broker loop. One concrete backend exists, the X11 connection
// adapter; other windowing backends plug in behind the same interface.
package hotkey

import "fmt"

// KeyBinding wraps a user-supplied binding spec string, e.g.
// "Super+Shift+C". Resolution to platform keycodes is the provider's
// responsibility.
type KeyBinding struct {
	Spec string
}

// Event is a classified hotkey action. One value is produced per
// matching raw key event; unmatched raw events are discarded.
type Event int

const (
	// EventCapture captures the focused session's current turn.
	EventCapture Event = iota
	// EventPaste pastes the last captured turn into the focused session.
	EventPaste
	// EventClipboard captures to the system clipboard.
	EventClipboard
)

func (e Event) String() string {
	switch e {
	case EventCapture:
		return "capture"
	case EventPaste:
		return "paste"
	case EventClipboard:
		return "clipboard"
	default:
		return fmt.Sprintf("hotkey.Event(%d)", int(e))
	}
}

// Registration is the result of a successful Provider.Register call.
type Registration struct {
	// Events delivers classified hotkey events in raw arrival order.
	// The channel closes on Unregister and on connection loss.
	Events <-chan Event

	// BindingsOK counts the bindings whose every grab combination
	// succeeded. Partial success is acceptable; callers compare it
	// against zero to decide whether to proceed.
	BindingsOK int
}

// Provider registers global key bindings and delivers hotkey events.
type Provider interface {
	// Register parses the binding specs, grabs keys via the platform
	// mechanism, and starts event delivery. clipboard may be nil, in
	// which case only capture and paste are registered and
	// EventClipboard is never produced.
	Register(capture, paste KeyBinding, clipboard *KeyBinding) (*Registration, error)

	// Unregister releases all grabbed bindings and stops event
	// delivery. It is idempotent: calling it twice, or without a prior
	// successful Register, must not fault.
	Unregister()
}
