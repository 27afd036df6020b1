// Package focus resolves which tracked session, if any, owns the
// currently focused window.
//
// Resolution maps the focused window's owning pid onto the registry's
// session snapshot by walking the process tree: a session matches when
// its pid equals the window pid or the window pid is a strict ancestor
// of it (the tracked shell nests beneath the terminal emulator that
// owns the window).
package focus

import (
	"errors"
	"fmt"
	"strings"

	"turnkeyd/internal/proctree"
	"turnkeyd/internal/registry"
)

// ErrNoSession indicates that no tracked session matches the focused
// window. It is a resolved state, not a mechanism failure: callers
// choose their own reaction and the resolver never logs it.
var ErrNoSession = errors.New("no session in focused window")

// AmbiguousError indicates that two or more sessions match the focused
// window, e.g. split panes of one terminal emulator. Sessions preserves
// the snapshot's input order. No tie-break is attempted at this layer.
type AmbiguousError struct {
	Sessions []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous focus, multiple sessions match: %s", strings.Join(e.Sessions, ", "))
}

// SessionResolver is the platform-agnostic focus capability. Additional
// windowing backends plug in behind this interface without touching the
// broker loop.
type SessionResolver interface {
	// FocusedSession returns the id of the session owning the focused
	// window, or "" with a nil error when no window is focused or the
	// focused window publishes no owning pid.
	FocusedSession(sessions []registry.SessionDescriptor) (string, error)
}

// PIDSource supplies the focused window's owning process id. The X11
// connection adapter implements it.
type PIDSource interface {
	// ActiveWindowPID returns the focused window's owning pid. ok is
	// false when no window is focused or the window publishes no pid;
	// that is an ordinary state, not an error.
	ActiveWindowPID() (pid int, ok bool)
}

// Resolver implements SessionResolver on top of a PIDSource and the
// /proc process tree. It holds no mutable cross-call state.
type Resolver struct {
	pids PIDSource
}

// NewResolver creates a resolver backed by the given pid source.
func NewResolver(pids PIDSource) *Resolver {
	return &Resolver{pids: pids}
}

// FocusedSession implements SessionResolver.
func (r *Resolver) FocusedSession(sessions []registry.SessionDescriptor) (string, error) {
	windowPID, ok := r.pids.ActiveWindowPID()
	if !ok {
		return "", nil
	}
	return ResolveSession(windowPID, sessions)
}

// ResolveSession matches the window-owning pid against a session
// snapshot.
//
// Zero candidates yield ErrNoSession, exactly one yields its id, two or
// more yield an AmbiguousError listing all matches in input order.
func ResolveSession(windowPID int, sessions []registry.SessionDescriptor) (string, error) {
	var matches []string
	for _, session := range sessions {
		if session.PID == windowPID || proctree.IsAncestor(windowPID, session.PID) {
			matches = append(matches, session.Session)
		}
	}

	switch len(matches) {
	case 0:
		return "", ErrNoSession
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Sessions: matches}
	}
}
