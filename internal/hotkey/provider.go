package hotkey

import (
	"fmt"
	"sync"
	"sync/atomic"

	"turnkeyd/internal/logging"
)

// eventBuffer is the delivery channel capacity. The broker consumes
// promptly; the buffer only absorbs bursts while a delivery is in
// flight.
const eventBuffer = 128

// X11Provider implements Provider on top of an X11 connection adapter.
// The connection outlives individual registrations, so bindings can be
// re-registered (e.g. after a config reload) without reconnecting.
type X11Provider struct {
	conn   *Conn
	logger *logging.Logger

	mu         sync.Mutex
	registered bool
	bindings   []*Binding
	stop       *atomic.Bool
	loop       *eventLoop
	events     chan Event
}

// NewX11Provider connects to the display and returns the provider.
// Connection failure is fatal to provider startup; the caller decides
// whether to abort or run without hotkeys.
func NewX11Provider(logger *logging.Logger) (*X11Provider, error) {
	if logger == nil {
		logger = logging.Default()
	}
	conn, err := Connect(logger)
	if err != nil {
		return nil, err
	}
	return &X11Provider{conn: conn, logger: logger}, nil
}

// Register implements Provider.
func (p *X11Provider) Register(capture, paste KeyBinding, clipboard *KeyBinding) (*Registration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.registered {
		return nil, fmt.Errorf("hotkeys already registered")
	}

	specs := []struct {
		spec  string
		event Event
	}{
		{capture.Spec, EventCapture},
		{paste.Spec, EventPaste},
	}
	if clipboard != nil {
		specs = append(specs, struct {
			spec  string
			event Event
		}{clipboard.Spec, EventClipboard})
	}

	var bindings []*Binding
	for _, s := range specs {
		b, err := parseBinding(s.spec, s.event)
		if err != nil {
			return nil, fmt.Errorf("parse %s binding: %w", s.event, err)
		}
		bindings = append(bindings, b)
	}

	// Resolve keycodes and grab. Grab conflicts are non-fatal: they
	// lower the success count without aborting other bindings.
	bindingsOK := 0
	var grabbed []*Binding
	for _, b := range bindings {
		b.Keycode = p.conn.keycodeForKeysym(b.Keysym)
		if b.Keycode == 0 {
			p.logger.Warn("no keycode for binding on this keyboard", "binding", b.Raw)
			continue
		}
		if p.conn.grabBinding(b) {
			bindingsOK++
		}
		grabbed = append(grabbed, b)
	}

	stop := new(atomic.Bool)
	events := make(chan Event, eventBuffer)

	p.registered = true
	p.bindings = grabbed
	p.stop = stop
	p.events = events
	p.loop = startEventLoop(p.conn, grabbed, stop, events, p.logger.WithComponent("hotkey-loop"))

	p.logger.Info("hotkeys registered",
		"bindings_ok", bindingsOK,
		"bindings_attempted", len(bindings))

	return &Registration{Events: events, BindingsOK: bindingsOK}, nil
}

// Unregister implements Provider. It releases every grabbed binding
// with the same lock permutations used at grab time and stops the poll
// loop, waiting out at most one poll timeout.
func (p *X11Provider) Unregister() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.registered {
		return
	}

	p.stop.Store(true)
	p.loop.wait()

	for _, b := range p.bindings {
		p.conn.ungrabBinding(b)
	}

	p.registered = false
	p.bindings = nil
	p.loop = nil
	p.events = nil
	p.stop = nil
}

// PIDSource exposes the adapter's focused-window query for the focus
// resolver.
func (p *X11Provider) PIDSource() *Conn {
	return p.conn
}

// Close releases the X11 connection. Any active registration is
// unregistered first.
func (p *X11Provider) Close() {
	p.Unregister()
	p.conn.Close()
}
