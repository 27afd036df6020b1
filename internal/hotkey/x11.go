package hotkey

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"turnkeyd/internal/logging"
)

// Property names read from the root window and the active window. Focus
// tracking and pid ownership are two independent optional properties;
// many windows omit one or both.
const (
	atomNameActiveWindow = "_NET_ACTIVE_WINDOW"
	atomNameWMPid        = "_NET_WM_PID"
)

const (
	// lockMask is the CapsLock modifier bit. Unlike NumLock it is the
	// fixed "lock" bit on every keyboard layout.
	lockMask uint16 = 0x0002

	// fallbackNumLockMask is Mod2, the conventional NumLock row. Used
	// whenever dynamic detection fails.
	fallbackNumLockMask uint16 = 0x0010

	// xkNumLock is the XK_Num_Lock keysym.
	xkNumLock xproto.Keysym = 0xff7f
)

// Conn owns one X11 connection for its lifetime and performs the
// protocol work behind the hotkey provider: atom/property lookups for
// the focused window's pid, and key grab/ungrab across lock-modifier
// permutations.
//
// xgb serializes request writes internally, so the async-side methods
// and the background poll loop may use the connection concurrently.
type Conn struct {
	xc     *xgb.Conn
	logger *logging.Logger

	root             xproto.Window
	atomActiveWindow xproto.Atom
	atomWMPid        xproto.Atom

	// numLockMask is detected once at construction and cached.
	numLockMask uint16

	// raw carries events from the single blocking reader goroutine.
	// Closed when the connection dies or is closed.
	raw chan xgb.Event
}

// Connect opens the X11 display and resolves the root window, the two
// property atoms, and the NumLock modifier bit.
func Connect(logger *logging.Logger) (*Conn, error) {
	if logger == nil {
		logger = logging.Default()
	}

	xc, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect X11 display: %w", err)
	}

	c := &Conn{
		xc:     xc,
		logger: logger,
		root:   xproto.Setup(xc).DefaultScreen(xc).Root,
	}

	c.atomActiveWindow, err = c.internAtom(atomNameActiveWindow)
	if err != nil {
		xc.Close()
		return nil, err
	}
	c.atomWMPid, err = c.internAtom(atomNameWMPid)
	if err != nil {
		xc.Close()
		return nil, err
	}

	c.numLockMask = c.detectNumLockMask()
	logger.Debug("X11 connection ready", "numlock_mask", fmt.Sprintf("%#04x", c.numLockMask))

	c.raw = make(chan xgb.Event, 32)
	go c.readEvents()

	return c, nil
}

// readEvents is the connection's single blocking reader. It forwards
// raw events for the poll loop to drain; with no registration active
// (grabs released), anything still arriving is dropped rather than
// blocking the display socket. WaitForEvent returning (nil, nil) means
// the connection is gone.
func (c *Conn) readEvents() {
	defer close(c.raw)
	for {
		ev, xerr := c.xc.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			// Per-event protocol errors (e.g. a late BadWindow) are
			// not fatal to the connection.
			c.logger.Debug("X11 event error", "error", xerr.Error())
			continue
		}
		select {
		case c.raw <- ev:
		default:
			c.logger.Debug("raw X11 event dropped, queue full")
		}
	}
}

// Close closes the X11 connection. The poll loop, if running, observes
// the closed connection and exits.
func (c *Conn) Close() {
	c.xc.Close()
}

func (c *Conn) internAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(c.xc, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern atom %s: %w", name, err)
	}
	return reply.Atom, nil
}

// ActiveWindowPID returns the owning pid of the currently focused
// window. ok is false when no window is focused, the active-window
// property is malformed, or the window publishes no pid; none of those
// is an error.
func (c *Conn) ActiveWindowPID() (int, bool) {
	win, ok := c.cardinalProperty(c.root, c.atomActiveWindow, xproto.AtomWindow)
	if !ok || win == 0 {
		return 0, false
	}
	pid, ok := c.cardinalProperty(xproto.Window(win), c.atomWMPid, xproto.AtomCardinal)
	if !ok {
		return 0, false
	}
	return int(pid), true
}

// cardinalProperty reads one 32-bit value of the given property.
// Protocol errors (e.g. the window vanished between the two queries)
// and unexpected formats all collapse to absence.
func (c *Conn) cardinalProperty(win xproto.Window, prop, typ xproto.Atom) (uint32, bool) {
	reply, err := xproto.GetProperty(c.xc, false, win, prop, typ, 0, 1).Reply()
	if err != nil || reply == nil {
		return 0, false
	}
	if reply.Format != 32 || len(reply.Value) < 4 {
		return 0, false
	}
	return xgb.Get32(reply.Value), true
}

// detectNumLockMask finds the NumLock modifier bit by scanning the
// modifier-to-keycode table for any keycode that maps to XK_Num_Lock.
// Any query failure falls back to Mod2.
func (c *Conn) detectNumLockMask() uint16 {
	modReply, err := xproto.GetModifierMapping(c.xc).Reply()
	if err != nil {
		return fallbackNumLockMask
	}

	setup := xproto.Setup(c.xc)
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)
	kbReply, err := xproto.GetKeyboardMapping(c.xc, setup.MinKeycode, count).Reply()
	if err != nil {
		return fallbackNumLockMask
	}

	return numLockMaskFromMappings(modReply, kbReply, setup.MinKeycode)
}

// numLockMaskFromMappings is the detection core, pure over the two
// mapping tables. The modifier map has 8 rows (Shift, Lock, Control,
// Mod1..Mod5) of KeycodesPerModifier slots each; the resulting mask bit
// for row i is 1 << i.
func numLockMaskFromMappings(mod *xproto.GetModifierMappingReply, kb *xproto.GetKeyboardMappingReply, minKeycode xproto.Keycode) uint16 {
	if mod == nil || kb == nil {
		return fallbackNumLockMask
	}
	perMod := int(mod.KeycodesPerModifier)
	perCode := int(kb.KeysymsPerKeycode)
	if perMod == 0 || perCode == 0 {
		return fallbackNumLockMask
	}

	// Keycodes whose keysym column contains XK_Num_Lock.
	numLockCodes := make(map[xproto.Keycode]bool)
	for i := 0; i*perCode < len(kb.Keysyms); i++ {
		for j := 0; j < perCode; j++ {
			if kb.Keysyms[i*perCode+j] == xkNumLock {
				numLockCodes[minKeycode+xproto.Keycode(i)] = true
				break
			}
		}
	}
	if len(numLockCodes) == 0 {
		return fallbackNumLockMask
	}

	for row := 0; row < 8; row++ {
		for k := 0; k < perMod; k++ {
			idx := row*perMod + k
			if idx >= len(mod.Keycodes) {
				break
			}
			if code := mod.Keycodes[idx]; code != 0 && numLockCodes[code] {
				return uint16(1) << row
			}
		}
	}
	return fallbackNumLockMask
}

// keycodeForKeysym resolves a keysym to the first keycode producing it,
// or 0 when the current keyboard has none.
func (c *Conn) keycodeForKeysym(sym uint32) xproto.Keycode {
	setup := xproto.Setup(c.xc)
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)
	reply, err := xproto.GetKeyboardMapping(c.xc, setup.MinKeycode, count).Reply()
	if err != nil || reply.KeysymsPerKeycode == 0 {
		return 0
	}
	perCode := int(reply.KeysymsPerKeycode)
	for i := 0; i*perCode < len(reply.Keysyms); i++ {
		for j := 0; j < perCode; j++ {
			if uint32(reply.Keysyms[i*perCode+j]) == sym {
				return setup.MinKeycode + xproto.Keycode(i)
			}
		}
	}
	return 0
}

// lockPermutations returns the four grab combinations for a binding's
// modifiers: no lock, CapsLock, NumLock, and both. GrabKey matches
// modifier state exactly, so a hotkey needs all four to fire regardless
// of lock-key toggle state. Ungrab must use the identical set.
func lockPermutations(mods, numLockMask uint16) [4]uint16 {
	return [4]uint16{
		mods,
		mods | lockMask,
		mods | numLockMask,
		mods | lockMask | numLockMask,
	}
}

// grabBinding grabs all four lock permutations of a binding on the root
// window. A failing combination (typically a conflicting grab held by
// another client) is logged and skipped; the binding reports fully ok
// only when every combination succeeded.
func (c *Conn) grabBinding(b *Binding) bool {
	ok := true
	for _, mods := range lockPermutations(b.Mods, c.numLockMask) {
		err := xproto.GrabKeyChecked(c.xc, false, c.root, mods, b.Keycode,
			xproto.GrabModeAsync, xproto.GrabModeAsync).Check()
		if err != nil {
			c.logger.Warn("key grab failed",
				"binding", b.Raw,
				"modifiers", fmt.Sprintf("%#04x", mods),
				"error", err)
			ok = false
		}
	}
	return ok
}

// ungrabBinding releases the same four combinations grabBinding used.
// Failures are logged at debug only: grabs are best-effort and the
// process may already be tearing down.
func (c *Conn) ungrabBinding(b *Binding) {
	for _, mods := range lockPermutations(b.Mods, c.numLockMask) {
		err := xproto.UngrabKeyChecked(c.xc, b.Keycode, c.root, mods).Check()
		if err != nil {
			c.logger.Debug("key ungrab failed",
				"binding", b.Raw,
				"modifiers", fmt.Sprintf("%#04x", mods),
				"error", err)
		}
	}
}
