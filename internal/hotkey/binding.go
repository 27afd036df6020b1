package hotkey

import (
	"fmt"
	"strings"

	"github.com/jezek/xgb/xproto"
)

// X11 modifier mask bits used by binding specs. Alt is Mod1 and
// Super/Win is Mod4 on stock X11 modifier maps.
const (
	maskShift   uint16 = 1 << 0
	maskControl uint16 = 1 << 2
	maskMod1    uint16 = 1 << 3
	maskMod4    uint16 = 1 << 6
)

// Binding is a parsed, platform-resolved key combination. The adapter
// owns it for the lifetime of the grab; Raw is kept for diagnostics and
// so grab and ungrab use the same identity.
type Binding struct {
	// Mods is the modifier bitmask requested by the spec, without any
	// lock-modifier bits.
	Mods uint16

	// Keysym is the base key's symbol, resolved from the spec.
	Keysym uint32

	// Keycode is filled in at grab time from the server's keyboard
	// mapping. Zero means the key has no keycode on this keyboard.
	Keycode xproto.Keycode

	// Raw is the original spec string.
	Raw string

	// Event is the hotkey event this binding produces when matched.
	Event Event
}

// parseBinding parses a spec string such as "Super+Shift+C" into a
// Binding for the given event. Modifier names are joined by '+' and the
// final token is the base key name; matching is case-insensitive.
func parseBinding(spec string, event Event) (*Binding, error) {
	parts := strings.Split(spec, "+")
	if len(parts) == 0 || strings.TrimSpace(parts[len(parts)-1]) == "" {
		return nil, fmt.Errorf("empty binding spec %q", spec)
	}

	var mods uint16
	for _, part := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "shift":
			mods |= maskShift
		case "ctrl", "control":
			mods |= maskControl
		case "alt", "mod1":
			mods |= maskMod1
		case "super", "win", "cmd", "mod4":
			mods |= maskMod4
		default:
			return nil, fmt.Errorf("unknown modifier %q in binding %q", part, spec)
		}
	}

	keyName := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	keysym, ok := keysymByName[keyName]
	if !ok {
		return nil, fmt.Errorf("unknown key %q in binding %q", parts[len(parts)-1], spec)
	}

	return &Binding{
		Mods:   mods,
		Keysym: keysym,
		Raw:    spec,
		Event:  event,
	}, nil
}

// ValidateSpec reports whether spec parses as a key binding. It is the
// same parse Register performs, exposed so configuration can be
// rejected before any grab is attempted.
func ValidateSpec(spec string) error {
	_, err := parseBinding(spec, EventCapture)
	return err
}

// keysymByName maps lowercase key names to X11 keysyms. Letters and
// digits use their Latin-1 symbols; the rest are the usual XK_ values.
var keysymByName = buildKeysymTable()

func buildKeysymTable() map[string]uint32 {
	table := map[string]uint32{
		"space":        0x0020,
		"return":       0xff0d,
		"enter":        0xff0d,
		"tab":          0xff09,
		"escape":       0xff1b,
		"esc":          0xff1b,
		"backspace":    0xff08,
		"delete":       0xffff,
		"insert":       0xff63,
		"home":         0xff50,
		"end":          0xff57,
		"pageup":       0xff55,
		"pagedown":     0xff56,
		"left":         0xff51,
		"up":           0xff52,
		"right":        0xff53,
		"down":         0xff54,
		"comma":        0x002c,
		"period":       0x002e,
		"slash":        0x002f,
		"semicolon":    0x003b,
		"apostrophe":   0x0027,
		"minus":        0x002d,
		"equal":        0x003d,
		"grave":        0x0060,
		"bracketleft":  0x005b,
		"bracketright": 0x005d,
		"backslash":    0x005c,
	}
	for c := byte('a'); c <= 'z'; c++ {
		table[string(c)] = uint32(c)
	}
	for c := byte('0'); c <= '9'; c++ {
		table[string(c)] = uint32(c)
	}
	for i := 1; i <= 12; i++ {
		table[fmt.Sprintf("f%d", i)] = uint32(0xffbe + i - 1)
	}
	return table
}
