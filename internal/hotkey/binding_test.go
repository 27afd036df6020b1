package hotkey

import "testing"

func TestParseBindingFull(t *testing.T) {
	b, err := parseBinding("Super+Shift+C", EventCapture)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Mods != maskMod4|maskShift {
		t.Errorf("mods = %#04x, want %#04x", b.Mods, maskMod4|maskShift)
	}
	if b.Keysym != uint32('c') {
		t.Errorf("keysym = %#x, want %#x", b.Keysym, 'c')
	}
	if b.Raw != "Super+Shift+C" {
		t.Errorf("raw = %q", b.Raw)
	}
	if b.Event != EventCapture {
		t.Errorf("event = %v", b.Event)
	}
}

func TestParseBindingModifierAliases(t *testing.T) {
	tests := []struct {
		spec string
		mods uint16
	}{
		{"Ctrl+A", maskControl},
		{"Control+A", maskControl},
		{"Alt+A", maskMod1},
		{"Mod1+A", maskMod1},
		{"Super+A", maskMod4},
		{"Win+A", maskMod4},
		{"Mod4+A", maskMod4},
		{"Ctrl+Alt+Shift+A", maskControl | maskMod1 | maskShift},
	}
	for _, test := range tests {
		t.Run(test.spec, func(t *testing.T) {
			b, err := parseBinding(test.spec, EventPaste)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.Mods != test.mods {
				t.Errorf("mods = %#04x, want %#04x", b.Mods, test.mods)
			}
		})
	}
}

func TestParseBindingBareKey(t *testing.T) {
	b, err := parseBinding("F9", EventClipboard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Mods != 0 {
		t.Errorf("bare key should have no modifiers, got %#04x", b.Mods)
	}
	if b.Keysym != 0xffc6 {
		t.Errorf("keysym = %#x, want %#x (XK_F9)", b.Keysym, 0xffc6)
	}
}

func TestParseBindingNamedKeys(t *testing.T) {
	tests := []struct {
		name   string
		keysym uint32
	}{
		{"space", 0x0020},
		{"Return", 0xff0d},
		{"enter", 0xff0d},
		{"Escape", 0xff1b},
		{"7", uint32('7')},
		{"comma", 0x002c},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b, err := parseBinding("Ctrl+"+test.name, EventCapture)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.Keysym != test.keysym {
				t.Errorf("keysym = %#x, want %#x", b.Keysym, test.keysym)
			}
		})
	}
}

func TestValidateSpec(t *testing.T) {
	if err := ValidateSpec("Super+Shift+C"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateSpec("Hyper+C"); err == nil {
		t.Error("expected error for unknown modifier")
	}
}

func TestParseBindingErrors(t *testing.T) {
	for _, spec := range []string{"", "Hyper+C", "Ctrl+NoSuchKey", "Ctrl+"} {
		t.Run(spec, func(t *testing.T) {
			if _, err := parseBinding(spec, EventCapture); err == nil {
				t.Errorf("expected error for spec %q", spec)
			}
		})
	}
}
