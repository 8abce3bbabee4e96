package tui

import (
	"errors"
	"testing"
)

// TestParseKeyBytes decodes the raw byte sequences a raw-mode terminal
// delivers.
func TestParseKeyBytes(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want KeyEvent
	}{
		{"letter", []byte{'a'}, KeyEvent{Key: 'a'}},
		{"uppercase letter", []byte{'D'}, KeyEvent{Key: 'D', Shift: true}},
		{"digit", []byte{'0'}, KeyEvent{Key: '0'}},
		{"space", []byte{' '}, KeyEvent{Key: ' '}},
		{"ctrl-s", []byte{19}, KeyEvent{Key: 's', Ctrl: true}},
		{"ctrl-a", []byte{1}, KeyEvent{Key: 'a', Ctrl: true}},
		{"tab", []byte{9}, KeyEvent{IsSpecial: true, Special: "Tab"}},
		{"enter", []byte{13}, KeyEvent{IsSpecial: true, Special: "Enter"}},
		{"backspace", []byte{127}, KeyEvent{IsSpecial: true, Special: "Backspace"}},
		{"escape alone", []byte{27}, KeyEvent{IsSpecial: true, Special: "Escape"}},
		{"arrow up", []byte{27, '[', 'A'}, KeyEvent{IsSpecial: true, Special: "Up"}},
		{"arrow down", []byte{27, '[', 'B'}, KeyEvent{IsSpecial: true, Special: "Down"}},
		{"arrow right", []byte{27, '[', 'C'}, KeyEvent{IsSpecial: true, Special: "Right"}},
		{"arrow left", []byte{27, '[', 'D'}, KeyEvent{IsSpecial: true, Special: "Left"}},
		{"shift-tab", []byte{27, '[', 'Z'}, KeyEvent{IsSpecial: true, Special: "Tab", Shift: true}},
		{"empty read", nil, KeyEvent{}},
	}

	for _, tt := range tests {
		if got := ParseKeyBytes(tt.buf); got != tt.want {
			t.Errorf("%s: ParseKeyBytes(%v) = %+v, want %+v", tt.name, tt.buf, got, tt.want)
		}
	}
}

// TestKeyEventToString verifies the canonical lookup strings bindings
// and form routing share.
func TestKeyEventToString(t *testing.T) {
	tests := []struct {
		event KeyEvent
		want  string
	}{
		{KeyEvent{Key: 'a'}, "a"},
		{KeyEvent{Key: 'D', Shift: true}, "D"},
		{KeyEvent{Key: 's', Ctrl: true}, "Ctrl-s"},
		{KeyEvent{Key: ' '}, " "},
		{KeyEvent{IsSpecial: true, Special: "Enter"}, "Enter"},
		{KeyEvent{IsSpecial: true, Special: "Tab", Shift: true}, "Shift-Tab"},
	}

	for _, tt := range tests {
		if got := keyEventToString(tt.event); got != tt.want {
			t.Errorf("keyEventToString(%+v) = %q, want %q", tt.event, got, tt.want)
		}
	}
}

// TestKeyboardHandlerModalDispatch verifies a key runs the binding for
// the current mode only.
func TestKeyboardHandlerModalDispatch(t *testing.T) {
	kh := NewKeyboardHandler()

	var canvasHits, formHits int
	err := kh.RegisterBinding(ModeCanvas, KeyEvent{Key: 'd'}, func(KeyEvent) error {
		canvasHits++
		return nil
	}, "delete node")
	if err != nil {
		t.Fatalf("RegisterBinding() error = %v", err)
	}
	err = kh.RegisterBinding(ModeForm, KeyEvent{Key: 'd'}, func(KeyEvent) error {
		formHits++
		return nil
	}, "type d")
	if err != nil {
		t.Fatalf("RegisterBinding() error = %v", err)
	}

	if err := kh.HandleKey(KeyEvent{Key: 'd'}); err != nil {
		t.Fatalf("HandleKey() error = %v", err)
	}
	kh.SetMode(ModeForm)
	if err := kh.HandleKey(KeyEvent{Key: 'd'}); err != nil {
		t.Fatalf("HandleKey() error = %v", err)
	}

	if canvasHits != 1 || formHits != 1 {
		t.Errorf("hits = canvas %d, form %d, want 1 and 1", canvasHits, formHits)
	}
}

// TestKeyboardHandlerConflict verifies duplicate registration fails.
func TestKeyboardHandlerConflict(t *testing.T) {
	kh := NewKeyboardHandler()
	handler := func(KeyEvent) error { return nil }

	if err := kh.RegisterBinding(ModeCanvas, KeyEvent{Key: 'x'}, handler, "first"); err != nil {
		t.Fatalf("first registration error = %v", err)
	}
	if err := kh.RegisterBinding(ModeCanvas, KeyEvent{Key: 'x'}, handler, "second"); err == nil {
		t.Error("duplicate registration should fail")
	}

	// The same key in another mode is fine.
	if err := kh.RegisterBinding(ModePalette, KeyEvent{Key: 'x'}, handler, "palette"); err != nil {
		t.Errorf("cross-mode registration error = %v", err)
	}
}

// TestKeyboardHandlerGlobalWins verifies global bindings preempt modal
// ones.
func TestKeyboardHandlerGlobalWins(t *testing.T) {
	kh := NewKeyboardHandler()

	var globalHits, modalHits int
	quit := KeyEvent{Key: 'c', Ctrl: true}
	if err := kh.RegisterGlobalBinding(quit, func(KeyEvent) error {
		globalHits++
		return nil
	}, "quit"); err != nil {
		t.Fatalf("RegisterGlobalBinding() error = %v", err)
	}
	if err := kh.RegisterBinding(ModeCanvas, quit, func(KeyEvent) error {
		modalHits++
		return nil
	}, "shadowed"); err != nil {
		t.Fatalf("RegisterBinding() error = %v", err)
	}

	if err := kh.HandleKey(quit); err != nil {
		t.Fatalf("HandleKey() error = %v", err)
	}
	if globalHits != 1 || modalHits != 0 {
		t.Errorf("hits = global %d, modal %d, want 1 and 0", globalHits, modalHits)
	}
}

// TestKeyboardHandlerFallback verifies unbound keys reach the mode's
// fallback, which is how typed text gets to the form.
func TestKeyboardHandlerFallback(t *testing.T) {
	kh := NewKeyboardHandler()
	kh.SetMode(ModeForm)

	var received []rune
	kh.SetFallback(ModeForm, func(event KeyEvent) error {
		received = append(received, event.Key)
		return nil
	})

	for _, r := range "abc" {
		if err := kh.HandleKey(KeyEvent{Key: r}); err != nil {
			t.Fatalf("HandleKey(%q) error = %v", r, err)
		}
	}
	if string(received) != "abc" {
		t.Errorf("fallback received %q, want abc", string(received))
	}

	// Keys with no binding and no fallback are silently dropped.
	kh.SetMode(ModeCanvas)
	if err := kh.HandleKey(KeyEvent{Key: 'z'}); err != nil {
		t.Errorf("unbound key error = %v, want nil", err)
	}
}

// TestKeyboardHandlerPropagatesHandlerError verifies handler errors
// reach the caller for the status line.
func TestKeyboardHandlerPropagatesHandlerError(t *testing.T) {
	kh := NewKeyboardHandler()
	boom := errors.New("no workflow loaded")
	if err := kh.RegisterBinding(ModeCanvas, KeyEvent{Key: 'r'}, func(KeyEvent) error {
		return boom
	}, "run"); err != nil {
		t.Fatalf("RegisterBinding() error = %v", err)
	}

	if err := kh.HandleKey(KeyEvent{Key: 'r'}); !errors.Is(err, boom) {
		t.Errorf("HandleKey() error = %v, want the handler's error", err)
	}
}

// TestKeyboardHandlerBindingsListing verifies help can enumerate a
// mode's bindings.
func TestKeyboardHandlerBindingsListing(t *testing.T) {
	kh := NewKeyboardHandler()
	handler := func(KeyEvent) error { return nil }

	kh.RegisterBinding(ModeCanvas, KeyEvent{Key: 'a'}, handler, "add node")
	kh.RegisterBinding(ModeCanvas, KeyEvent{Key: 'd'}, handler, "delete node")
	kh.RegisterBinding(ModePalette, KeyEvent{Key: 'a'}, handler, "unrelated")

	bindings := kh.Bindings(ModeCanvas)
	if len(bindings) != 2 {
		t.Fatalf("Bindings(canvas) returned %d, want 2", len(bindings))
	}
	labels := map[string]bool{}
	for _, b := range bindings {
		labels[b.Label] = true
	}
	if !labels["add node"] || !labels["delete node"] {
		t.Errorf("labels = %v", labels)
	}
}
