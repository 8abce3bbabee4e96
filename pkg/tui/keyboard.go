package tui

import (
	"fmt"
	"strings"
	"sync"
)

// Mode names the editor's input contexts. Bindings are looked up per
// mode, so the same key can add a node on the canvas and type a letter
// into a form.
type Mode string

const (
	// ModeCanvas is graph navigation and editing.
	ModeCanvas Mode = "canvas"
	// ModePalette is the add-node picker.
	ModePalette Mode = "palette"
	// ModeForm is the property form.
	ModeForm Mode = "form"
)

// KeyEvent is one decoded keyboard input.
type KeyEvent struct {
	Key       rune
	Ctrl      bool
	Shift     bool
	Alt       bool
	IsSpecial bool
	Special   string // Enter, Escape, Tab, Up, Down, Left, Right, ...
}

// KeyHandler reacts to one key event.
type KeyHandler func(event KeyEvent) error

// KeyBinding is one registered key with its handler and help label.
type KeyBinding struct {
	Key     KeyEvent
	Handler KeyHandler
	Mode    Mode
	Label   string
}

// KeyboardHandler routes key events to bindings by mode. Keys no
// binding claims fall through to the mode's fallback, which is how
// typed text reaches the form and the palette filter.
type KeyboardHandler struct {
	mu sync.RWMutex

	currentMode    Mode
	bindings       map[Mode]map[string]*KeyBinding
	globalBindings map[string]*KeyBinding
	fallbacks      map[Mode]KeyHandler
}

func NewKeyboardHandler() *KeyboardHandler {
	kh := &KeyboardHandler{
		currentMode:    ModeCanvas,
		bindings:       make(map[Mode]map[string]*KeyBinding),
		globalBindings: make(map[string]*KeyBinding),
		fallbacks:      make(map[Mode]KeyHandler),
	}
	for _, mode := range []Mode{ModeCanvas, ModePalette, ModeForm} {
		kh.bindings[mode] = make(map[string]*KeyBinding)
	}
	return kh
}

// SetMode switches the active input context.
func (kh *KeyboardHandler) SetMode(mode Mode) {
	kh.mu.Lock()
	defer kh.mu.Unlock()
	kh.currentMode = mode
}

// GetMode returns the active input context.
func (kh *KeyboardHandler) GetMode() Mode {
	kh.mu.RLock()
	defer kh.mu.RUnlock()
	return kh.currentMode
}

// RegisterBinding attaches a handler to a key in one mode. Duplicate
// registration is a programming error and is rejected.
func (kh *KeyboardHandler) RegisterBinding(mode Mode, key KeyEvent, handler KeyHandler, label string) error {
	kh.mu.Lock()
	defer kh.mu.Unlock()

	keyStr := keyEventToString(key)
	if _, exists := kh.bindings[mode][keyStr]; exists {
		return fmt.Errorf("keybinding conflict: %s already registered in %s mode", keyStr, mode)
	}
	kh.bindings[mode][keyStr] = &KeyBinding{Key: key, Handler: handler, Mode: mode, Label: label}
	return nil
}

// RegisterGlobalBinding attaches a handler that wins in every mode.
func (kh *KeyboardHandler) RegisterGlobalBinding(key KeyEvent, handler KeyHandler, label string) error {
	kh.mu.Lock()
	defer kh.mu.Unlock()

	keyStr := keyEventToString(key)
	if _, exists := kh.globalBindings[keyStr]; exists {
		return fmt.Errorf("global keybinding conflict: %s already registered", keyStr)
	}
	kh.globalBindings[keyStr] = &KeyBinding{Key: key, Handler: handler, Label: label}
	return nil
}

// SetFallback receives every key the mode's bindings do not claim.
func (kh *KeyboardHandler) SetFallback(mode Mode, handler KeyHandler) {
	kh.mu.Lock()
	defer kh.mu.Unlock()
	kh.fallbacks[mode] = handler
}

// HandleKey dispatches one event: global bindings first, then the
// current mode's, then the mode fallback.
func (kh *KeyboardHandler) HandleKey(event KeyEvent) error {
	kh.mu.RLock()
	keyStr := keyEventToString(event)
	global := kh.globalBindings[keyStr]
	modal := kh.bindings[kh.currentMode][keyStr]
	fallback := kh.fallbacks[kh.currentMode]
	kh.mu.RUnlock()

	switch {
	case global != nil:
		return global.Handler(event)
	case modal != nil:
		return modal.Handler(event)
	case fallback != nil:
		return fallback(event)
	default:
		return nil
	}
}

// Bindings returns a mode's bindings for the help overlay.
func (kh *KeyboardHandler) Bindings(mode Mode) []*KeyBinding {
	kh.mu.RLock()
	defer kh.mu.RUnlock()

	out := make([]*KeyBinding, 0, len(kh.bindings[mode]))
	for _, b := range kh.bindings[mode] {
		out = append(out, b)
	}
	return out
}

// GlobalBindings returns the bindings active in every mode.
func (kh *KeyboardHandler) GlobalBindings() []*KeyBinding {
	kh.mu.RLock()
	defer kh.mu.RUnlock()

	out := make([]*KeyBinding, 0, len(kh.globalBindings))
	for _, b := range kh.globalBindings {
		out = append(out, b)
	}
	return out
}

// keyEventToString is the canonical lookup form of a key: "a",
// "Ctrl-s", "Enter", "Shift-Tab".
func keyEventToString(event KeyEvent) string {
	if event.IsSpecial {
		base := event.Special
		if event.Ctrl {
			base = "Ctrl-" + base
		}
		if event.Alt {
			base = "Alt-" + base
		}
		if event.Shift {
			base = "Shift-" + base
		}
		return base
	}

	key := string(event.Key)
	if event.Ctrl {
		key = fmt.Sprintf("Ctrl-%c", event.Key)
	}
	if event.Alt {
		key = "Alt-" + key
	}
	if event.Shift && event.Key >= 'a' && event.Key <= 'z' {
		key = strings.ToUpper(string(event.Key))
	}
	return key
}

// FormatKeyEvent renders a key for help text; same shape as the
// lookup form.
func FormatKeyEvent(event KeyEvent) string {
	return keyEventToString(event)
}

// ParseKeyBytes decodes one raw terminal read into a key event. The
// terminal is in raw mode, so escape sequences arrive as a single
// buffer.
func ParseKeyBytes(buf []byte) KeyEvent {
	if len(buf) == 0 {
		return KeyEvent{}
	}

	if buf[0] == 27 {
		if len(buf) == 1 {
			return KeyEvent{IsSpecial: true, Special: "Escape"}
		}
		if buf[1] == '[' && len(buf) > 2 {
			switch buf[2] {
			case 'A':
				return KeyEvent{IsSpecial: true, Special: "Up"}
			case 'B':
				return KeyEvent{IsSpecial: true, Special: "Down"}
			case 'C':
				return KeyEvent{IsSpecial: true, Special: "Right"}
			case 'D':
				return KeyEvent{IsSpecial: true, Special: "Left"}
			case 'Z':
				return KeyEvent{IsSpecial: true, Special: "Tab", Shift: true}
			case '3':
				return KeyEvent{IsSpecial: true, Special: "Delete"}
			}
		}
		return KeyEvent{IsSpecial: true, Special: "Escape"}
	}

	switch buf[0] {
	case 9:
		return KeyEvent{IsSpecial: true, Special: "Tab"}
	case 13:
		return KeyEvent{IsSpecial: true, Special: "Enter"}
	case 127:
		return KeyEvent{IsSpecial: true, Special: "Backspace"}
	}

	if buf[0] < 32 {
		return KeyEvent{Key: rune(buf[0] + 'a' - 1), Ctrl: true}
	}

	key := rune(buf[0])
	return KeyEvent{Key: key, Shift: key >= 'A' && key <= 'Z'}
}
