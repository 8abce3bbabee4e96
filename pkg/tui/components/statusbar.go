package components

import (
	"strings"

	"github.com/dshills/goterm"
)

// MessageLevel classifies a transient status bar message so it can be
// colored by outcome.
type MessageLevel int

const (
	MessageInfo MessageLevel = iota
	MessageSuccess
	MessageError
)

// StatusBar is the single-line bar at the bottom of the screen: a mode
// badge on the left, contextual text, and transient messages that
// expire after a number of frames.
type StatusBar struct {
	y     int
	width int

	left  string
	right string
	mode  string

	message      string
	messageLevel MessageLevel
	messageTimer int

	style StatusBarStyle
}

// StatusBarStyle defines the bar's colors.
type StatusBarStyle struct {
	Fg        goterm.Color
	Bg        goterm.Color
	ModeFg    goterm.Color
	ModeBg    goterm.Color
	InfoFg    goterm.Color
	SuccessFg goterm.Color
	ErrorFg   goterm.Color
}

// DefaultStatusBarStyle returns the bar's stock palette.
func DefaultStatusBarStyle() StatusBarStyle {
	return StatusBarStyle{
		Fg:        goterm.ColorRGB(220, 220, 220),
		Bg:        goterm.ColorRGB(40, 40, 40),
		ModeFg:    goterm.ColorRGB(0, 0, 0),
		ModeBg:    goterm.ColorRGB(100, 200, 255),
		InfoFg:    goterm.ColorRGB(255, 255, 0),
		SuccessFg: goterm.ColorRGB(90, 200, 90),
		ErrorFg:   goterm.ColorRGB(230, 80, 80),
	}
}

// NewStatusBar creates a status bar on the given row.
func NewStatusBar(y, width int) *StatusBar {
	return &StatusBar{
		y:     y,
		width: width,
		style: DefaultStatusBarStyle(),
	}
}

// SetPosition moves the bar, typically after a terminal resize.
func (s *StatusBar) SetPosition(y, width int) {
	s.y = y
	s.width = width
}

// SetLeft sets the left-hand contextual text.
func (s *StatusBar) SetLeft(text string) {
	s.left = text
}

// SetRight sets the right-hand contextual text.
func (s *StatusBar) SetRight(text string) {
	s.right = text
}

// SetMode sets the mode badge, e.g. "CANVAS" or "FORM".
func (s *StatusBar) SetMode(mode string) {
	s.mode = mode
}

// SetMessage shows a transient message for the given number of render
// frames. It replaces any message already showing.
func (s *StatusBar) SetMessage(message string, level MessageLevel, frames int) {
	s.message = message
	s.messageLevel = level
	s.messageTimer = frames
}

// ClearMessage drops the transient message immediately.
func (s *StatusBar) ClearMessage() {
	s.message = ""
	s.messageTimer = 0
}

// Message returns the transient message still showing, if any.
func (s *StatusBar) Message() string {
	if s.messageTimer <= 0 {
		return ""
	}
	return s.message
}

// Update advances the message timer. Call once per frame.
func (s *StatusBar) Update() {
	if s.messageTimer > 0 {
		s.messageTimer--
		if s.messageTimer == 0 {
			s.message = ""
		}
	}
}

// Render draws the bar.
func (s *StatusBar) Render(screen *goterm.Screen) {
	if screen == nil {
		return
	}
	if width, _ := screen.Size(); width != s.width {
		s.width = width
	}

	for x := 0; x < s.width; x++ {
		screen.SetCell(x, s.y, goterm.NewCell(' ', s.style.Fg, s.style.Bg, goterm.StyleNone))
	}

	x := 0
	if s.mode != "" {
		x = s.drawMode(screen, x) + 1
	}

	if s.message != "" && s.messageTimer > 0 {
		s.drawRunes(screen, x, s.message, s.messageFg(), goterm.StyleBold)
		return
	}

	if s.left != "" {
		x = s.drawRunes(screen, x, s.left, s.style.Fg, goterm.StyleNone) + 2
	}

	if s.right != "" {
		rightX := s.width - len([]rune(s.right))
		if rightX > x {
			s.drawRunes(screen, rightX, s.right, s.style.Fg, goterm.StyleDim)
		}
	}
}

func (s *StatusBar) messageFg() goterm.Color {
	switch s.messageLevel {
	case MessageSuccess:
		return s.style.SuccessFg
	case MessageError:
		return s.style.ErrorFg
	default:
		return s.style.InfoFg
	}
}

func (s *StatusBar) drawMode(screen *goterm.Screen, x int) int {
	badge := " " + strings.ToUpper(s.mode) + " "
	for i, ch := range []rune(badge) {
		if x+i >= s.width {
			break
		}
		screen.SetCell(x+i, s.y, goterm.NewCell(ch, s.style.ModeFg, s.style.ModeBg, goterm.StyleBold))
	}
	return x + len([]rune(badge))
}

func (s *StatusBar) drawRunes(screen *goterm.Screen, x int, text string, fg goterm.Color, style goterm.Style) int {
	runes := []rune(text)
	if max := s.width - x; len(runes) > max {
		if max <= 0 {
			return x
		}
		runes = runes[:max]
	}
	for i, ch := range runes {
		screen.SetCell(x+i, s.y, goterm.NewCell(ch, fg, s.style.Bg, style))
	}
	return x + len(runes)
}

// Height returns the rows the bar occupies, always 1.
func (s *StatusBar) Height() int {
	return 1
}
