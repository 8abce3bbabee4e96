package components

import (
	"github.com/dshills/goterm"
)

// Panel is a bordered, titled region holding scrollable lines of
// text. The run log and help overlay draw through it.
type Panel struct {
	title     string
	x, y      int
	width     int
	height    int
	content   []string
	styles    []goterm.Style
	scrollTop int
	follow    bool // keep the newest line visible as content grows
	style     PanelStyle
}

// PanelStyle defines a panel's colors.
type PanelStyle struct {
	TitleFg   goterm.Color
	BorderFg  goterm.Color
	ContentFg goterm.Color
	Bg        goterm.Color
	DimFg     goterm.Color
}

// DefaultPanelStyle returns the panel's stock palette.
func DefaultPanelStyle() PanelStyle {
	return PanelStyle{
		TitleFg:   goterm.ColorRGB(255, 255, 255),
		BorderFg:  goterm.ColorRGB(128, 128, 128),
		ContentFg: goterm.ColorRGB(220, 220, 220),
		Bg:        goterm.ColorDefault(),
		DimFg:     goterm.ColorRGB(140, 140, 140),
	}
}

// NewPanel creates a panel at the given region.
func NewPanel(title string, x, y, width, height int) *Panel {
	return &Panel{
		title:  title,
		x:      x,
		y:      y,
		width:  width,
		height: height,
		follow: true,
		style:  DefaultPanelStyle(),
	}
}

// SetRegion repositions and resizes the panel.
func (p *Panel) SetRegion(x, y, width, height int) {
	p.x, p.y = x, y
	p.width, p.height = width, height
	p.clampScroll()
}

// SetTitle replaces the title shown in the top border.
func (p *Panel) SetTitle(title string) {
	p.title = title
}

// SetContent replaces all lines. Styles reset to plain.
func (p *Panel) SetContent(lines []string) {
	p.content = append([]string(nil), lines...)
	p.styles = make([]goterm.Style, len(p.content))
	if p.follow {
		p.ScrollToBottom()
	} else {
		p.clampScroll()
	}
}

// AppendLine adds one line with a style. With follow on, the view
// keeps the new line visible.
func (p *Panel) AppendLine(line string, style goterm.Style) {
	p.content = append(p.content, line)
	p.styles = append(p.styles, style)
	if p.follow {
		p.ScrollToBottom()
	}
}

// Clear removes all content.
func (p *Panel) Clear() {
	p.content = nil
	p.styles = nil
	p.scrollTop = 0
	p.follow = true
}

// Len returns the number of content lines.
func (p *Panel) Len() int {
	return len(p.content)
}

// visibleRows is the line capacity inside the border.
func (p *Panel) visibleRows() int {
	rows := p.height - 2
	if rows < 0 {
		rows = 0
	}
	return rows
}

// ScrollUp moves the view up and disengages follow.
func (p *Panel) ScrollUp(n int) {
	p.scrollTop -= n
	p.follow = false
	p.clampScroll()
}

// ScrollDown moves the view down; reaching the end re-engages follow.
func (p *Panel) ScrollDown(n int) {
	p.scrollTop += n
	p.clampScroll()
	if p.scrollTop >= len(p.content)-p.visibleRows() {
		p.follow = true
	}
}

// ScrollToBottom jumps to the newest line and follows from then on.
func (p *Panel) ScrollToBottom() {
	p.scrollTop = len(p.content) - p.visibleRows()
	p.follow = true
	p.clampScroll()
}

func (p *Panel) clampScroll() {
	max := len(p.content) - p.visibleRows()
	if max < 0 {
		max = 0
	}
	if p.scrollTop > max {
		p.scrollTop = max
	}
	if p.scrollTop < 0 {
		p.scrollTop = 0
	}
}

// Render draws the panel.
func (p *Panel) Render(screen *goterm.Screen) {
	if screen == nil || p.width < 4 || p.height < 3 {
		return
	}

	right := p.x + p.width - 1
	bottom := p.y + p.height - 1

	for row := p.y; row <= bottom; row++ {
		for col := p.x; col <= right; col++ {
			screen.SetCell(col, row, goterm.NewCell(' ', p.style.ContentFg, p.style.Bg, goterm.StyleNone))
		}
	}

	screen.SetCell(p.x, p.y, goterm.NewCell('┌', p.style.BorderFg, p.style.Bg, goterm.StyleNone))
	screen.SetCell(right, p.y, goterm.NewCell('┐', p.style.BorderFg, p.style.Bg, goterm.StyleNone))
	screen.SetCell(p.x, bottom, goterm.NewCell('└', p.style.BorderFg, p.style.Bg, goterm.StyleNone))
	screen.SetCell(right, bottom, goterm.NewCell('┘', p.style.BorderFg, p.style.Bg, goterm.StyleNone))
	for col := p.x + 1; col < right; col++ {
		screen.SetCell(col, p.y, goterm.NewCell('─', p.style.BorderFg, p.style.Bg, goterm.StyleNone))
		screen.SetCell(col, bottom, goterm.NewCell('─', p.style.BorderFg, p.style.Bg, goterm.StyleNone))
	}
	for row := p.y + 1; row < bottom; row++ {
		screen.SetCell(p.x, row, goterm.NewCell('│', p.style.BorderFg, p.style.Bg, goterm.StyleNone))
		screen.SetCell(right, row, goterm.NewCell('│', p.style.BorderFg, p.style.Bg, goterm.StyleNone))
	}

	if p.title != "" {
		title := " " + p.title + " "
		p.drawRunes(screen, p.x+2, p.y, title, p.style.TitleFg, goterm.StyleBold, right)
	}

	rows := p.visibleRows()
	innerW := p.width - 2
	for i := 0; i < rows; i++ {
		idx := p.scrollTop + i
		if idx >= len(p.content) {
			break
		}
		style := goterm.StyleNone
		if idx < len(p.styles) {
			style = p.styles[idx]
		}
		line := p.content[idx]
		if len([]rune(line)) > innerW {
			line = string([]rune(line)[:innerW-1]) + "…"
		}
		p.drawRunes(screen, p.x+1, p.y+1+i, line, p.style.ContentFg, style, right)
	}

	// Scroll marker when older lines are hidden above.
	if p.scrollTop > 0 {
		p.drawRunes(screen, right-3, p.y, "▲", p.style.DimFg, goterm.StyleNone, right)
	}
	if p.scrollTop+rows < len(p.content) {
		p.drawRunes(screen, right-3, bottom, "▼", p.style.DimFg, goterm.StyleNone, right)
	}
}

func (p *Panel) drawRunes(screen *goterm.Screen, x, y int, text string, fg goterm.Color, style goterm.Style, maxX int) {
	for i, ch := range []rune(text) {
		if x+i >= maxX {
			break
		}
		screen.SetCell(x+i, y, goterm.NewCell(ch, fg, p.style.Bg, style))
	}
}
