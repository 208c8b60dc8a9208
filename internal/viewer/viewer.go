// Package viewer shows a highlighted file in a full-screen tcell view.
package viewer

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/colorer/internal/color"
	"github.com/dshills/colorer/internal/host"
)

const tabWidth = 8

// Document is a highlighted file ready to be shown.
type Document struct {
	Title string
	Lines []string

	// Spans holds the coloring of each line, indexed like Lines.
	Spans [][]host.Span

	// Text is the style of uncolored text and of the background.
	Text color.Style
}

// Viewer displays documents.
type Viewer struct {
	newScreen func() (tcell.Screen, error)
	mu        sync.Mutex
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithScreen sets the screen factory used by Show.
func WithScreen(fn func() (tcell.Screen, error)) Option {
	return func(v *Viewer) {
		v.newScreen = fn
	}
}

// New creates a viewer on the terminal.
func New(opts ...Option) *Viewer {
	v := &Viewer{newScreen: tcell.NewScreen}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Show opens a screen, runs the view until the user quits and restores
// the terminal.
func (v *Viewer) Show(doc *Document) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	screen, err := v.newScreen()
	if err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	defer screen.Fini()
	return Run(screen, doc)
}

// Run shows doc on an initialized screen until Escape, q or F10 is
// pressed. Arrow keys, Page Up/Down, Home and End scroll.
func Run(screen tcell.Screen, doc *Document) error {
	top, left := 0, 0
	for {
		draw(screen, doc, top, left)
		screen.Show()

		switch ev := screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			_, h := screen.Size()
			page := max(h-1, 1)
			last := max(len(doc.Lines)-page, 0)
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyF10:
				return nil
			case tcell.KeyRune:
				if ev.Rune() == 'q' || ev.Rune() == 'Q' {
					return nil
				}
			case tcell.KeyUp:
				top--
			case tcell.KeyDown:
				top++
			case tcell.KeyPgUp:
				top -= page
			case tcell.KeyPgDn:
				top += page
			case tcell.KeyHome:
				top, left = 0, 0
			case tcell.KeyEnd:
				top = last
			case tcell.KeyLeft:
				left--
			case tcell.KeyRight:
				left++
			}
			top = min(max(top, 0), last)
			left = max(left, 0)
		}
	}
}

// draw paints the title bar and the visible lines.
func draw(screen tcell.Screen, doc *Document, top, left int) {
	width, height := screen.Size()
	base := doc.Text.Tcell()
	screen.Clear()

	title := fmt.Sprintf(" %s  %d lines", doc.Title, len(doc.Lines))
	titleStyle := base.Reverse(true)
	x := 0
	for _, r := range title {
		if x >= width {
			break
		}
		screen.SetContent(x, 0, r, nil, titleStyle)
		x++
	}
	for ; x < width; x++ {
		screen.SetContent(x, 0, ' ', nil, titleStyle)
	}

	for row := 1; row < height; row++ {
		line := top + row - 1
		x := 0
		if line < len(doc.Lines) {
			var spans []host.Span
			if line < len(doc.Spans) {
				spans = doc.Spans[line]
			}
			x = drawLine(screen, row, left, width, doc.Lines[line], styles(doc.Text, doc.Lines[line], spans))
		}
		for ; x < width; x++ {
			screen.SetContent(x, row, ' ', nil, base)
		}
	}
}

// drawLine draws text shifted left by left columns and returns the next
// free screen column.
func drawLine(screen tcell.Screen, row, left, width int, text string, byteStyles []tcell.Style) int {
	col := 0
	put := func(r rune, st tcell.Style) {
		if x := col - left; x >= 0 && x < width {
			screen.SetContent(x, row, r, nil, st)
		}
		col++
	}
	for i, r := range text {
		st := byteStyles[i]
		if r == '\t' {
			for {
				put(' ', st)
				if col%tabWidth == 0 {
					break
				}
			}
			continue
		}
		put(r, st)
	}
	return max(min(col-left, width), 0)
}

// styles resolves the style of every byte of text. Later spans are laid
// over earlier ones.
func styles(text color.Style, line string, spans []host.Span) []tcell.Style {
	resolved := make([]color.Style, len(line))
	for i := range resolved {
		resolved[i] = text
	}
	for _, sp := range spans {
		end := sp.EndCol
		if end < 0 || end > len(line) {
			end = len(line)
		}
		for i := max(sp.StartCol, 0); i < end; i++ {
			resolved[i] = resolved[i].Merge(sp.Style)
		}
	}
	out := make([]tcell.Style, len(line))
	for i, st := range resolved {
		out[i] = st.Tcell()
	}
	return out
}
