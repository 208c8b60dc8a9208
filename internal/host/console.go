package host

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/colorer/internal/color"
)

type buffer struct {
	fileName string
	lines    []string
	painted  map[int][]Span
}

// Console is an in-process host holding buffers in memory. It backs the
// command line tool and tests.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	nextID  EditorID
	buffers map[EditorID]*buffer
	current EditorID
	focused bool

	redraws   map[EditorID]int
	fg, bg    color.Color
	trueColor bool
	errors    []string
}

// NewConsole creates a console host writing error messages to out.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = io.Discard
	}
	return &Console{
		out:     out,
		nextID:  1,
		buffers: make(map[EditorID]*buffer),
		redraws: make(map[EditorID]int),
		fg:      color.Default,
		bg:      color.Default,
	}
}

// Open adds a buffer and returns its id.
func (c *Console) Open(fileName string, lines []string) EditorID {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.buffers[id] = &buffer{fileName: fileName, lines: lines, painted: make(map[int][]Span)}
	return id
}

// OpenAs adds a buffer under a caller-chosen id.
func (c *Console) OpenAs(id EditorID, fileName string, lines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffers[id] = &buffer{fileName: fileName, lines: lines, painted: make(map[int][]Span)}
	if id >= c.nextID {
		c.nextID = id + 1
	}
}

// OpenFile reads a file from disk into a new buffer.
func (c *Console) OpenFile(path string) (EditorID, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return c.Open(path, lines), nil
}

// SetLines replaces the text of a buffer.
func (c *Console) SetLines(id EditorID, lines []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buffers[id]
	if !ok {
		return ErrNoEditor
	}
	b.lines = lines
	return nil
}

// Close removes a buffer.
func (c *Console) Close(id EditorID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buffers, id)
	if c.current == id {
		c.focused = false
	}
}

// Focus makes id the current editor.
func (c *Console) Focus(id EditorID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = id
	c.focused = true
}

// Current implements Editors.
func (c *Console) Current() (EditorID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.focused {
		return 0, false
	}
	_, ok := c.buffers[c.current]
	return c.current, ok
}

// IDs returns the open buffer ids in ascending order.
func (c *Console) IDs() []EditorID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]EditorID, 0, len(c.buffers))
	for id := range c.buffers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Info implements Editors.
func (c *Console) Info(id EditorID) (Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buffers[id]
	if !ok {
		return Info{}, fmt.Errorf("%w: %d", ErrNoEditor, id)
	}
	n := min(len(b.lines), DetectLines)
	first := make([]string, n)
	copy(first, b.lines[:n])
	return Info{ID: id, FileName: b.fileName, FirstLines: first, LineCount: len(b.lines)}, nil
}

// Lines implements Editors.
func (c *Console) Lines(id EditorID, from, count int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoEditor, id)
	}
	if from < 0 || from >= len(b.lines) || count <= 0 {
		return nil, nil
	}
	end := min(from+count, len(b.lines))
	out := make([]string, end-from)
	copy(out, b.lines[from:end])
	return out, nil
}

// Paint implements Host.
func (c *Console) Paint(id EditorID, line int, spans []Span) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoEditor, id)
	}
	b.painted[line] = spans
	return nil
}

// Painted returns the spans last painted on a line.
func (c *Console) Painted(id EditorID, line int) []Span {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.buffers[id]; ok {
		return b.painted[line]
	}
	return nil
}

// Redraw implements Host.
func (c *Console) Redraw(id EditorID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redraws[id]++
}

// Redraws returns how many redraws of id were requested.
func (c *Console) Redraws(id EditorID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redraws[id]
}

// SetEditorColors implements Host.
func (c *Console) SetEditorColors(fg, bg color.Color, trueColor bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fg, c.bg, c.trueColor = fg, bg, trueColor
	return nil
}

// EditorColors returns the colors last set with SetEditorColors.
func (c *Console) EditorColors() (fg, bg color.Color, trueColor bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fg, c.bg, c.trueColor
}

// ShowError implements Host.
func (c *Console) ShowError(title string, lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := title
	if len(lines) > 0 {
		msg += ": " + strings.Join(lines, "; ")
	}
	c.errors = append(c.errors, msg)
	fmt.Fprintln(c.out, msg)
}

// Errors returns every message passed to ShowError.
func (c *Console) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.errors))
	copy(out, c.errors)
	return out
}
