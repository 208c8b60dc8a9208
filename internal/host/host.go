// Package host defines the boundary between the add-on and the text
// editor hosting it: the editor events the add-on consumes and the
// services it calls back into.
package host

import (
	"errors"
	"fmt"

	"github.com/dshills/colorer/internal/color"
)

// EditorID identifies an open editor buffer. It is unique while the
// buffer is open and may be reused after it closes.
type EditorID int64

// DetectLines is the number of leading lines hosts report in Info.
const DetectLines = 3

// ErrNoEditor is returned for an id that names no open editor.
var ErrNoEditor = errors.New("host: no such editor")

// Info describes an open editor buffer.
type Info struct {
	// ID is the editor id.
	ID EditorID

	// FileName is the path of the edited file.
	FileName string

	// FirstLines holds the first lines of the buffer, used for file type
	// detection.
	FirstLines []string

	// LineCount is the number of lines in the buffer.
	LineCount int
}

// Span is a colored range of one line.
type Span struct {
	StartCol int // byte offset, inclusive
	EndCol   int // byte offset, exclusive; -1 extends to the end of the line
	Style    color.Style
}

// Editors gives access to the open editor buffers.
type Editors interface {
	// Current returns the focused editor, if any.
	Current() (EditorID, bool)

	// Info describes an editor.
	Info(id EditorID) (Info, error)

	// Lines returns count lines starting at from. Fewer lines are returned
	// at the end of the buffer.
	Lines(id EditorID, from, count int) ([]string, error)
}

// Host is the full set of services the add-on calls.
type Host interface {
	Editors

	// Paint replaces the colors of one line of an editor.
	Paint(id EditorID, line int, spans []Span) error

	// Redraw asks the host to repaint an editor.
	Redraw(id EditorID)

	// SetEditorColors sets the default text colors of the host editor.
	SetEditorColors(fg, bg color.Color, trueColor bool) error

	// ShowError displays an error message to the user.
	ShowError(title string, lines ...string)
}

// Event is a notification from the host about one editor.
type Event interface {
	Editor() EditorID
	fmt.Stringer
}

// Opened is sent when a buffer is opened.
type Opened struct{ ID EditorID }

// GotFocus is sent when an editor becomes the current one.
type GotFocus struct{ ID EditorID }

// KillFocus is sent when an editor loses focus.
type KillFocus struct{ ID EditorID }

// Read is sent after a file has been (re)read into a buffer.
type Read struct{ ID EditorID }

// Closed is sent when a buffer is closed.
type Closed struct{ ID EditorID }

// Changed is sent when buffer text changes.
type Changed struct {
	ID EditorID

	// Line is the first changed line.
	Line int
}

// Redraw is sent before the host paints a visible range of an editor.
type Redraw struct {
	ID EditorID

	// TopLine is the first visible line.
	TopLine int

	// Height is the number of visible lines.
	Height int

	// CursorLine and CursorCol locate the cursor.
	CursorLine int
	CursorCol  int
}

func (e Opened) Editor() EditorID    { return e.ID }
func (e GotFocus) Editor() EditorID  { return e.ID }
func (e KillFocus) Editor() EditorID { return e.ID }
func (e Read) Editor() EditorID      { return e.ID }
func (e Closed) Editor() EditorID    { return e.ID }
func (e Changed) Editor() EditorID   { return e.ID }
func (e Redraw) Editor() EditorID    { return e.ID }

func (e Opened) String() string    { return fmt.Sprintf("opened(%d)", e.ID) }
func (e GotFocus) String() string  { return fmt.Sprintf("gotfocus(%d)", e.ID) }
func (e KillFocus) String() string { return fmt.Sprintf("killfocus(%d)", e.ID) }
func (e Read) String() string      { return fmt.Sprintf("read(%d)", e.ID) }
func (e Closed) String() string    { return fmt.Sprintf("closed(%d)", e.ID) }
func (e Changed) String() string   { return fmt.Sprintf("changed(%d, line %d)", e.ID, e.Line) }
func (e Redraw) String() string {
	return fmt.Sprintf("redraw(%d, lines %d+%d)", e.ID, e.TopLine, e.Height)
}
