package colorer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dshills/colorer/internal/host"
	"github.com/dshills/colorer/internal/session"
)

// HandleEvent processes one host event. Nothing escapes to the host: a
// failure, or a panic in the engine, is logged and shown, the event is
// dropped and the add-on stays enabled. Events are ignored while
// disabled.
func (s *Set) HandleEvent(ev host.Event) {
	if s.state != StateEnabled {
		return
	}
	if err := s.handle(ev); err != nil {
		s.log.WithError(err).WithField("event", ev.String()).Error("event failed")
		s.showError(err)
	}
}

func (s *Set) handle(ev host.Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic handling %s: %v", ev, p)
		}
	}()

	switch e := ev.(type) {
	case host.Opened, host.GotFocus:
		if _, ok := s.reg.Attach(e.Editor()); !ok {
			return fmt.Errorf("%w %d", ErrNoSession, e.Editor())
		}
	case host.Read:
		sess, ok := s.reg.Attach(e.ID)
		if !ok {
			return fmt.Errorf("%w %d", ErrNoSession, e.ID)
		}
		sess.Invalidate(0)
	case host.Changed:
		if sess, ok := s.reg.Lookup(e.ID); ok {
			sess.Invalidate(e.Line)
		}
	case host.Redraw:
		return s.paint(e)
	case host.KillFocus:
	case host.Closed:
		s.reg.Detach(e.ID, true)
	default:
		s.log.WithField("event", ev.String()).Debug("unhandled event")
	}
	return nil
}

// paint colors the visible lines of an editor.
func (s *Set) paint(e host.Redraw) error {
	sess, ok := s.reg.Attach(e.ID)
	if !ok {
		return fmt.Errorf("%w %d", ErrNoSession, e.ID)
	}
	src := func(from, count int) ([]string, error) {
		return s.host.Lines(e.ID, from, count)
	}
	lines, err := sess.Highlight(src, e.TopLine, e.Height, session.Cursor{Line: e.CursorLine, Col: e.CursorCol})
	if err != nil {
		return fmt.Errorf("highlighting editor %d: %w", e.ID, err)
	}
	for _, l := range lines {
		if err := s.host.Paint(e.ID, l.Line, l.Spans); err != nil {
			return fmt.Errorf("painting editor %d: %w", e.ID, err)
		}
	}
	s.log.WithFields(logrus.Fields{"editor": e.ID, "lines": len(lines)}).Trace("painted")
	return nil
}
