package colorer

import (
	"fmt"
	"os"
	"strings"

	"github.com/dshills/colorer/internal/host"
	"github.com/dshills/colorer/internal/scheme"
	"github.com/dshills/colorer/internal/session"
	"github.com/dshills/colorer/internal/viewer"
)

// ViewFile highlights a file from disk and shows it in the viewer. The
// console scheme is used whatever the palette mode, falling back to the
// default scheme like a reload does.
func (s *Set) ViewFile(path string) error {
	if s.viewer == nil {
		return ErrNoViewer
	}
	doc, err := s.Document(path)
	if err != nil {
		return err
	}
	return s.viewer.Show(doc)
}

// Document highlights a file from disk for the viewer.
func (s *Set) Document(path string) (*viewer.Document, error) {
	b, err := s.active()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("view: %w", err)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	db := b.Database()
	m, fellBack, err := scheme.ResolveOrDefault(db, scheme.ModeIndexed, s.cfg.Scheme, s.log)
	if err != nil {
		return nil, fmt.Errorf("view: %w", err)
	}
	if fellBack {
		s.metrics.SchemeFallback(scheme.ModeIndexed.Class())
	}
	vb, err := b.WithMapper(m)
	if err != nil {
		return nil, err
	}

	opts := s.reg.Defaults()
	opts.TrueColor = false
	opts.Cross = session.CrossOff
	opts.Pairs = false
	sess := session.New(0, vb, opts)

	ft := db.Detect(path, lines[:min(len(lines), host.DetectLines)])
	if ft == nil {
		ft = vb.DefaultType()
	}
	if err := sess.SetFileType(ft, false); err != nil {
		return nil, fmt.Errorf("view: %w", err)
	}

	src := func(from, count int) ([]string, error) {
		if from >= len(lines) {
			return nil, nil
		}
		return lines[from:min(from+count, len(lines))], nil
	}
	colored, err := sess.Highlight(src, 0, len(lines), session.Cursor{Line: -1, Col: -1})
	if err != nil {
		return nil, fmt.Errorf("view: %w", err)
	}
	spans := make([][]host.Span, len(lines))
	for _, l := range colored {
		spans[l.Line] = l.Spans
	}
	return &viewer.Document{
		Title: path,
		Lines: lines,
		Spans: spans,
		Text:  m.DefaultText(),
	}, nil
}
