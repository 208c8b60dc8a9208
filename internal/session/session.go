// Package session holds the per-buffer highlighting state: the bundle a
// buffer is highlighted with, its file type and display flags, and a
// cache of tokens and lexer states per line.
//
// A Session is not safe for concurrent use; it is driven from the host's
// callback thread.
package session

import (
	"strconv"
	"unicode/utf8"

	"github.com/dshills/colorer/internal/bundle"
	"github.com/dshills/colorer/internal/color"
	"github.com/dshills/colorer/internal/host"
	"github.com/dshills/colorer/internal/rules"
)

// Regions painted by the session itself.
const (
	RegionVertical   = "def:Vertical"
	RegionHorizontal = "def:Horizontal"
	RegionPair       = "def:PairStart"
)

const defaultMaxCache = 2000

// LineSource fetches buffer lines; see host.Editors.Lines.
type LineSource func(from, count int) ([]string, error)

// LineSpans is the coloring of one buffer line.
type LineSpans struct {
	Line  int
	Spans []host.Span
}

type cachedLine struct {
	text   string
	tokens []rules.Token
	state  rules.LexerState
}

// Session is the highlighting state of one editor buffer.
type Session struct {
	id          host.EditorID
	bundle      *bundle.Bundle
	opts        Options
	fileType    *rules.FileType
	explicit    bool
	highlighter *rules.Highlighter

	lineCache  map[int]*cachedLine
	stateCache map[int]rules.LexerState
	maxCache   int
}

// New creates a session bound to b, using b's default file type until
// SetFileType is called.
func New(id host.EditorID, b *bundle.Bundle, opts Options) *Session {
	s := &Session{
		id:       id,
		bundle:   b,
		opts:     opts,
		maxCache: defaultMaxCache,
	}
	s.clearCache()
	return s
}

// ID returns the editor id.
func (s *Session) ID() host.EditorID { return s.id }

// Bundle returns the bundle the session highlights with.
func (s *Session) Bundle() *bundle.Bundle { return s.bundle }

// Options returns the display flags.
func (s *Session) Options() Options { return s.opts }

// SetOptions replaces the display flags. File type and bundle are kept.
func (s *Session) SetOptions(opts Options) {
	s.opts = opts
}

// FileType returns the bound file type; the bundle default when none was
// set.
func (s *Session) FileType() *rules.FileType {
	if s.fileType == nil && s.bundle != nil {
		return s.bundle.DefaultType()
	}
	return s.fileType
}

// Explicit reports whether the file type was chosen by the user.
func (s *Session) Explicit() bool { return s.explicit }

// SetFileType binds a file type. explicit marks a user choice, which
// survives the session being recreated on reload.
func (s *Session) SetFileType(ft *rules.FileType, explicit bool) error {
	h, err := ft.BaseScheme()
	if err != nil {
		return err
	}
	s.fileType = ft
	s.explicit = explicit
	s.highlighter = h
	s.clearCache()
	return nil
}

// Invalidate drops cached results from line onwards.
func (s *Session) Invalidate(line int) {
	for l := range s.lineCache {
		if l >= line {
			delete(s.lineCache, l)
		}
	}
	for l := range s.stateCache {
		if l >= line {
			delete(s.stateCache, l)
		}
	}
}

// Clean releases the highlighting caches. The session stays usable.
func (s *Session) Clean() {
	s.clearCache()
}

// CachedLines returns the number of lines in the token cache.
func (s *Session) CachedLines() int { return len(s.lineCache) }

func (s *Session) clearCache() {
	s.lineCache = make(map[int]*cachedLine)
	s.stateCache = make(map[int]rules.LexerState)
}

// Cursor locates the caret for cross and pair drawing. Col is a byte
// offset into the cursor line, like span columns.
type Cursor struct {
	Line, Col int
}

// Highlight colors count lines starting at from.
func (s *Session) Highlight(src LineSource, from, count int, cur Cursor) ([]LineSpans, error) {
	lines, err := src(from, count)
	if err != nil {
		return nil, err
	}
	if s.highlighter == nil {
		if err := s.SetFileType(s.FileType(), false); err != nil {
			return nil, err
		}
	}

	mapper := s.bundle.Mapper()
	vertical, horizontal := s.crossLines()
	vStyle, vOK := mapper.StyleFor(RegionVertical)
	crossCol := -1
	if vertical && vOK {
		if crossCol, err = cursorColumn(src, lines, from, cur); err != nil {
			return nil, err
		}
	}
	hStyle, hOK := mapper.StyleFor(RegionHorizontal)

	var pairs map[int][]int
	if s.opts.Pairs {
		pairs = matchPair(lines, from, cur)
	}
	pStyle, pOK := mapper.StyleFor(RegionPair)

	out := make([]LineSpans, 0, len(lines))
	for i, text := range lines {
		line := from + i
		var spans []host.Span

		if horizontal && hOK && line == cur.Line {
			spans = append(spans, host.Span{StartCol: 0, EndCol: -1, Style: hStyle})
		}
		if s.opts.Syntax {
			tokens, err := s.tokensFor(src, line, text)
			if err != nil {
				return nil, err
			}
			for _, tok := range tokens {
				st, ok := mapper.StyleFor(tok.Region)
				if !ok {
					continue
				}
				spans = append(spans, host.Span{StartCol: int(tok.StartCol), EndCol: int(tok.EndCol), Style: st})
			}
		}
		if pOK {
			for _, col := range pairs[line] {
				spans = append(spans, host.Span{StartCol: col, EndCol: col + 1, Style: pStyle})
			}
		}
		if start, end, ok := runeSpan(text, crossCol); ok {
			spans = append(spans, host.Span{StartCol: start, EndCol: end, Style: vStyle})
		}
		out = append(out, LineSpans{Line: line, Spans: spans})
	}
	return out, nil
}

// cursorColumn returns the character column of the cursor, or -1 when
// the cursor is off the buffer.
func cursorColumn(src LineSource, lines []string, from int, cur Cursor) (int, error) {
	if cur.Line < 0 || cur.Col < 0 {
		return -1, nil
	}
	var text string
	if i := cur.Line - from; i >= 0 && i < len(lines) {
		text = lines[i]
	} else {
		got, err := src(cur.Line, 1)
		if err != nil {
			return -1, err
		}
		if len(got) == 0 {
			return -1, nil
		}
		text = got[0]
	}
	return utf8.RuneCountInString(text[:min(cur.Col, len(text))]), nil
}

// runeSpan returns the byte range of the character at column col of text.
func runeSpan(text string, col int) (start, end int, ok bool) {
	if col < 0 {
		return 0, 0, false
	}
	n := 0
	for i := range text {
		if n == col {
			_, size := utf8.DecodeRuneInString(text[i:])
			return i, i + size, true
		}
		n++
	}
	return 0, 0, false
}

// crossLines reports which cross lines are drawn.
func (s *Session) crossLines() (vertical, horizontal bool) {
	style := s.opts.CrossStyle
	switch s.opts.Cross {
	case CrossOff:
		return false, false
	case CrossByType:
		v, _ := s.FileType().Param(rules.ParamShowCross)
		switch v {
		case "vertical":
			style = CrossVertical
		case "horizontal":
			style = CrossHorizontal
		case "both":
			style = CrossBoth
		default:
			return false, false
		}
	}
	return style != CrossHorizontal, style != CrossVertical
}

func (s *Session) maxLineLength() int {
	v, ok := s.FileType().Param(rules.ParamMaxLen)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Session) tokensFor(src LineSource, line int, text string) ([]rules.Token, error) {
	if cached, ok := s.lineCache[line]; ok && cached.text == text {
		return cached.tokens, nil
	}

	prev := rules.StateNormal
	if line > 0 {
		if st, ok := s.stateCache[line-1]; ok {
			prev = st
		} else {
			var err error
			if prev, err = s.stateUpTo(src, line-1); err != nil {
				return nil, err
			}
		}
	}

	tokens, state := s.highlightLine(text, prev)
	s.cache(line, text, tokens, state)
	return tokens, nil
}

func (s *Session) highlightLine(text string, prev rules.LexerState) ([]rules.Token, rules.LexerState) {
	if limit := s.maxLineLength(); limit > 0 && len(text) > limit {
		return nil, prev
	}
	return s.highlighter.HighlightLine(text, prev)
}

// stateUpTo computes the lexer state at the end of target, resuming from
// the nearest cached state.
func (s *Session) stateUpTo(src LineSource, target int) (rules.LexerState, error) {
	start := 0
	state := rules.StateNormal
	for l := target; l > 0; l-- {
		if st, ok := s.stateCache[l-1]; ok {
			start, state = l, st
			break
		}
	}
	lines, err := src(start, target-start+1)
	if err != nil {
		return state, err
	}
	for i, text := range lines {
		_, state = s.highlightLine(text, state)
		s.stateCache[start+i] = state
	}
	return state, nil
}

func (s *Session) cache(line int, text string, tokens []rules.Token, state rules.LexerState) {
	if len(s.lineCache) >= s.maxCache {
		s.evict()
	}
	s.lineCache[line] = &cachedLine{text: text, tokens: tokens, state: state}
	s.stateCache[line] = state
}

func (s *Session) evict() {
	toRemove := max(len(s.lineCache)/4, 10)
	removed := 0
	for line := range s.lineCache {
		delete(s.lineCache, line)
		delete(s.stateCache, line)
		removed++
		if removed >= toRemove {
			break
		}
	}
}

// TextStyle returns the def:Text style of the bound mapper.
func (s *Session) TextStyle() color.Style {
	return s.bundle.Mapper().DefaultText()
}
