package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// LexerState carries multi-line context from one line to the next.
// Zero is the normal state; n > 0 means "inside block n-1".
type LexerState int

// StateNormal is the state at the start of a file.
const StateNormal LexerState = 0

// Token is a highlighted range of a line.
type Token struct {
	Region   string
	StartCol uint32 // byte offset, inclusive
	EndCol   uint32 // byte offset, exclusive
}

type matchRule struct {
	pattern  *regexp.Regexp
	region   string
	submatch int
}

type blockRule struct {
	start  string
	end    string
	region string
}

// Highlighter is a regex based line highlighter compiled from a file
// type's rules.
type Highlighter struct {
	typeName string
	rules    []matchRule
	keywords map[string]string
	blocks   []blockRule
}

func compileHighlighter(name string, spec typeSpec) (*Highlighter, error) {
	h := &Highlighter{
		typeName: name,
		keywords: make(map[string]string),
	}
	for _, b := range spec.Blocks {
		if b.Start == "" || b.End == "" {
			return nil, fmt.Errorf("type %s: block for %s needs start and end", name, b.Region)
		}
		h.blocks = append(h.blocks, blockRule{start: b.Start, end: b.End, region: b.Region})
	}
	for _, r := range spec.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("type %s: rule for %s: %w", name, r.Region, err)
		}
		if r.Submatch > re.NumSubexp() {
			return nil, fmt.Errorf("type %s: rule for %s: submatch %d out of range", name, r.Region, r.Submatch)
		}
		h.rules = append(h.rules, matchRule{pattern: re, region: r.Region, submatch: r.Submatch})
	}
	for region, words := range spec.Keywords {
		for _, w := range words {
			h.keywords[w] = region
		}
	}
	return h, nil
}

// TypeName returns the name of the file type the highlighter belongs to.
func (h *Highlighter) TypeName() string {
	return h.typeName
}

// HighlightLine tokenizes a single line.
func (h *Highlighter) HighlightLine(line string, prev LexerState) ([]Token, LexerState) {
	if prev == StateNormal || int(prev) > len(h.blocks) {
		return h.highlightNormal(line)
	}

	block := h.blocks[prev-1]
	idx := strings.Index(line, block.end)
	if idx < 0 {
		// Entire line is inside the block
		return []Token{{Region: block.region, StartCol: 0, EndCol: uint32(len(line))}}, prev
	}

	endIdx := idx + len(block.end)
	tokens := []Token{{Region: block.region, StartCol: 0, EndCol: uint32(endIdx)}}
	rest, state := h.highlightNormal(line[endIdx:])
	for i := range rest {
		rest[i].StartCol += uint32(endIdx)
		rest[i].EndCol += uint32(endIdx)
	}
	return append(tokens, rest...), state
}

func (h *Highlighter) highlightNormal(line string) ([]Token, LexerState) {
	tokens := make([]Token, 0)
	covered := make([]bool, len(line))
	state := StateNormal

	// Block starts, earliest first
	type hit struct{ idx, block int }
	var hits []hit
	for i, b := range h.blocks {
		if idx := strings.Index(line, b.start); idx >= 0 {
			hits = append(hits, hit{idx, i})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].idx < hits[j].idx })
	for _, ht := range hits {
		b := h.blocks[ht.block]
		if isCovered(covered, ht.idx, ht.idx+len(b.start)) {
			continue
		}
		bodyStart := ht.idx + len(b.start)
		if endIdx := strings.Index(line[bodyStart:], b.end); endIdx >= 0 {
			endPos := bodyStart + endIdx + len(b.end)
			tokens = append(tokens, Token{Region: b.region, StartCol: uint32(ht.idx), EndCol: uint32(endPos)})
			markCovered(covered, ht.idx, endPos)
			continue
		}
		tokens = append(tokens, Token{Region: b.region, StartCol: uint32(ht.idx), EndCol: uint32(len(line))})
		markCovered(covered, ht.idx, len(line))
		state = LexerState(ht.block + 1)
		break
	}

	for _, rule := range h.rules {
		for _, m := range rule.pattern.FindAllStringSubmatchIndex(line, -1) {
			start, end := m[0], m[1]
			if rule.submatch > 0 {
				start, end = m[rule.submatch*2], m[rule.submatch*2+1]
			}
			if start >= 0 && end > start && !isCovered(covered, start, end) {
				tokens = append(tokens, Token{Region: rule.region, StartCol: uint32(start), EndCol: uint32(end)})
				markCovered(covered, start, end)
			}
		}
	}

	tokens = append(tokens, h.findKeywords(line, covered)...)

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].StartCol < tokens[j].StartCol
	})
	return tokens, state
}

func (h *Highlighter) findKeywords(line string, covered []bool) []Token {
	if len(h.keywords) == 0 {
		return nil
	}
	var tokens []Token
	i := 0
	for i < len(line) {
		r := rune(line[i])
		if covered[i] || !(unicode.IsLetter(r) || r == '_') {
			i++
			continue
		}
		start := i
		for i < len(line) {
			r = rune(line[i])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				break
			}
			i++
		}
		if isCovered(covered, start, i) {
			continue
		}
		if region, ok := h.keywords[line[start:i]]; ok {
			tokens = append(tokens, Token{Region: region, StartCol: uint32(start), EndCol: uint32(i)})
			markCovered(covered, start, i)
		}
	}
	return tokens
}

func isCovered(covered []bool, start, end int) bool {
	if start < 0 || start >= len(covered) {
		return false
	}
	for i := start; i < end && i < len(covered); i++ {
		if covered[i] {
			return true
		}
	}
	return false
}

func markCovered(covered []bool, start, end int) {
	if start < 0 {
		start = 0
	}
	for i := start; i < end && i < len(covered); i++ {
		covered[i] = true
	}
}
