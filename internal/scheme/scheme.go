// Package scheme turns color scheme definitions into region-to-style
// mappers and implements the scheme fallback policy.
package scheme

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/dshills/colorer/internal/color"
	"github.com/dshills/colorer/internal/rules"
)

// Mode selects the palette a mapper targets.
type Mode int

// Palette modes.
const (
	ModeIndexed Mode = iota
	ModeTrueColor
	// ModeBoth is accepted by dry-run reloads only.
	ModeBoth
)

// Scheme classes as written in color definition files.
const (
	ClassIndexed   = "console"
	ClassTrueColor = "rgb"
)

// DefaultName is the scheme name picked first for the engine default.
const DefaultName = "default"

// RegionText is the region that carries the default text colors.
const RegionText = "def:Text"

// ErrModeBoth is returned when a single mapper is requested for ModeBoth.
var ErrModeBoth = errors.New("scheme: ModeBoth has no single class")

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeIndexed:
		return "indexed"
	case ModeTrueColor:
		return "truecolor"
	case ModeBoth:
		return "both"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// Class returns the definition class of the mode.
func (m Mode) Class() string {
	if m == ModeTrueColor {
		return ClassTrueColor
	}
	return ClassIndexed
}

// ModeFor returns the mode for the true-color flag.
func ModeFor(trueColor bool) Mode {
	if trueColor {
		return ModeTrueColor
	}
	return ModeIndexed
}

// Mapper maps highlighted regions to styles for one palette mode.
type Mapper struct {
	name        string
	description string
	mode        Mode
	builtin     bool
	styles      map[string]color.Style
	parents     func(string) (string, bool)
}

// Name returns the scheme name.
func (m *Mapper) Name() string { return m.name }

// Description returns the scheme description.
func (m *Mapper) Description() string { return m.description }

// Mode returns the palette mode of the mapper.
func (m *Mapper) Mode() Mode { return m.mode }

// IsBuiltin reports whether the mapper is the compiled-in fallback.
func (m *Mapper) IsBuiltin() bool { return m.builtin }

// StyleFor returns the style assigned to region, walking up the region
// hierarchy until an assignment is found.
func (m *Mapper) StyleFor(region string) (color.Style, bool) {
	seen := 0
	for region != "" && seen < 32 {
		if s, ok := m.styles[region]; ok {
			return s, true
		}
		if m.parents == nil {
			break
		}
		parent, ok := m.parents(region)
		if !ok {
			break
		}
		region = parent
		seen++
	}
	return color.Style{}, false
}

// DefaultText returns the style of the def:Text region, or the default
// style when the scheme does not assign it.
func (m *Mapper) DefaultText() color.Style {
	if s, ok := m.styles[RegionText]; ok {
		return s
	}
	return color.DefaultStyle
}

// New builds a mapper from a scheme definition. Colors are converted to
// the palette of the mode: true colors are quantized for indexed schemes
// and palette indexes expanded for true color schemes.
func New(db *rules.Database, def *rules.SchemeDef, mode Mode) (*Mapper, error) {
	if mode == ModeBoth {
		return nil, ErrModeBoth
	}
	m := &Mapper{
		name:        def.Name,
		description: def.DisplayName(),
		mode:        mode,
		styles:      make(map[string]color.Style, len(def.Assigns)),
	}
	if db != nil {
		m.parents = db.RegionParent
	}
	for _, a := range def.Assigns {
		st, err := parseAssign(a)
		if err != nil {
			return nil, fmt.Errorf("scheme %s/%s: region %s: %w", def.Class, def.Name, a.Region, err)
		}
		if mode == ModeIndexed {
			st = st.ToIndexed()
		} else {
			st.Foreground = st.Foreground.ToRGB()
			st.Background = st.Background.ToRGB()
		}
		m.styles[a.Region] = st
	}
	return m, nil
}

func parseAssign(a rules.Assign) (color.Style, error) {
	fg, err := color.Parse(a.Fore)
	if err != nil {
		return color.Style{}, err
	}
	bg, err := color.Parse(a.Back)
	if err != nil {
		return color.Style{}, err
	}
	attrs, err := color.ParseAttributes(a.Style)
	if err != nil {
		return color.Style{}, err
	}
	return color.Style{Foreground: fg, Background: bg, Attributes: attrs}, nil
}

// Builtin returns the compiled-in mapper used when the rule set defines
// no scheme for a mode.
func Builtin(mode Mode) *Mapper {
	text := color.Style{Foreground: color.Index(15), Background: color.Index(1)}
	if mode == ModeTrueColor {
		text = color.Style{Foreground: color.RGB(255, 255, 255), Background: color.RGB(0, 0, 128)}
	}
	return &Mapper{
		name:        DefaultName,
		description: "Built-in",
		mode:        mode,
		builtin:     true,
		styles:      map[string]color.Style{RegionText: text},
	}
}

// validName reports whether name can name a scheme at all. Invalid names
// resolve to "not found".
func validName(name string) bool {
	if strings.TrimSpace(name) != name || len(name) > 256 {
		return false
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// Resolve looks up the named scheme for mode. An empty name resolves the
// engine default: the scheme named "default" of the mode's class, else the
// first scheme of the class, else the built-in mapper. found is false when
// a non-empty name is invalid or unknown; err is reserved for definitions
// that cannot be turned into a mapper.
func Resolve(db *rules.Database, mode Mode, name string) (m *Mapper, found bool, err error) {
	if mode == ModeBoth {
		return nil, false, ErrModeBoth
	}
	class := mode.Class()

	if name == "" {
		def := db.Scheme(class, DefaultName)
		if def == nil {
			if all := db.Schemes(class); len(all) > 0 {
				def = all[0]
			}
		}
		if def == nil {
			return Builtin(mode), true, nil
		}
		m, err := New(db, def, mode)
		if err != nil {
			return nil, false, err
		}
		return m, true, nil
	}

	if !validName(name) {
		return nil, false, nil
	}
	def := db.Scheme(class, name)
	if def == nil {
		return nil, false, nil
	}
	m, err = New(db, def, mode)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// ResolveOrDefault resolves the named scheme and falls back to the engine
// default when it is not found. fellBack reports whether the fallback was
// taken. Errors from either step are returned unchanged.
func ResolveOrDefault(db *rules.Database, mode Mode, name string, log logrus.FieldLogger) (m *Mapper, fellBack bool, err error) {
	m, found, err := Resolve(db, mode, name)
	if err != nil {
		return nil, false, err
	}
	if found {
		return m, false, nil
	}
	if log != nil {
		log.WithFields(logrus.Fields{"scheme": name, "mode": mode}).Warn("color scheme not found, using default")
	}
	m, _, err = Resolve(db, mode, "")
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// Info describes a scheme for pickers.
type Info struct {
	Name        string
	Description string
}

// List returns the schemes of the mode's class in definition order.
func List(db *rules.Database, mode Mode) []Info {
	defs := db.Schemes(mode.Class())
	out := make([]Info, 0, len(defs))
	for _, d := range defs {
		out = append(out, Info{Name: d.Name, Description: d.DisplayName()})
	}
	return out
}
