// Package color provides the color and style values produced by color
// schemes and consumed by the host editor and the console viewer.
package color

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// Attribute represents text attributes (bold, italic, etc.).
type Attribute uint16

// Text attribute flags.
const (
	AttrNone      Attribute = 0
	AttrBold      Attribute = 1 << iota
	AttrItalic              // Italic text
	AttrUnderline           // Underlined text
	AttrReverse             // Reverse video (swap fg/bg)
	AttrStrikethrough
)

// Has returns true if the attribute set contains the given attribute.
func (a Attribute) Has(attr Attribute) bool {
	return a&attr != 0
}

// ParseAttributes parses a whitespace or comma separated attribute list
// such as "bold italic".
func ParseAttributes(s string) (Attribute, error) {
	var a Attribute
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '|' }) {
		switch strings.ToLower(f) {
		case "bold":
			a |= AttrBold
		case "italic":
			a |= AttrItalic
		case "underline":
			a |= AttrUnderline
		case "reverse":
			a |= AttrReverse
		case "strikethrough", "strikeout":
			a |= AttrStrikethrough
		default:
			return AttrNone, fmt.Errorf("unknown attribute %q", f)
		}
	}
	return a, nil
}

// Color represents a color value.
// Supports true color (RGB) and console palette colors.
type Color struct {
	R, G, B uint8
	// If Indexed is true, R contains the console palette index (0-15).
	Indexed bool
	// Default indicates the host's default color.
	Default bool
}

// Default represents the host's default color.
var Default = Color{Default: true}

// RGB creates a true color from RGB components.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Index creates an indexed console palette color.
func Index(index uint8) Color {
	return Color{R: index & 0x0F, Indexed: true}
}

// Parse parses a color value as written in color definition files:
// "#rgb" or "#rrggbb" for true color, a decimal or 0x-prefixed number for
// a console palette index, or "default".
func Parse(s string) (Color, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || strings.EqualFold(s, "default"):
		return Default, nil
	case strings.HasPrefix(s, "#"):
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		c, err := colorful.Hex("#" + hex)
		if err != nil {
			return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return RGB(r, g, b), nil
	default:
		n, err := strconv.ParseUint(s, 0, 8)
		if err != nil || n > 15 {
			return Color{}, fmt.Errorf("invalid palette index %q", s)
		}
		return Index(uint8(n)), nil
	}
}

// IsDefault returns true if this is the default color.
func (c Color) IsDefault() bool {
	return c.Default
}

// Equals returns true if two colors are identical.
func (c Color) Equals(other Color) bool {
	if c.Default || other.Default {
		return c.Default == other.Default
	}
	if c.Indexed != other.Indexed {
		return false
	}
	if c.Indexed {
		return c.R == other.R
	}
	return c.R == other.R && c.G == other.G && c.B == other.B
}

// String returns a representation accepted by Parse.
func (c Color) String() string {
	switch {
	case c.Default:
		return "default"
	case c.Indexed:
		return strconv.Itoa(int(c.R))
	default:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
}

// ToIndexed returns the console palette color nearest to c.
func (c Color) ToIndexed() Color {
	if c.Default || c.Indexed {
		return c
	}
	return Index(Nearest(c))
}

// ToRGB returns the true color equivalent of c.
func (c Color) ToRGB() Color {
	if c.Default || !c.Indexed {
		return c
	}
	p := Palette[c.R&0x0F]
	return RGB(p.R, p.G, p.B)
}

// Tcell converts the color to a tcell color.
func (c Color) Tcell() tcell.Color {
	switch {
	case c.Default:
		return tcell.ColorDefault
	case c.Indexed:
		return tcell.PaletteColor(int(consoleToANSI(c.R)))
	default:
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	}
}

// Style represents the visual style of a highlighted region.
type Style struct {
	Foreground Color
	Background Color
	Attributes Attribute
}

// DefaultStyle is a style with default colors and no attributes.
var DefaultStyle = Style{Foreground: Default, Background: Default}

// IsDefault returns true if this is the default style.
func (s Style) IsDefault() bool {
	return s.Foreground.IsDefault() && s.Background.IsDefault() && s.Attributes == AttrNone
}

// Equals returns true if two styles are identical.
func (s Style) Equals(other Style) bool {
	return s.Foreground.Equals(other.Foreground) &&
		s.Background.Equals(other.Background) &&
		s.Attributes == other.Attributes
}

// Merge overlays other on s; default colors in other keep the colors of s.
func (s Style) Merge(other Style) Style {
	result := s
	if !other.Foreground.IsDefault() {
		result.Foreground = other.Foreground
	}
	if !other.Background.IsDefault() {
		result.Background = other.Background
	}
	result.Attributes |= other.Attributes
	return result
}

// ToIndexed quantizes both colors to the console palette.
func (s Style) ToIndexed() Style {
	s.Foreground = s.Foreground.ToIndexed()
	s.Background = s.Background.ToIndexed()
	return s
}

// ConsoleAttr packs the style into a console character attribute:
// foreground in the low nibble, background in the high nibble. Default
// colors are replaced by the given fallback attribute's nibbles.
func (s Style) ConsoleAttr(fallback uint8) uint8 {
	fg := fallback & 0x0F
	bg := fallback >> 4
	if f := s.Foreground.ToIndexed(); !f.Default {
		fg = f.R
	}
	if b := s.Background.ToIndexed(); !b.Default {
		bg = b.R
	}
	return fg | bg<<4
}

// Tcell converts the style to a tcell style.
func (s Style) Tcell() tcell.Style {
	st := tcell.StyleDefault.
		Foreground(s.Foreground.Tcell()).
		Background(s.Background.Tcell())
	if s.Attributes.Has(AttrBold) {
		st = st.Bold(true)
	}
	if s.Attributes.Has(AttrItalic) {
		st = st.Italic(true)
	}
	if s.Attributes.Has(AttrUnderline) {
		st = st.Underline(true)
	}
	if s.Attributes.Has(AttrReverse) {
		st = st.Reverse(true)
	}
	if s.Attributes.Has(AttrStrikethrough) {
		st = st.StrikeThrough(true)
	}
	return st
}
