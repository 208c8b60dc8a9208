package session

import "fmt"

// CrossMode controls when the cursor cross is drawn.
type CrossMode int

const (
	// CrossOff never draws the cross.
	CrossOff CrossMode = iota
	// CrossAlways draws the cross in every editor.
	CrossAlways
	// CrossByType follows the file type's show-cross parameter.
	CrossByType
)

// String returns the mode name.
func (m CrossMode) String() string {
	switch m {
	case CrossOff:
		return "off"
	case CrossAlways:
		return "always"
	case CrossByType:
		return "bytype"
	default:
		return fmt.Sprintf("CrossMode(%d)", m)
	}
}

// ParseCrossMode parses a mode name.
func ParseCrossMode(s string) (CrossMode, error) {
	switch s {
	case "off", "none", "":
		return CrossOff, nil
	case "always":
		return CrossAlways, nil
	case "bytype":
		return CrossByType, nil
	}
	return CrossOff, fmt.Errorf("unknown cross mode %q", s)
}

// CrossStyle selects which lines of the cross are drawn.
type CrossStyle int

const (
	CrossBoth CrossStyle = iota
	CrossVertical
	CrossHorizontal
)

// String returns the style name.
func (s CrossStyle) String() string {
	switch s {
	case CrossBoth:
		return "both"
	case CrossVertical:
		return "vertical"
	case CrossHorizontal:
		return "horizontal"
	default:
		return fmt.Sprintf("CrossStyle(%d)", s)
	}
}

// ParseCrossStyle parses a style name.
func ParseCrossStyle(s string) (CrossStyle, error) {
	switch s {
	case "both", "":
		return CrossBoth, nil
	case "vertical":
		return CrossVertical, nil
	case "horizontal":
		return CrossHorizontal, nil
	}
	return CrossBoth, fmt.Errorf("unknown cross style %q", s)
}

// Options are the display flags of a session.
type Options struct {
	TrueColor  bool
	Cross      CrossMode
	CrossStyle CrossStyle
	Pairs      bool
	Syntax     bool
	OldOutline bool
}

// DefaultOptions returns the flags a new session starts with.
func DefaultOptions() Options {
	return Options{
		Cross:      CrossByType,
		CrossStyle: CrossBoth,
		Pairs:      true,
		Syntax:     true,
	}
}
