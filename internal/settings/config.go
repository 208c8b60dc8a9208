// Package settings persists the add-on configuration and the per file type
// parameter profile.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/colorer/internal/session"
)

// Display holds the display flags.
type Display struct {
	Cross      string `toml:"cross"`
	CrossStyle string `toml:"cross_style"`
	Pairs      bool   `toml:"pairs"`
	Syntax     bool   `toml:"syntax"`
	OldOutline bool   `toml:"old_outline"`
}

// Log configures the add-on log.
type Log struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Level   string `toml:"level"`
}

// Config is the persisted configuration. It is the only input a bundle
// is built from.
type Config struct {
	Enabled   bool `toml:"enabled"`
	TrueColor bool `toml:"true_color"`

	// Catalog is the rule catalog; empty means catalog.xml in the host
	// directory.
	Catalog     string `toml:"catalog"`
	UserRules   string `toml:"user_rules"`
	UserColors  string `toml:"user_colors"`
	UserProfile string `toml:"user_profile"`

	// Scheme is the indexed scheme, SchemeTrueColor the true color one.
	Scheme          string `toml:"scheme"`
	SchemeTrueColor string `toml:"scheme_true_color"`

	ChangeEditorBackground bool `toml:"change_editor_background"`

	Display Display `toml:"display"`
	Log     Log     `toml:"log"`
}

// Defaults returns the configuration used when nothing is persisted.
func Defaults() Config {
	return Config{
		Enabled:                true,
		Scheme:                 "default",
		SchemeTrueColor:        "default",
		ChangeEditorBackground: true,
		Display: Display{
			Cross:      session.CrossByType.String(),
			CrossStyle: session.CrossBoth.String(),
			Pairs:      true,
			Syntax:     true,
		},
		Log: Log{Level: "INFO"},
	}
}

// SchemeName returns the scheme name of the active palette mode.
func (c Config) SchemeName() string {
	if c.TrueColor {
		return c.SchemeTrueColor
	}
	return c.Scheme
}

// Options converts the display flags to session options.
func (c Config) Options() (session.Options, error) {
	cross, err := session.ParseCrossMode(c.Display.Cross)
	if err != nil {
		return session.Options{}, err
	}
	style, err := session.ParseCrossStyle(c.Display.CrossStyle)
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		TrueColor:  c.TrueColor,
		Cross:      cross,
		CrossStyle: style,
		Pairs:      c.Display.Pairs,
		Syntax:     c.Display.Syntax,
		OldOutline: c.Display.OldOutline,
	}, nil
}

// Validate checks the fields that have a closed set of values.
func (c Config) Validate() error {
	if _, err := c.Options(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}

// SourcesEqual reports whether both configurations read the same rule,
// color and profile files.
func (c Config) SourcesEqual(o Config) bool {
	return c.Catalog == o.Catalog &&
		c.UserRules == o.UserRules &&
		c.UserColors == o.UserColors &&
		c.UserProfile == o.UserProfile
}

// SchemesEqual reports whether both configurations select the same
// mapper.
func (c Config) SchemesEqual(o Config) bool {
	return c.TrueColor == o.TrueColor &&
		c.Scheme == o.Scheme &&
		c.SchemeTrueColor == o.SchemeTrueColor
}

// ExpandPath expands environment variables and a leading ~ in p, and
// resolves a relative result against base. An empty p stays empty.
func ExpandPath(p, base string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	if !filepath.IsAbs(p) && base != "" {
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p)
}
