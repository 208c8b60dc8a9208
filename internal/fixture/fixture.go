// Package fixture writes a small rule catalog to a temporary directory for
// tests.
package fixture

import (
	"os"
	"path/filepath"
	"testing"
)

// Catalog lists the base rule directory and the bundled color file.
const Catalog = `<?xml version="1.0" encoding="UTF-8"?>
<catalog>
  <rules path="rules"/>
  <colors path="colors/base.xml"/>
</catalog>
`

// Rules defines the default, go, python and makefile types.
const Rules = `types:
  - name: default
    description: Plain text
    params:
      - name: show-cross
        value: none
        description: Show cross
      - name: maxlinelength
        value: "10000"
        description: Longest line to highlight
  - name: go
    group: Main
    description: Go
    patterns: ["*.go"]
    first_lines: ['^package\s']
    languages: [Go]
    params:
      - name: favorite
        value: "false"
        description: Favorite type
      - name: show-cross
        value: vertical
        description: Show cross
    regions:
      go:Builtin: def:Function
    blocks:
      - start: "/*"
        end: "*/"
        region: def:Comment
    rules:
      - pattern: '//.*$'
        region: def:Comment
      - pattern: '"(?:[^"\\]|\\.)*"'
        region: def:String
      - pattern: '\b\d+\b'
        region: def:Number
    keywords:
      def:Keyword: [func, package, return, if, else, for]
      go:Builtin: [len, make]
  - name: python
    group: Scripts
    description: Python
    patterns: ["*.py"]
    first_lines: ['^#!.*python']
    languages: [Python]
    rules:
      - pattern: '#.*$'
        region: def:Comment
    keywords:
      def:Keyword: [def, return, import]
  - name: makefile
    group: Build
    description: Makefile
    languages: [Makefile]
    rules:
      - pattern: '#.*$'
        region: def:Comment
`

// Colors defines two indexed and two true color schemes.
const Colors = `<?xml version="1.0" encoding="UTF-8"?>
<hrd-sets>
  <hrd class="console" name="default" description="Default">
    <assign name="def:Text" fore="7" back="1"/>
    <assign name="def:Comment" fore="8"/>
    <assign name="def:Keyword" fore="15" style="bold"/>
    <assign name="def:String" fore="14"/>
    <assign name="def:Function" fore="11"/>
    <assign name="def:Vertical" back="3"/>
    <assign name="def:Horizontal" back="3"/>
    <assign name="def:PairStart" fore="12" back="0"/>
  </hrd>
  <hrd class="console" name="white" description="White">
    <assign name="def:Text" fore="0" back="15"/>
    <assign name="def:Keyword" fore="1"/>
  </hrd>
  <hrd class="rgb" name="default" description="Default RGB">
    <assign name="def:Text" fore="#c0c0c0" back="#000080"/>
    <assign name="def:Keyword" fore="#ffffff" style="bold"/>
  </hrd>
  <hrd class="rgb" name="solarized" description="Solarized">
    <assign name="def:Text" fore="#839496" back="#002b36"/>
    <assign name="def:Keyword" fore="#859900"/>
  </hrd>
</hrd-sets>
`

// UserRules replaces the python type and adds a rust type.
const UserRules = `types:
  - name: python
    group: Scripts
    description: Python (user)
    patterns: ["*.py", "*.pyw"]
    keywords:
      def:Keyword: [def]
  - name: rust
    group: Main
    description: Rust
    patterns: ["*.rs"]
    keywords:
      def:Keyword: [fn, let]
`

// UserColors adds an indexed scheme named "user".
const UserColors = `<?xml version="1.0" encoding="UTF-8"?>
<hrd-sets>
  <hrd class="console" name="user" description="User scheme">
    <assign name="def:Text" fore="10" back="0"/>
  </hrd>
</hrd-sets>
`

// Paths locates the files written by Write.
type Paths struct {
	Dir        string
	Catalog    string
	Rules      string
	Colors     string
	UserRules  string
	UserColors string
	Profile    string
	Settings   string
}

// Write writes the catalog, its rule and color files, and the user files
// into a fresh temporary directory.
func Write(t testing.TB) Paths {
	t.Helper()
	dir := t.TempDir()
	p := Paths{
		Dir:        dir,
		Catalog:    filepath.Join(dir, "catalog.xml"),
		Rules:      filepath.Join(dir, "rules", "base.yaml"),
		Colors:     filepath.Join(dir, "colors", "base.xml"),
		UserRules:  filepath.Join(dir, "user", "rules.yaml"),
		UserColors: filepath.Join(dir, "user", "colors.xml"),
		Profile:    filepath.Join(dir, "user", "profile.json"),
		Settings:   filepath.Join(dir, "colorer.toml"),
	}
	WriteFile(t, p.Catalog, Catalog)
	WriteFile(t, p.Rules, Rules)
	WriteFile(t, p.Colors, Colors)
	WriteFile(t, p.UserRules, UserRules)
	WriteFile(t, p.UserColors, UserColors)
	return p
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
