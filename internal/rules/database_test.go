package rules

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dshills/colorer/internal/fixture"
)

func loadFixture(t *testing.T) (*Database, fixture.Paths) {
	t.Helper()
	p := fixture.Write(t)
	db, err := ParseCatalog(p.Catalog)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	return db, p
}

func typeNames(types []*FileType) []string {
	names := make([]string, len(types))
	for i, ft := range types {
		names[i] = ft.Name
	}
	return names
}

func TestParseCatalog(t *testing.T) {
	db, _ := loadFixture(t)

	got := typeNames(db.FileTypes())
	want := []string{"default", "go", "python", "makefile"}
	if len(got) != len(want) {
		t.Fatalf("types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("types[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if n := len(db.Schemes("console")); n != 2 {
		t.Errorf("expected 2 console schemes, got %d", n)
	}
	if n := len(db.Schemes("rgb")); n != 2 {
		t.Errorf("expected 2 rgb schemes, got %d", n)
	}
	if s := db.Scheme("rgb", "solarized"); s == nil || s.DisplayName() != "Solarized" {
		t.Errorf("unexpected solarized scheme %+v", s)
	}
	if parent, ok := db.RegionParent("go:Builtin"); !ok || parent != "def:Function" {
		t.Errorf("RegionParent(go:Builtin) = %q, %v", parent, ok)
	}
}

func TestCatalogSources(t *testing.T) {
	p := fixture.Write(t)
	src, err := CatalogSources(p.Catalog)
	if err != nil {
		t.Fatalf("CatalogSources: %v", err)
	}
	if len(src.RuleDirs) != 1 || src.RuleDirs[0] != filepath.Dir(p.Rules) {
		t.Errorf("RuleDirs = %v, want [%s]", src.RuleDirs, filepath.Dir(p.Rules))
	}
	if len(src.Files) != 1 || src.Files[0] != p.Colors {
		t.Errorf("Files = %v, want [%s]", src.Files, p.Colors)
	}
	if got := src.Paths(); len(got) != 3 || got[0] != p.Catalog {
		t.Errorf("Paths = %v", got)
	}
}

func TestCatalogSourcesNamedRuleFile(t *testing.T) {
	p := fixture.Write(t)
	catalog := filepath.Join(p.Dir, "single.xml")
	fixture.WriteFile(t, catalog, `<catalog><rules path="rules/base.yaml"/><colors path="colors/base.xml"/></catalog>`)

	src, err := CatalogSources(catalog)
	if err != nil {
		t.Fatalf("CatalogSources: %v", err)
	}
	if len(src.RuleDirs) != 0 {
		t.Errorf("RuleDirs = %v, want none", src.RuleDirs)
	}
	if len(src.Files) != 2 || src.Files[0] != p.Rules {
		t.Errorf("Files = %v, want rule file first", src.Files)
	}
}

func TestCatalogSourcesMalformed(t *testing.T) {
	p := fixture.Write(t)
	fixture.WriteFile(t, p.Catalog, "<catalog>")
	if _, err := CatalogSources(p.Catalog); err == nil {
		t.Fatal("expected error for malformed catalog")
	}
}

func TestFileTypesRestartable(t *testing.T) {
	db, _ := loadFixture(t)
	a := db.FileTypes()
	a[0] = nil
	b := db.FileTypes()
	if b[0] == nil || len(b) != 4 {
		t.Error("FileTypes should return an independent listing each call")
	}
}

func TestParseCatalogErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		if _, err := ParseCatalog(filepath.Join(t.TempDir(), "nope.xml")); err == nil {
			t.Error("expected error for missing catalog")
		}
	})

	t.Run("wrong root", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.xml")
		fixture.WriteFile(t, path, `<?xml version="1.0"?><catalogue/>`)
		_, err := ParseCatalog(path)
		if !errors.Is(err, ErrInvalidDocument) {
			t.Errorf("expected ErrInvalidDocument, got %v", err)
		}
	})

	t.Run("missing rule file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.xml")
		fixture.WriteFile(t, path, `<?xml version="1.0"?><catalog><rules path="absent.yaml"/></catalog>`)
		if _, err := ParseCatalog(path); err == nil {
			t.Error("expected error for missing rule file")
		}
	})

	t.Run("malformed rules", func(t *testing.T) {
		p := fixture.Write(t)
		fixture.WriteFile(t, p.Rules, "types: [name: {")
		_, err := ParseCatalog(p.Catalog)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("expected ParseError, got %v", err)
		}
	})

	t.Run("bad first line pattern", func(t *testing.T) {
		p := fixture.Write(t)
		fixture.WriteFile(t, p.Rules, "types:\n  - name: x\n    first_lines: ['(']\n")
		if _, err := ParseCatalog(p.Catalog); err == nil {
			t.Error("expected error for invalid first line regexp")
		}
	})
}

func TestParseColorFileRequiresHRDSets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colors.xml")
	fixture.WriteFile(t, path, `<?xml version="1.0"?><hrc><hrd class="console" name="x"/></hrc>`)
	_, err := ParseColorFile(path)
	if !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestParseColorFileRejectsUnknownClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colors.xml")
	fixture.WriteFile(t, path, `<?xml version="1.0"?><hrd-sets><hrd class="html" name="x"/></hrd-sets>`)
	if _, err := ParseColorFile(path); err == nil {
		t.Error("expected error for unknown class")
	}
}

func TestMergeUserRules(t *testing.T) {
	db, p := loadFixture(t)
	if err := db.MergeUserRules(p.UserRules); err != nil {
		t.Fatalf("MergeUserRules: %v", err)
	}

	got := typeNames(db.FileTypes())
	want := []string{"default", "go", "python", "makefile", "rust"}
	if len(got) != len(want) {
		t.Fatalf("types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("types[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if d := db.Type("python").Description; d != "Python (user)" {
		t.Errorf("python not replaced, description %q", d)
	}
}

func TestMergeUserColors(t *testing.T) {
	db, p := loadFixture(t)
	if err := db.MergeUserColors(p.UserColors); err != nil {
		t.Fatalf("MergeUserColors: %v", err)
	}
	if db.Scheme("console", "user") == nil {
		t.Error("user scheme not merged")
	}
	if n := len(db.Schemes("console")); n != 3 {
		t.Errorf("expected 3 console schemes, got %d", n)
	}
}

func TestMergeUserColorsMissingFile(t *testing.T) {
	db, p := loadFixture(t)
	if err := db.MergeUserColors(filepath.Join(p.Dir, "missing.xml")); err == nil {
		t.Error("expected error")
	}
}

func TestEnsureDefault(t *testing.T) {
	db := NewDatabase()
	ft := db.EnsureDefault()
	if ft == nil || ft.Name != DefaultTypeName {
		t.Fatalf("unexpected default type %+v", ft)
	}
	if db.EnsureDefault() != ft {
		t.Error("EnsureDefault should return the same type")
	}
	h, err := ft.BaseScheme()
	if err != nil {
		t.Fatal(err)
	}
	if tokens, _ := h.HighlightLine("anything", StateNormal); len(tokens) != 0 {
		t.Errorf("synthesized default type should not highlight, got %v", tokens)
	}
}

func TestDetect(t *testing.T) {
	db, _ := loadFixture(t)

	tests := []struct {
		name      string
		fileName  string
		firstLine string
		want      string
	}{
		{"glob", "/src/main.go", "", "go"},
		{"glob case insensitive", "MAIN.GO", "", "go"},
		{"first line", "noext", "package main", "go"},
		{"shebang rule", "script", "#!/usr/bin/python3", "python"},
		{"glob beats first line", "tool.py", "package main", "python"},
		{"enry filename", "Makefile", "", "makefile"},
		{"unknown", "notes.unknownext", "hello", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := db.Detect(tt.fileName, []string{tt.firstLine})
			got := ""
			if ft != nil {
				got = ft.Name
			}
			if got != tt.want {
				t.Errorf("Detect(%q, %q) = %q, want %q", tt.fileName, tt.firstLine, got, tt.want)
			}
		})
	}
}

func TestDetectCachePurgedOnMerge(t *testing.T) {
	db, p := loadFixture(t)
	if ft := db.Detect("lib.rs", nil); ft != nil {
		t.Fatalf("rust should not be detected yet, got %s", ft.Name)
	}
	if err := db.MergeUserRules(p.UserRules); err != nil {
		t.Fatal(err)
	}
	if ft := db.Detect("lib.rs", nil); ft == nil || ft.Name != "rust" {
		t.Errorf("expected rust after merge, got %v", ft)
	}
}
