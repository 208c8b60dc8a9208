package scheme

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/dshills/colorer/internal/color"
	"github.com/dshills/colorer/internal/fixture"
	"github.com/dshills/colorer/internal/rules"
)

func loadDB(t *testing.T) *rules.Database {
	t.Helper()
	p := fixture.Write(t)
	db, err := rules.ParseCatalog(p.Catalog)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	return db
}

func TestResolveNamed(t *testing.T) {
	db := loadDB(t)

	m, found, err := Resolve(db, ModeIndexed, "white")
	if err != nil || !found {
		t.Fatalf("Resolve(white) = %v, %v", found, err)
	}
	if m.Name() != "white" || m.Mode() != ModeIndexed {
		t.Errorf("unexpected mapper %s/%v", m.Name(), m.Mode())
	}
	want := color.Style{Foreground: color.Index(0), Background: color.Index(15)}
	if got := m.DefaultText(); !got.Equals(want) {
		t.Errorf("DefaultText = %+v, want %+v", got, want)
	}
}

func TestResolveNotFoundIsNotAnError(t *testing.T) {
	db := loadDB(t)

	for _, name := range []string{"missing", " padded", "bad\x01name"} {
		m, found, err := Resolve(db, ModeIndexed, name)
		if err != nil {
			t.Errorf("Resolve(%q) error = %v", name, err)
		}
		if found || m != nil {
			t.Errorf("Resolve(%q) should report not found", name)
		}
	}
}

func TestResolveClassIsolation(t *testing.T) {
	db := loadDB(t)
	if _, found, _ := Resolve(db, ModeTrueColor, "white"); found {
		t.Error("console scheme must not resolve in true color mode")
	}
	if _, found, _ := Resolve(db, ModeIndexed, "solarized"); found {
		t.Error("rgb scheme must not resolve in indexed mode")
	}
}

func TestResolveEngineDefault(t *testing.T) {
	db := loadDB(t)
	m, found, err := Resolve(db, ModeTrueColor, "")
	if err != nil || !found {
		t.Fatalf("Resolve default = %v, %v", found, err)
	}
	if m.Name() != DefaultName {
		t.Errorf("expected default scheme, got %s", m.Name())
	}
}

func TestResolveEngineDefaultFirstOfClass(t *testing.T) {
	db := rules.NewDatabase()
	p := fixture.Write(t)
	fixture.WriteFile(t, p.UserColors, `<?xml version="1.0"?>
<hrd-sets>
  <hrd class="rgb" name="first"><assign name="def:Text" fore="#010203"/></hrd>
  <hrd class="rgb" name="second"/>
</hrd-sets>`)
	if err := db.MergeUserColors(p.UserColors); err != nil {
		t.Fatal(err)
	}
	m, _, err := Resolve(db, ModeTrueColor, "")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "first" {
		t.Errorf("expected first scheme of class, got %s", m.Name())
	}
}

func TestResolveEngineDefaultBuiltin(t *testing.T) {
	m, found, err := Resolve(rules.NewDatabase(), ModeIndexed, "")
	if err != nil || !found {
		t.Fatalf("Resolve = %v, %v", found, err)
	}
	if !m.IsBuiltin() {
		t.Error("expected built-in mapper for an empty database")
	}
	if m.DefaultText().ConsoleAttr(0) != 0x1F {
		t.Errorf("unexpected built-in text attr %#x", m.DefaultText().ConsoleAttr(0))
	}
}

func TestResolveModeBoth(t *testing.T) {
	if _, _, err := Resolve(rules.NewDatabase(), ModeBoth, ""); !errors.Is(err, ErrModeBoth) {
		t.Errorf("expected ErrModeBoth, got %v", err)
	}
}

func TestResolveBadColorIsFatal(t *testing.T) {
	db := rules.NewDatabase()
	p := fixture.Write(t)
	fixture.WriteFile(t, p.UserColors, `<?xml version="1.0"?>
<hrd-sets><hrd class="console" name="broken"><assign name="def:Text" fore="99"/></hrd></hrd-sets>`)
	if err := db.MergeUserColors(p.UserColors); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Resolve(db, ModeIndexed, "broken"); err == nil {
		t.Error("expected error for out of range palette index")
	}
	if _, _, err := ResolveOrDefault(db, ModeIndexed, "broken", nil); err == nil {
		t.Error("ResolveOrDefault must propagate definition errors")
	}
}

func TestResolveOrDefaultFallback(t *testing.T) {
	db := loadDB(t)
	logger, hook := logtest.NewNullLogger()

	for _, mode := range []Mode{ModeIndexed, ModeTrueColor} {
		hook.Reset()
		got, fellBack, err := ResolveOrDefault(db, mode, "nonexistent", logger)
		if err != nil {
			t.Fatalf("%v: %v", mode, err)
		}
		if !fellBack {
			t.Errorf("%v: expected fallback", mode)
		}
		want, _, _ := Resolve(db, mode, "")
		if got.Name() != want.Name() || !got.DefaultText().Equals(want.DefaultText()) {
			t.Errorf("%v: fallback mapper %s differs from engine default %s", mode, got.Name(), want.Name())
		}
		if e := hook.LastEntry(); e == nil || e.Level != logrus.WarnLevel {
			t.Errorf("%v: expected a warning to be logged", mode)
		}
	}
}

func TestResolveOrDefaultFound(t *testing.T) {
	db := loadDB(t)
	logger, hook := logtest.NewNullLogger()
	m, fellBack, err := ResolveOrDefault(db, ModeTrueColor, "solarized", logger)
	if err != nil || fellBack || m.Name() != "solarized" {
		t.Errorf("got %v fellBack=%v err=%v", m, fellBack, err)
	}
	if len(hook.Entries) != 0 {
		t.Error("nothing should be logged when the scheme exists")
	}
}

func TestStyleForWalksRegionParents(t *testing.T) {
	db := loadDB(t)
	m, _, _ := Resolve(db, ModeIndexed, "default")

	st, ok := m.StyleFor("go:Builtin")
	if !ok {
		t.Fatal("expected go:Builtin to inherit def:Function")
	}
	if !st.Foreground.Equals(color.Index(11)) {
		t.Errorf("unexpected inherited style %+v", st)
	}
	if _, ok := m.StyleFor("def:Unassigned"); ok {
		t.Error("unassigned region should not resolve")
	}
	kw, _ := m.StyleFor("def:Keyword")
	if !kw.Attributes.Has(color.AttrBold) {
		t.Error("keyword should be bold")
	}
}

func TestNewConvertsPalette(t *testing.T) {
	def := &rules.SchemeDef{Class: ClassIndexed, Name: "mixed", Assigns: []rules.Assign{
		{Region: RegionText, Fore: "#ffff00", Back: "1"},
	}}
	m, err := New(nil, def, ModeIndexed)
	if err != nil {
		t.Fatal(err)
	}
	if fg := m.DefaultText().Foreground; !fg.Indexed || fg.R != 14 {
		t.Errorf("expected yellow quantized to 14, got %+v", fg)
	}

	m, err = New(nil, def, ModeTrueColor)
	if err != nil {
		t.Fatal(err)
	}
	if bg := m.DefaultText().Background; bg.Indexed || !bg.Equals(color.RGB(0, 0, 128)) {
		t.Errorf("expected index 1 expanded to navy, got %+v", bg)
	}
}

func TestList(t *testing.T) {
	db := loadDB(t)
	got := List(db, ModeIndexed)
	if len(got) != 2 || got[0].Name != "default" || got[1].Description != "White" {
		t.Errorf("List = %+v", got)
	}
}
