package bundle

import (
	"errors"
	"testing"

	"github.com/dshills/colorer/internal/rules"
	"github.com/dshills/colorer/internal/scheme"
)

func TestNewRequiresAllParts(t *testing.T) {
	db := rules.NewDatabase()
	def := db.EnsureDefault()
	m := scheme.Builtin(scheme.ModeIndexed)

	if _, err := New(nil, m, def); !errors.Is(err, ErrIncomplete) {
		t.Errorf("expected ErrIncomplete without database, got %v", err)
	}
	if _, err := New(db, nil, def); !errors.Is(err, ErrIncomplete) {
		t.Errorf("expected ErrIncomplete without mapper, got %v", err)
	}
	if _, err := New(db, m, nil); !errors.Is(err, ErrIncomplete) {
		t.Errorf("expected ErrIncomplete without default type, got %v", err)
	}
}

func TestWithMapperSharesDatabase(t *testing.T) {
	db := rules.NewDatabase()
	def := db.EnsureDefault()

	b, err := New(db, scheme.Builtin(scheme.ModeIndexed), def)
	if err != nil {
		t.Fatal(err)
	}
	if b.TrueColor() {
		t.Error("indexed bundle reported true color")
	}

	b2, err := b.WithMapper(scheme.Builtin(scheme.ModeTrueColor))
	if err != nil {
		t.Fatal(err)
	}
	if b2 == b || b2.ID() == b.ID() {
		t.Error("WithMapper must return a new generation")
	}
	if b2.Database() != db || b2.DefaultType() != def {
		t.Error("WithMapper must share database and default type")
	}
	if !b2.TrueColor() {
		t.Error("expected true color bundle")
	}
	if b.Mapper().Mode() != scheme.ModeIndexed {
		t.Error("original bundle was mutated")
	}
	if b2.Created().Before(b.Created()) {
		t.Error("creation times out of order")
	}
}
