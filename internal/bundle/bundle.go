// Package bundle holds the immutable unit that sessions highlight with:
// a rule database, the color mapper of the active palette mode and the
// default file type.
package bundle

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/colorer/internal/rules"
	"github.com/dshills/colorer/internal/scheme"
)

// ErrIncomplete is returned when a bundle would lack one of its parts.
var ErrIncomplete = errors.New("bundle: database, mapper and default type are required")

// Bundle is an immutable rule set and color mapper pair. A new Bundle is
// built for every reload and swapped in whole. User parameter values on
// its file types are the exception: they are settings and change in place.
type Bundle struct {
	id          uuid.UUID
	created     time.Time
	db          *rules.Database
	mapper      *scheme.Mapper
	defaultType *rules.FileType
}

// New creates a bundle.
func New(db *rules.Database, mapper *scheme.Mapper, defaultType *rules.FileType) (*Bundle, error) {
	if db == nil || mapper == nil || defaultType == nil {
		return nil, ErrIncomplete
	}
	return &Bundle{
		id:          uuid.New(),
		created:     time.Now(),
		db:          db,
		mapper:      mapper,
		defaultType: defaultType,
	}, nil
}

// WithMapper returns a new bundle sharing the database and default type
// but using mapper.
func (b *Bundle) WithMapper(mapper *scheme.Mapper) (*Bundle, error) {
	return New(b.db, mapper, b.defaultType)
}

// ID returns the generation id of the bundle.
func (b *Bundle) ID() uuid.UUID { return b.id }

// Created returns the time the bundle was built.
func (b *Bundle) Created() time.Time { return b.created }

// Database returns the rule database.
func (b *Bundle) Database() *rules.Database { return b.db }

// Mapper returns the color mapper.
func (b *Bundle) Mapper() *scheme.Mapper { return b.mapper }

// DefaultType returns the fallback file type.
func (b *Bundle) DefaultType() *rules.FileType { return b.defaultType }

// TrueColor reports whether the mapper targets the true color palette.
func (b *Bundle) TrueColor() bool { return b.mapper.Mode() == scheme.ModeTrueColor }
