package rules

import (
	"bytes"
	"embed"
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jacoelho/xsd"
	"github.com/pkg/errors"
)

//go:embed schema/*.xsd
var schemaFS embed.FS

// lazySchema compiles an embedded XSD on first use.
type lazySchema struct {
	name   string
	once   sync.Once
	schema *xsd.Schema
	err    error
}

var (
	catalogSchema = &lazySchema{name: "catalog.xsd"}
	colorSchema   = &lazySchema{name: "colors.xsd"}
)

func (l *lazySchema) get() (*xsd.Schema, error) {
	l.once.Do(func() {
		sub, err := fs.Sub(schemaFS, "schema")
		if err != nil {
			l.err = err
			return
		}
		l.schema, l.err = xsd.Load(sub, l.name)
	})
	return l.schema, l.err
}

func validate(l *lazySchema, path string, data []byte) error {
	s, err := l.get()
	if err != nil {
		return errors.Wrapf(err, "compiling %s", l.name)
	}
	if err := s.Validate(bytes.NewReader(data)); err != nil {
		return &ParseError{Path: path, Message: "schema validation failed", Err: fmt.Errorf("%w: %v", ErrInvalidDocument, err)}
	}
	return nil
}

type location struct {
	Path string `xml:"path,attr"`
}

type catalogFile struct {
	XMLName xml.Name   `xml:"catalog"`
	Rules   []location `xml:"rules"`
	Colors  []location `xml:"colors"`
}

// ParseCatalog loads the catalog at path together with every rule file and
// color definition file it lists. Relative locations are resolved against
// the catalog's directory; a location naming a directory loads every
// *.yaml / *.yml file in it.
func ParseCatalog(path string) (*Database, error) {
	cat, err := readCatalog(path)
	if err != nil {
		return nil, err
	}

	db := NewDatabase()
	base := filepath.Dir(path)
	for _, loc := range cat.Rules {
		files, err := ruleFiles(resolve(base, loc.Path))
		if err != nil {
			return nil, errors.Wrapf(err, "catalog %s", path)
		}
		for _, f := range files {
			types, regions, err := ParseRuleFile(f)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			db.addTypes(types, regions)
		}
	}
	for _, loc := range cat.Colors {
		schemes, err := ParseColorFile(resolve(base, loc.Path))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		db.addSchemes(schemes)
	}
	return db, nil
}

func readCatalog(path string) (*catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading catalog %s", path)
	}
	if err := validate(catalogSchema, path, data); err != nil {
		return nil, err
	}
	var cat catalogFile
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&cat); err != nil {
		return nil, &ParseError{Path: path, Message: "malformed catalog", Err: err}
	}
	return &cat, nil
}

// RuleFilePatterns match the rule files loaded from a rules directory.
var RuleFilePatterns = []string{"*.yaml", "*.yml"}

// Sources are the locations a catalog loads from.
type Sources struct {
	Catalog string

	// RuleDirs are scanned for files matching RuleFilePatterns.
	RuleDirs []string

	// Files are the rule and color files named directly.
	Files []string
}

// CatalogSources resolves the rule and color locations listed by the
// catalog at path. Rule and color files are not parsed.
func CatalogSources(path string) (*Sources, error) {
	cat, err := readCatalog(path)
	if err != nil {
		return nil, err
	}
	src := &Sources{Catalog: path}
	base := filepath.Dir(path)
	for _, loc := range cat.Rules {
		p := resolve(base, loc.Path)
		if st, err := os.Stat(p); err == nil && st.IsDir() {
			src.RuleDirs = append(src.RuleDirs, p)
			continue
		}
		src.Files = append(src.Files, p)
	}
	for _, loc := range cat.Colors {
		src.Files = append(src.Files, resolve(base, loc.Path))
	}
	return src, nil
}

// Paths returns the catalog, the rule directories and the files.
func (s *Sources) Paths() []string {
	out := append([]string{s.Catalog}, s.RuleDirs...)
	return append(out, s.Files...)
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func ruleFiles(p string) ([]string, error) {
	st, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []string{p}, nil
	}
	var files []string
	for _, pat := range RuleFilePatterns {
		m, err := filepath.Glob(filepath.Join(p, pat))
		if err != nil {
			return nil, err
		}
		files = append(files, m...)
	}
	sort.Strings(files)
	return files, nil
}
