package rules

import (
	"bytes"
	"encoding/xml"
	"os"

	"github.com/pkg/errors"
)

// Assign binds a region to colors and an attribute list. Values are kept
// as written; the scheme package interprets them.
type Assign struct {
	Region string `xml:"name,attr"`
	Fore   string `xml:"fore,attr"`
	Back   string `xml:"back,attr"`
	Style  string `xml:"style,attr"`
}

// SchemeDef is a named color scheme of one palette class.
type SchemeDef struct {
	Class       string   `xml:"class,attr"`
	Name        string   `xml:"name,attr"`
	Description string   `xml:"description,attr"`
	Assigns     []Assign `xml:"assign"`
}

// DisplayName returns the description, or the name when it has none.
func (s *SchemeDef) DisplayName() string {
	if s.Description != "" {
		return s.Description
	}
	return s.Name
}

type colorFile struct {
	XMLName xml.Name     `xml:"hrd-sets"`
	Schemes []*SchemeDef `xml:"hrd"`
}

// ParseColorFile reads the scheme definitions of a color definition file.
// The document root must be <hrd-sets>.
func ParseColorFile(path string) ([]*SchemeDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading color file %s", path)
	}
	if err := validate(colorSchema, path, data); err != nil {
		return nil, err
	}
	var cf colorFile
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&cf); err != nil {
		return nil, &ParseError{Path: path, Message: "malformed color file", Err: err}
	}
	return cf.Schemes, nil
}
