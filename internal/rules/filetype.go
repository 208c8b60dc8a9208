package rules

import (
	"fmt"
	"regexp"
	"sync"
)

// Well-known file type parameters.
const (
	ParamFavorite  = "favorite"
	ParamHotkey    = "hotkey"
	ParamShowCross = "show-cross"
	ParamMaxLen    = "maxlinelength"
)

// MenuParam reports whether name is kept for every type by the file type
// menu, declared on demand, and returns its description.
func MenuParam(name string) (description string, ok bool) {
	switch name {
	case ParamFavorite:
		return "Favorite", true
	case ParamHotkey:
		return "Hotkey", true
	}
	return "", false
}

// DefaultTypeName is the name of the fallback file type.
const DefaultTypeName = "default"

// Param is a named, user-overridable file type setting.
type Param struct {
	Name        string
	Default     string
	Description string

	value   string
	hasUser bool
}

// FileType is one language definition of the rule database.
type FileType struct {
	Name        string
	Group       string
	Description string

	patterns   []string
	firstLines []*regexp.Regexp
	languages  []string
	spec       typeSpec

	params     map[string]*Param
	paramOrder []string

	once        sync.Once
	highlighter *Highlighter
	compileErr  error
}

// NewFileType creates an empty file type without rules.
func NewFileType(name, group, description string) *FileType {
	return &FileType{
		Name:        name,
		Group:       group,
		Description: description,
		params:      make(map[string]*Param),
	}
}

// Patterns returns the file name glob patterns of the type.
func (ft *FileType) Patterns() []string {
	return ft.patterns
}

// BaseScheme returns the compiled highlighter of the type. Rules are
// compiled on first use.
func (ft *FileType) BaseScheme() (*Highlighter, error) {
	ft.once.Do(func() {
		ft.highlighter, ft.compileErr = compileHighlighter(ft.Name, ft.spec)
	})
	return ft.highlighter, ft.compileErr
}

// AddParam declares a parameter. Declaring an existing name replaces its
// default and description but keeps a user value.
func (ft *FileType) AddParam(name, def, description string) *Param {
	if p, ok := ft.params[name]; ok {
		p.Default = def
		p.Description = description
		return p
	}
	p := &Param{Name: name, Default: def, Description: description}
	ft.params[name] = p
	ft.paramOrder = append(ft.paramOrder, name)
	return p
}

// Params returns the declared parameter names in declaration order.
func (ft *FileType) Params() []string {
	out := make([]string, len(ft.paramOrder))
	copy(out, ft.paramOrder)
	return out
}

// HasParam reports whether the parameter is declared.
func (ft *FileType) HasParam(name string) bool {
	_, ok := ft.params[name]
	return ok
}

// Param returns the effective value of a parameter: the user value when
// one is set, the default otherwise.
func (ft *FileType) Param(name string) (string, bool) {
	p, ok := ft.params[name]
	if !ok {
		return "", false
	}
	if p.hasUser {
		return p.value, true
	}
	return p.Default, true
}

// ParamDefault returns the declared default of a parameter.
func (ft *FileType) ParamDefault(name string) (string, bool) {
	p, ok := ft.params[name]
	if !ok {
		return "", false
	}
	return p.Default, true
}

// UserParam returns the user value of a parameter, if any.
func (ft *FileType) UserParam(name string) (string, bool) {
	p, ok := ft.params[name]
	if !ok || !p.hasUser {
		return "", false
	}
	return p.value, true
}

// ParamDescription returns the description of a parameter.
func (ft *FileType) ParamDescription(name string) string {
	if p, ok := ft.params[name]; ok {
		return p.Description
	}
	return ""
}

// SetParam sets the user value of a declared parameter.
func (ft *FileType) SetParam(name, value string) error {
	p, ok := ft.params[name]
	if !ok {
		return fmt.Errorf("%s: %w: %s", ft.Name, ErrUnknownParam, name)
	}
	p.value = value
	p.hasUser = true
	return nil
}

// ResetParam clears the user value of a parameter.
func (ft *FileType) ResetParam(name string) error {
	p, ok := ft.params[name]
	if !ok {
		return fmt.Errorf("%s: %w: %s", ft.Name, ErrUnknownParam, name)
	}
	p.value = ""
	p.hasUser = false
	return nil
}

// UserParams returns every parameter with a user value.
func (ft *FileType) UserParams() map[string]string {
	out := make(map[string]string)
	for name, p := range ft.params {
		if p.hasUser {
			out[name] = p.value
		}
	}
	return out
}
