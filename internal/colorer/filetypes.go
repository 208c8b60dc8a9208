package colorer

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dshills/colorer/internal/host"
	"github.com/dshills/colorer/internal/rules"
	"github.com/dshills/colorer/internal/settings"
)

// FavoritesGroup heads the favorite types in the file type menu.
const FavoritesGroup = "Favorites"

// ItemKind tells menu entries apart.
type ItemKind int

const (
	// ItemAuto re-detects the file type.
	ItemAuto ItemKind = iota
	// ItemGroup is a group header.
	ItemGroup
	// ItemType selects a file type.
	ItemType
)

// MenuItem is one entry of the file type menu.
type MenuItem struct {
	Kind     ItemKind
	Label    string
	Hotkey   string
	Favorite bool
	Selected bool
	Type     *rules.FileType
}

// FileTypeMenu builds the file type chooser for an editor: the auto
// detect entry, the favorites, then every type under its group header in
// database order. The editor's explicit choice is selected, or auto
// detect when the type was detected.
func (s *Set) FileTypeMenu(id host.EditorID) ([]MenuItem, error) {
	b, err := s.active()
	if err != nil {
		return nil, err
	}
	sess, ok := s.reg.Attach(id)
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrNoSession, id)
	}
	current := sess.FileType()

	menu := []MenuItem{{Kind: ItemAuto, Label: "auto detect", Selected: !sess.Explicit()}}
	var favorites, rest []MenuItem
	group := ""
	for _, ft := range b.Database().FileTypes() {
		item := MenuItem{
			Kind:     ItemType,
			Label:    typeLabel(ft),
			Hotkey:   paramValue(ft, rules.ParamHotkey),
			Favorite: paramValue(ft, rules.ParamFavorite) == "true",
			Selected: sess.Explicit() && ft == current,
			Type:     ft,
		}
		if item.Favorite {
			favorites = append(favorites, item)
			continue
		}
		if ft.Group != group {
			group = ft.Group
			rest = append(rest, MenuItem{Kind: ItemGroup, Label: group})
		}
		rest = append(rest, item)
	}
	if len(favorites) > 0 {
		menu = append(menu, MenuItem{Kind: ItemGroup, Label: FavoritesGroup})
		menu = append(menu, favorites...)
	}
	return append(menu, rest...), nil
}

func typeLabel(ft *rules.FileType) string {
	if ft.Description != "" {
		return ft.Description
	}
	return ft.Name
}

func paramValue(ft *rules.FileType, name string) string {
	v, _ := ft.Param(name)
	return v
}

// ChooseFileType binds a type to an editor as an explicit choice. An
// empty name drops the choice and detects the type again.
func (s *Set) ChooseFileType(id host.EditorID, typeName string) error {
	b, err := s.active()
	if err != nil {
		return err
	}
	if _, ok := s.reg.Attach(id); !ok {
		return fmt.Errorf("%w %d", ErrNoSession, id)
	}
	if typeName == "" {
		err = s.reg.ClearFileType(id)
	} else {
		ft := b.Database().Type(typeName)
		if ft == nil {
			return fmt.Errorf("%w: %s", rules.ErrUnknownType, typeName)
		}
		err = s.reg.SetFileType(id, ft)
	}
	if err != nil {
		return err
	}
	s.host.Redraw(id)
	return nil
}

// SetFavorite marks a type as favorite or not.
func (s *Set) SetFavorite(typeName string, favorite bool) error {
	return s.setTypeParam(typeName, rules.ParamFavorite, strconv.FormatBool(favorite))
}

// SetHotkey assigns the menu hotkey of a type: one letter or digit,
// stored upper-cased. An empty key clears it.
func (s *Set) SetHotkey(typeName, key string) error {
	if key != "" {
		r, size := utf8.DecodeRuneInString(key)
		if size != len(key) || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return fmt.Errorf("%w: %q", ErrBadHotkey, key)
		}
		key = cases.Upper(language.Und).String(key)
	}
	return s.setTypeParam(typeName, rules.ParamHotkey, key)
}

// ParamInfo describes one parameter of a file type in the parameter
// editor.
type ParamInfo struct {
	Name        string
	Description string
	Default     string
	Value       string
	HasValue    bool
}

// Display returns the user value, or the default as <default-X>.
func (p ParamInfo) Display() string {
	if p.HasValue {
		return p.Value
	}
	return "<default-" + p.Default + ">"
}

// TypeParams lists the parameters of a type: those of the default type
// first, then the type's own.
func (s *Set) TypeParams(typeName string) ([]ParamInfo, error) {
	ft, def, err := s.lookupType(typeName)
	if err != nil {
		return nil, err
	}
	var out []ParamInfo
	seen := make(map[string]bool)
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		owner := ft
		if !ft.HasParam(name) {
			owner = def
		}
		d, _ := owner.ParamDefault(name)
		v, has := ft.UserParam(name)
		out = append(out, ParamInfo{
			Name:        name,
			Description: owner.ParamDescription(name),
			Default:     d,
			Value:       v,
			HasValue:    has,
		})
	}
	if def != nil {
		for _, name := range def.Params() {
			add(name)
		}
	}
	for _, name := range ft.Params() {
		add(name)
	}
	return out, nil
}

// SetTypeParam sets the user value of a type parameter. Parameters of
// the default type may be set on any type.
func (s *Set) SetTypeParam(typeName, param, value string) error {
	ft, def, err := s.lookupType(typeName)
	if err != nil {
		return err
	}
	if !ft.HasParam(param) {
		if def == nil || !def.HasParam(param) {
			return fmt.Errorf("%s: %w: %s", typeName, rules.ErrUnknownParam, param)
		}
	}
	return s.setTypeParam(typeName, param, value)
}

// ResetTypeParam removes the user value of a type parameter.
func (s *Set) ResetTypeParam(typeName, param string) error {
	ft, _, err := s.lookupType(typeName)
	if err != nil {
		return err
	}
	if err := ft.ResetParam(param); err != nil {
		return err
	}
	s.invalidateType(ft)
	return s.profileUpdate(typeName, param, func(p *settings.ProfileStore) error {
		return p.Delete(typeName, param)
	})
}

func (s *Set) lookupType(typeName string) (ft, def *rules.FileType, err error) {
	b, err := s.active()
	if err != nil {
		return nil, nil, err
	}
	db := b.Database()
	ft = db.Type(typeName)
	if ft == nil {
		return nil, nil, fmt.Errorf("%w: %s", rules.ErrUnknownType, typeName)
	}
	return ft, db.Type(rules.DefaultTypeName), nil
}

// setTypeParam sets a parameter on the live type, declaring it first when
// needed, and stores it in the profile. Parameter values are user
// settings and change in place: bundles are rebuilt only when their rule
// or color sources change.
func (s *Set) setTypeParam(typeName, param, value string) error {
	ft, def, err := s.lookupType(typeName)
	if err != nil {
		return err
	}
	if !ft.HasParam(param) {
		d, description := "", ""
		if def != nil && def.HasParam(param) {
			d, _ = def.ParamDefault(param)
			description = def.ParamDescription(param)
		} else if desc, ok := rules.MenuParam(param); ok {
			description = desc
		}
		ft.AddParam(param, d, description)
	}
	if err := ft.SetParam(param, value); err != nil {
		return err
	}
	s.invalidateType(ft)
	return s.profileUpdate(typeName, param, func(p *settings.ProfileStore) error {
		return p.Set(typeName, param, value)
	})
}

// invalidateType drops the caches of editors showing ft and redraws the
// current editor.
func (s *Set) invalidateType(ft *rules.FileType) {
	for _, id := range s.reg.IDs() {
		if sess, ok := s.reg.Lookup(id); ok && sess.FileType() == ft {
			sess.Invalidate(0)
		}
	}
	s.redrawCurrent()
}

// profileUpdate persists a parameter change. Without a configured
// profile the change lives until the next reload.
func (s *Set) profileUpdate(typeName, param string, fn func(*settings.ProfileStore) error) error {
	path := s.orch.Paths(s.cfg).UserProfile
	log := s.log.WithFields(logrus.Fields{"type": typeName, "param": param})
	if path == "" {
		log.Debug("no profile configured, parameter not persisted")
		return nil
	}
	if err := fn(settings.NewProfileStore(path)); err != nil {
		s.settingsFailed(err)
		return err
	}
	s.settingsOK()
	log.Debug("parameter stored")
	return nil
}
