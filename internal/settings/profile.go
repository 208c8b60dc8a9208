package settings

import (
	"errors"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrBadProfile is returned for a profile file that is not valid JSON.
var ErrBadProfile = errors.New("profile is not valid JSON")

// Profile maps file type names to user parameter values.
type Profile map[string]map[string]string

// ProfileStore keeps user file type parameters in a JSON file of the form
// {"types": {"<type>": {"<param>": "<value>"}}}.
type ProfileStore struct {
	path string
}

// NewProfileStore creates a store for the JSON file at path. An empty
// path gives a store that reads nothing and refuses writes.
func NewProfileStore(path string) *ProfileStore {
	return &ProfileStore{path: path}
}

// Path returns the profile path.
func (p *ProfileStore) Path() string { return p.path }

func (p *ProfileStore) read() ([]byte, error) {
	if p.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StoreError{Op: "load", Path: p.path, Err: err}
	}
	if len(data) > 0 && !gjson.ValidBytes(data) {
		return nil, &StoreError{Op: "load", Path: p.path, Err: ErrBadProfile}
	}
	return data, nil
}

// Load reads every stored parameter. A missing file yields an empty
// profile.
func (p *ProfileStore) Load() (Profile, error) {
	data, err := p.read()
	if err != nil {
		return nil, err
	}
	out := make(Profile)
	gjson.GetBytes(data, "types").ForEach(func(typ, params gjson.Result) bool {
		values := make(map[string]string)
		params.ForEach(func(name, value gjson.Result) bool {
			values[name.String()] = value.String()
			return true
		})
		out[typ.String()] = values
		return true
	})
	return out, nil
}

// Set stores one parameter value.
func (p *ProfileStore) Set(typeName, param, value string) error {
	return p.update(func(data []byte) ([]byte, error) {
		return sjson.SetBytes(data, paramPath(typeName, param), value)
	})
}

// Delete removes one parameter value.
func (p *ProfileStore) Delete(typeName, param string) error {
	return p.update(func(data []byte) ([]byte, error) {
		return sjson.DeleteBytes(data, paramPath(typeName, param))
	})
}

func (p *ProfileStore) update(fn func([]byte) ([]byte, error)) error {
	if p.path == "" {
		return &StoreError{Op: "save", Err: errors.New("no profile path configured")}
	}
	data, err := p.read()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		data = []byte("{}")
	}
	data, err = fn(data)
	if err != nil {
		return &StoreError{Op: "save", Path: p.path, Err: err}
	}
	if err := writeFileAtomic(p.path, data); err != nil {
		return &StoreError{Op: "save", Path: p.path, Err: err}
	}
	return nil
}

var pathEscaper = strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)

func paramPath(typeName, param string) string {
	return "types." + pathEscaper.Replace(typeName) + "." + pathEscaper.Replace(param)
}
