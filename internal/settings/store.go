package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Store loads and saves the configuration.
type Store interface {
	Load() (Config, error)
	Save(Config) error
}

// StoreError is a failure of the settings store itself.
type StoreError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("settings %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("settings %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ParseError represents an error while parsing a settings file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FileStore keeps the configuration in a TOML file.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the TOML file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the settings file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the configuration. A missing file yields Defaults; keys
// absent from the file keep their default values.
func (s *FileStore) Load() (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, &StoreError{Op: "load", Path: s.path, Err: err}
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		pe := &ParseError{Path: s.path, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			pe.Line, pe.Column = derr.Position()
		}
		return Config{}, &StoreError{Op: "load", Path: s.path, Err: pe}
	}
	return cfg, nil
}

// Save writes the configuration atomically.
func (s *FileStore) Save(cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return &StoreError{Op: "save", Path: s.path, Err: err}
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return &StoreError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// MemoryStore keeps the configuration in memory. LoadErr and SaveErr,
// when set, are returned instead of touching the stored value.
type MemoryStore struct {
	mu      sync.Mutex
	cfg     Config
	saves   int
	LoadErr error
	SaveErr error
}

// NewMemoryStore creates a store holding cfg.
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{cfg: cfg}
}

// Load implements Store.
func (s *MemoryStore) Load() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return Config{}, &StoreError{Op: "load", Err: s.LoadErr}
	}
	return s.cfg, nil
}

// Save implements Store.
func (s *MemoryStore) Save(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return &StoreError{Op: "save", Err: s.SaveErr}
	}
	s.cfg = cfg
	s.saves++
	return nil
}

// Saves returns the number of successful saves.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Config returns the stored configuration.
func (s *MemoryStore) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Fail sets the load and save errors.
func (s *MemoryStore) Fail(load, save error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LoadErr, s.SaveErr = load, save
}
