// Package logging configures the add-on log on top of logrus.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/colorer/internal/settings"
)

// FileName is the log file created when the configured path is a
// directory.
const FileName = "colorer.log"

// ParseLevel parses a level name. The add-on's own names (FATAL, ERROR_F,
// ERROR, WARNING, INFO, DEBUG) and logrus names are accepted.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "FATAL":
		return log.FatalLevel, nil
	case "ERROR_F", "ERROR":
		return log.ErrorLevel, nil
	case "WARNING", "WARN":
		return log.WarnLevel, nil
	case "INFO", "":
		return log.InfoLevel, nil
	case "DEBUG":
		return log.DebugLevel, nil
	}
	return log.ParseLevel(strings.ToLower(name))
}

// Sink owns the add-on logger and the file it writes to.
type Sink struct {
	mu     sync.Mutex
	logger *log.Logger
	file   *os.File
	path   string
}

// NewSink creates a sink that discards everything until Apply enables it.
func NewSink() *Sink {
	l := log.New()
	l.SetOutput(io.Discard)
	l.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	return &Sink{logger: l}
}

// Logger returns the underlying logger.
func (s *Sink) Logger() *log.Logger {
	return s.logger
}

// Entry returns a logger tagged with a component name.
func (s *Sink) Entry(component string) *log.Entry {
	return s.logger.WithField("component", component)
}

// Path returns the file currently written, empty when logging to stderr or
// disabled.
func (s *Sink) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Apply reconfigures the logger. A path naming a directory, or without
// an extension, gets FileName appended. An empty path logs to stderr.
func (s *Sink) Apply(cfg settings.Log) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !cfg.Enabled {
		s.logger.SetOutput(io.Discard)
		s.closeFile()
		return nil
	}

	var out io.Writer = os.Stderr
	var file *os.File
	path := ""
	if cfg.Path != "" {
		path = logFile(cfg.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("log directory: %w", err)
		}
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log: %w", err)
		}
		out = file
	}

	s.logger.SetOutput(out)
	s.logger.SetLevel(level)
	s.closeFile()
	s.file, s.path = file, path
	return nil
}

func logFile(p string) string {
	if st, err := os.Stat(p); err == nil && st.IsDir() {
		return filepath.Join(p, FileName)
	}
	if filepath.Ext(p) == "" {
		return filepath.Join(p, FileName)
	}
	return p
}

// closeFile must be called with mu held.
func (s *Sink) closeFile() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
		s.path = ""
	}
}

// Close stops writing to the log file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.SetOutput(io.Discard)
	s.closeFile()
	return nil
}
