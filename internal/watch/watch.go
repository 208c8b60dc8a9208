// Package watch reloads the rule database when its source files change.
//
// The watcher runs on its own goroutine and never touches the registry.
// Changes are debounced, dry-run with retries, and only then handed to
// the host loop through a Post function.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/match"
	"gopkg.in/tomb.v2"

	"github.com/dshills/colorer/internal/metrics"
)

// Check dry-runs the changed sources. It runs on the watcher goroutine.
type Check func(ctx context.Context) error

// Post runs fn on the host loop.
type Post func(fn func())

// ErrNoPaths is returned by New when there is nothing to watch.
var ErrNoPaths = errors.New("watch: no paths")

const (
	// DefaultDelay is the quiet period after the last change.
	DefaultDelay = 250 * time.Millisecond

	// DefaultMaxElapsed bounds the dry-run retries of one change.
	DefaultMaxElapsed = 5 * time.Second
)

// Watcher watches rule and color files and rule directories.
type Watcher struct {
	files    map[string]bool
	scanned  map[string]bool
	patterns []string
	dirs     []string
	check   Check
	post    Post
	reload  func()
	delay   time.Duration
	backoff func() backoff.BackOff
	log     *logrus.Entry
	metrics *metrics.Metrics

	fsw *fsnotify.Watcher
	t   tomb.Tomb
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithBackOff sets the retry policy of the dry run. fn is called once per
// change.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(w *Watcher) {
		w.backoff = fn
	}
}

// WithPatterns sets the glob patterns a file in a watched directory must
// match. The default matches every file.
func WithPatterns(patterns ...string) Option {
	return func(w *Watcher) {
		if len(patterns) > 0 {
			w.patterns = patterns
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(w *Watcher) {
		w.log = log
	}
}

// WithMetrics sets the metrics the watcher reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// New creates a watcher for paths. A path naming an existing directory
// covers the files in it that match the patterns; any other path is a
// single file. Empty paths are skipped. Each change that passes check
// posts reload.
func New(paths []string, check Check, post Post, reload func(), opts ...Option) (*Watcher, error) {
	w := &Watcher{
		files:    make(map[string]bool),
		scanned:  make(map[string]bool),
		patterns: []string{"*"},
		check:    check,
		post:   post,
		reload: reload,
		delay:  DefaultDelay,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxElapsedTime = DefaultMaxElapsed
			return b
		},
		log: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(w)
	}

	seen := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.Wrapf(err, "watch %s", p)
		}
		dir := abs
		if st, err := os.Stat(abs); err == nil && st.IsDir() {
			w.scanned[abs] = true
		} else {
			w.files[abs] = true
			// Editors often save by renaming over the file, so the
			// directory is watched rather than the file.
			dir = filepath.Dir(abs)
		}
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	if len(w.files)+len(w.scanned) == 0 {
		return nil, ErrNoPaths
	}
	return w, nil
}

// Paths returns the watched files and directories, sorted.
func (w *Watcher) Paths() []string {
	out := make([]string, 0, len(w.files)+len(w.scanned))
	for f := range w.files {
		out = append(out, f)
	}
	for d := range w.scanned {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Start begins watching.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "watch")
	}
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return errors.Wrapf(err, "watch %s", dir)
		}
	}
	w.fsw = fsw
	w.t.Go(w.loop)
	w.log.WithFields(logrus.Fields{"files": len(w.files), "dirs": len(w.scanned)}).Info("watching rule sources")
	return nil
}

// Stop stops the watcher and waits for it to exit.
func (w *Watcher) Stop() error {
	if w.fsw == nil {
		return nil
	}
	w.t.Kill(nil)
	err := w.t.Wait()
	if cerr := w.fsw.Close(); err == nil {
		err = cerr
	}
	return err
}

// Dead is closed when the watcher has stopped.
func (w *Watcher) Dead() <-chan struct{} {
	return w.t.Dead()
}

func (w *Watcher) loop() error {
	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.t.Dying():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.WithFields(logrus.Fields{"file": ev.Name, "op": ev.Op.String()}).Debug("rule source changed")
			timer.Reset(w.delay)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch error")
		case <-timer.C:
			w.fire()
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Clean(ev.Name)
	if w.files[name] {
		return true
	}
	if !w.scanned[filepath.Dir(name)] {
		return false
	}
	base := filepath.Base(name)
	for _, pat := range w.patterns {
		if match.Match(base, pat) {
			return true
		}
	}
	return false
}

// fire dry-runs the sources and posts the reload once they load. A change
// that never loads is dropped: the next save triggers another attempt.
func (w *Watcher) fire() {
	ctx := w.t.Context(context.Background())
	attempts := 0
	op := func() error {
		attempts++
		return w.check(ctx)
	}
	err := backoff.Retry(op, backoff.WithContext(w.backoff(), ctx))
	if err != nil {
		if ctx.Err() == nil {
			w.log.WithError(err).WithField("attempts", attempts).Warn("changed rule sources do not load, keeping current database")
		}
		return
	}
	w.log.WithField("attempts", attempts).Info("rule sources changed, reloading")
	w.metrics.WatchReload()
	w.post(w.reload)
}
