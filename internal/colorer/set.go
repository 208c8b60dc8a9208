// Package colorer is the add-on context: it owns the editor registry, the
// reload orchestrator and the settings store, switches between the
// enabled and disabled states, and turns host events and user commands
// into registry operations.
//
// A Set is driven from the host's callback thread and is not safe for
// concurrent use. Work from other goroutines, such as file watching, must
// be handed to the host loop first.
package colorer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dshills/colorer/internal/bundle"
	"github.com/dshills/colorer/internal/host"
	"github.com/dshills/colorer/internal/logging"
	"github.com/dshills/colorer/internal/metrics"
	"github.com/dshills/colorer/internal/registry"
	"github.com/dshills/colorer/internal/reload"
	"github.com/dshills/colorer/internal/scheme"
	"github.com/dshills/colorer/internal/settings"
	"github.com/dshills/colorer/internal/viewer"
)

// Title heads every error shown to the user.
const Title = "Colorer"

// State is the add-on state.
type State int

const (
	// StateDisabled passes every event through untouched.
	StateDisabled State = iota
	// StateEnabled highlights editors with the active bundle.
	StateEnabled
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateEnabled:
		return "enabled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Viewer shows a highlighted document.
type Viewer interface {
	Show(doc *viewer.Document) error
}

// Set is one add-on instance.
type Set struct {
	host    host.Host
	store   settings.Store
	reg     *registry.Registry
	orch    *reload.Orchestrator
	sink    *logging.Sink
	viewer  Viewer
	metrics *metrics.Metrics
	log     *logrus.Entry

	hostDir string
	cfg     settings.Config
	state   State

	// last failure of the settings or profile store, nil when the last
	// access succeeded
	settingsErr error

	// scheme names picked in the settings dialog, not yet applied
	candidates map[scheme.Mode]string
}

// Option configures a Set.
type Option func(*Set)

// WithHostDir sets the directory the default catalog and relative paths
// are resolved against.
func WithHostDir(dir string) Option {
	return func(s *Set) {
		s.hostDir = dir
	}
}

// WithLogSink sets the log sink. Its logger is used for every component
// and ConfigureLogging reconfigures it.
func WithLogSink(sink *logging.Sink) Option {
	return func(s *Set) {
		s.sink = sink
	}
}

// WithMetrics sets the metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Set) {
		s.metrics = m
	}
}

// WithViewer sets the viewer used by ViewFile.
func WithViewer(v Viewer) Option {
	return func(s *Set) {
		s.viewer = v
	}
}

// New creates a disabled Set. Call Start to load the configuration.
func New(h host.Host, store settings.Store, opts ...Option) *Set {
	s := &Set{
		host:       h,
		store:      store,
		cfg:        settings.Defaults(),
		candidates: make(map[scheme.Mode]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = logging.NewSink()
	}
	s.log = s.sink.Entry("colorer")

	s.reg = registry.New(h, registry.WithLogger(s.sink.Entry("registry")))
	s.reg.OnEvent(func(e registry.Event) {
		s.metrics.SetSessions(e.Sessions)
	})
	s.orch = reload.New(
		reload.WithHostDir(s.hostDir),
		reload.WithLogger(s.sink.Entry("reload")),
		reload.WithMetrics(s.metrics),
	)
	return s
}

// Start reads the configuration, applies the log settings and, when the
// add-on is enabled, loads the rule database. A failure leaves the Set
// disabled and is reported to the user.
func (s *Set) Start(ctx context.Context) error {
	cfg, err := s.store.Load()
	if err != nil {
		s.settingsFailed(err)
		s.showError(err)
		return &reload.Error{Kind: reload.KindSettings, Step: reload.StepSettings, Err: err}
	}
	s.cfg = cfg
	if err := s.sink.Apply(cfg.Log); err != nil {
		s.log.WithError(err).Warn("log settings rejected")
	}
	if !cfg.Enabled {
		s.log.Info("colorer disabled by configuration")
		return nil
	}
	return s.reloadWith(ctx, cfg, cfg)
}

// State returns the current state.
func (s *Set) State() State { return s.state }

// Config returns the configuration in effect.
func (s *Set) Config() settings.Config { return s.cfg }

// Registry returns the editor registry.
func (s *Set) Registry() *registry.Registry { return s.reg }

// Orchestrator returns the reload orchestrator.
func (s *Set) Orchestrator() *reload.Orchestrator { return s.orch }

// Logger returns the add-on logger.
func (s *Set) Logger() *logrus.Logger { return s.sink.Logger() }

// SettingsError returns the last settings store failure, nil when the
// store has worked since.
func (s *Set) SettingsError() error { return s.settingsErr }

// Reload rereads the configuration and rebuilds the rule database. On
// success every open editor is recreated against the new bundle; on
// failure the add-on is disabled.
func (s *Set) Reload(ctx context.Context) error {
	cfg, err := s.store.Load()
	if err != nil {
		s.settingsFailed(err)
		err = &reload.Error{Kind: reload.KindSettings, Step: reload.StepSettings, Err: err}
		s.fail(err, s.cfg)
		return err
	}
	s.settingsOK()
	return s.reloadWith(ctx, cfg, cfg)
}

// reloadWith builds a bundle from cfg and commits it. cfg is persisted
// only when the bundle was built; on failure base is persisted with
// enabled=false instead.
func (s *Set) reloadWith(ctx context.Context, cfg, base settings.Config) error {
	opts, err := cfg.Options()
	if err != nil {
		err = &reload.Error{Kind: reload.KindSettings, Step: reload.StepSettings, Err: err}
		s.fail(err, base)
		return err
	}
	b, err := s.orch.Reload(ctx, cfg)
	if err != nil {
		s.fail(err, base)
		return err
	}

	cfg.Enabled = true
	s.cfg = cfg
	s.state = StateEnabled
	s.reg.SetEnabled(true)
	s.reg.BroadcastSettingsChange(opts)
	s.reg.Commit(b)
	s.persist()
	s.applyBackground(b)
	s.redrawCurrent()
	return nil
}

// Enable rereads the stored configuration and reloads with it enabled.
// The add-on is enabled only if the reload succeeds; enabled=true is
// persisted with the new bundle.
func (s *Set) Enable(ctx context.Context) error {
	cfg, err := s.store.Load()
	if err != nil {
		s.settingsFailed(err)
		err = &reload.Error{Kind: reload.KindSettings, Step: reload.StepSettings, Err: err}
		s.fail(err, s.cfg)
		return err
	}
	s.settingsOK()
	s.log.Info("enabling colorer")
	cfg.Enabled = true
	return s.reloadWith(ctx, cfg, cfg)
}

// Disable detaches every editor, drops the bundle and persists
// enabled=false.
func (s *Set) Disable() error {
	s.disable()
	s.cfg.Enabled = false
	if err := s.store.Save(s.cfg); err != nil {
		s.settingsFailed(err)
		return err
	}
	s.settingsOK()
	return nil
}

func (s *Set) disable() {
	s.reg.SetEnabled(false)
	s.reg.DetachAll(true)
	s.reg.Drop()
	if s.state == StateEnabled {
		s.metrics.Disabled()
	}
	s.state = StateDisabled
	s.log.Info("colorer disabled")
}

// fail reports a fatal reload error and disables the add-on. base, the
// configuration the attempt started from, becomes the configuration in
// effect with enabled=false. It is persisted unless the settings store
// caused the failure.
func (s *Set) fail(err error, base settings.Config) {
	s.log.WithError(err).Error("reload failed, disabling colorer")
	s.showError(err, "Colorer is disabled.")
	s.disable()
	base.Enabled = false
	s.cfg = base
	if reload.KindOf(err) == reload.KindSettings {
		return
	}
	if err := s.store.Save(base); err != nil {
		s.settingsFailed(err)
	}
}

// persist saves the configuration in effect. A failure is reported but
// does not change the state.
func (s *Set) persist() {
	if err := s.store.Save(s.cfg); err != nil {
		s.settingsFailed(err)
		s.showError(err)
		return
	}
	s.settingsOK()
}

func (s *Set) settingsFailed(err error) {
	s.settingsErr = err
	s.log.WithError(err).Error("settings store failure")
}

func (s *Set) settingsOK() {
	s.settingsErr = nil
}

func (s *Set) showError(err error, extra ...string) {
	s.host.ShowError(Title, append([]string{err.Error()}, extra...)...)
}

// applyBackground pushes the def:Text colors of the bundle's mapper to
// the editor color slot.
func (s *Set) applyBackground(b *bundle.Bundle) {
	if !s.cfg.ChangeEditorBackground || b == nil {
		return
	}
	text := b.Mapper().DefaultText()
	if err := s.host.SetEditorColors(text.Foreground, text.Background, b.TrueColor()); err != nil {
		s.log.WithError(err).Warn("cannot set editor colors")
	}
}

func (s *Set) redrawCurrent() {
	if id, ok := s.host.Current(); ok {
		s.host.Redraw(id)
	}
}

// active returns the active bundle or ErrDisabled.
func (s *Set) active() (*bundle.Bundle, error) {
	if s.state != StateEnabled {
		return nil, ErrDisabled
	}
	b := s.reg.Active()
	if b == nil {
		return nil, ErrDisabled
	}
	return b, nil
}
