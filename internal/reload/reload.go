// Package reload builds rule/mapper bundles from the configuration.
//
// A bundle is always built off to the side: nothing here touches the
// registry or the settings store, so a failed reload leaves the active
// bundle and the persisted configuration as they were.
package reload

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/colorer/internal/bundle"
	"github.com/dshills/colorer/internal/metrics"
	"github.com/dshills/colorer/internal/rules"
	"github.com/dshills/colorer/internal/scheme"
	"github.com/dshills/colorer/internal/settings"
)

// CatalogName is the catalog looked up in the host directory when none is
// configured.
const CatalogName = "catalog.xml"

// ProfileLoader reads per file type parameter overrides.
type ProfileLoader interface {
	Load() (settings.Profile, error)
}

// Orchestrator builds bundles.
type Orchestrator struct {
	hostDir  string
	log      *logrus.Entry
	metrics  *metrics.Metrics
	profiles func(path string) ProfileLoader
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHostDir sets the directory relative paths and the default catalog
// resolve against.
func WithHostDir(dir string) Option {
	return func(o *Orchestrator) {
		o.hostDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithMetrics sets the metrics the orchestrator reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithProfiles replaces the profile loader factory. The default reads the
// JSON profile with settings.NewProfileStore.
func WithProfiles(fn func(path string) ProfileLoader) Option {
	return func(o *Orchestrator) {
		o.profiles = fn
	}
}

// New creates an orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log: logrus.NewEntry(logrus.StandardLogger()),
		profiles: func(path string) ProfileLoader {
			return settings.NewProfileStore(path)
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HostDir returns the host directory.
func (o *Orchestrator) HostDir() string {
	return o.hostDir
}

// Paths are the expanded source files of a reload.
type Paths struct {
	Catalog     string
	UserRules   string
	UserColors  string
	UserProfile string
}

// Paths expands the configured source paths. An empty catalog means
// CatalogName in the host directory.
func (o *Orchestrator) Paths(cfg settings.Config) Paths {
	p := Paths{
		Catalog:     settings.ExpandPath(cfg.Catalog, o.hostDir),
		UserRules:   settings.ExpandPath(cfg.UserRules, o.hostDir),
		UserColors:  settings.ExpandPath(cfg.UserColors, o.hostDir),
		UserProfile: settings.ExpandPath(cfg.UserProfile, o.hostDir),
	}
	if p.Catalog == "" {
		p.Catalog = filepath.Join(o.hostDir, CatalogName)
	}
	return p
}

// Reload builds a bundle from cfg: catalog, user colors, user rules,
// profile overrides, the scheme for the configured palette mode and the
// default file type. Errors are *Error; the context is checked between
// steps.
func (o *Orchestrator) Reload(ctx context.Context, cfg settings.Config) (b *bundle.Bundle, err error) {
	start := time.Now()
	defer func() {
		result := metrics.ResultOK
		if err != nil {
			result = metrics.ResultFailed
			if KindOf(err) == KindSettings {
				result = metrics.ResultSettings
			}
		}
		o.metrics.ObserveReload(result, time.Since(start))
	}()

	paths := o.Paths(cfg)
	log := o.log.WithField("catalog", paths.Catalog)
	log.Debug("reloading rule database")

	db, err := o.load(ctx, paths)
	if err != nil {
		log.WithError(err).Error("reload failed")
		return nil, err
	}

	mode := scheme.ModeFor(cfg.TrueColor)
	mapper, fellBack, err := scheme.ResolveOrDefault(db, mode, cfg.SchemeName(), o.log)
	if err != nil {
		err = baseLoad(StepScheme, cfg.SchemeName(), err)
		log.WithError(err).Error("reload failed")
		return nil, err
	}
	if fellBack {
		o.metrics.SchemeFallback(mode.Class())
	}

	b, err = bundle.New(db, mapper, db.EnsureDefault())
	if err != nil {
		return nil, baseLoad(StepBundle, "", err)
	}
	log.WithFields(logrus.Fields{
		"bundle": b.ID(),
		"types":  len(db.FileTypes()),
		"scheme": mapper.Name(),
		"mode":   mode,
	}).Info("rule database loaded")
	return b, nil
}

// load runs the database steps shared by Reload and TestReload.
func (o *Orchestrator) load(ctx context.Context, paths Paths) (*rules.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := rules.ParseCatalog(paths.Catalog)
	if err != nil {
		return nil, baseLoad(StepCatalog, paths.Catalog, err)
	}

	if paths.UserColors != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := db.MergeUserColors(paths.UserColors); err != nil {
			return nil, baseLoad(StepUserColors, paths.UserColors, err)
		}
	}

	if paths.UserRules != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := db.MergeUserRules(paths.UserRules); err != nil {
			return nil, baseLoad(StepUserRules, paths.UserRules, err)
		}
	}

	if err := o.applyProfile(db, paths.UserProfile); err != nil {
		return nil, err
	}
	return db, ctx.Err()
}

// applyProfile sets stored user parameters on the database's types.
// Menu parameters are declared where missing; other unknown parameters
// and unknown types are skipped.
func (o *Orchestrator) applyProfile(db *rules.Database, path string) error {
	if path == "" {
		return nil
	}
	prof, err := o.profiles(path).Load()
	if err != nil {
		return &Error{Kind: KindSettings, Step: StepProfile, Path: path, Err: err}
	}
	for typeName, params := range prof {
		ft := db.Type(typeName)
		if ft == nil {
			o.log.WithField("type", typeName).Debug("profile names unknown file type")
			continue
		}
		for name, value := range params {
			if desc, ok := rules.MenuParam(name); ok && !ft.HasParam(name) {
				ft.AddParam(name, "", desc)
			}
			if err := ft.SetParam(name, value); err != nil {
				o.log.WithFields(logrus.Fields{"type": typeName, "param": name}).Debug("profile names unknown parameter")
			}
		}
	}
	return nil
}
