package colorer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dshills/colorer/internal/reload"
	"github.com/dshills/colorer/internal/scheme"
	"github.com/dshills/colorer/internal/settings"
)

// Configure applies a new configuration from the settings dialog. The
// amount of work depends on what changed:
//
//   - disabling, or enabling from the disabled state, switches state;
//   - a changed catalog, user file or profile path reloads everything;
//   - a changed scheme or palette mode only re-resolves the mapper;
//   - display flags are pushed to the open editors.
//
// Pending scheme picks are discarded.
func (s *Set) Configure(ctx context.Context, cfg settings.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	clear(s.candidates)

	if cfg.Log != s.cfg.Log {
		if err := s.sink.Apply(cfg.Log); err != nil {
			return err
		}
	}

	prev := s.cfg
	switch {
	case !cfg.Enabled:
		s.cfg = cfg
		if s.state == StateDisabled {
			s.persist()
			return nil
		}
		return s.Disable()
	case s.state == StateDisabled:
		return s.reloadWith(ctx, cfg, prev)
	case !cfg.SourcesEqual(prev):
		return s.reloadWith(ctx, cfg, prev)
	case !cfg.SchemesEqual(prev):
		return s.RefreshSchemes(cfg)
	}

	opts, _ := cfg.Options()
	s.cfg = cfg
	s.reg.BroadcastSettingsChange(opts)
	s.persist()
	s.applyBackground(s.reg.Active())
	s.redrawCurrent()
	return nil
}

// RefreshSchemes resolves the scheme of cfg against the active database
// and commits a bundle differing only in its mapper. A scheme that cannot
// be mapped is a fatal reload error.
func (s *Set) RefreshSchemes(cfg settings.Config) error {
	b, err := s.active()
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	mode := scheme.ModeFor(cfg.TrueColor)
	m, fellBack, err := scheme.ResolveOrDefault(b.Database(), mode, cfg.SchemeName(), s.log)
	if err != nil {
		err = &reload.Error{Kind: reload.KindBaseLoad, Step: reload.StepScheme, Path: cfg.SchemeName(), Err: err}
		s.fail(err, s.cfg)
		return err
	}
	if fellBack {
		s.metrics.SchemeFallback(mode.Class())
	}
	nb, err := b.WithMapper(m)
	if err != nil {
		return err
	}

	s.cfg = cfg
	s.reg.BroadcastSettingsChange(opts)
	s.reg.Commit(nb)
	s.persist()
	s.applyBackground(nb)
	s.redrawCurrent()
	s.log.WithFields(logrus.Fields{"scheme": m.Name(), "mode": mode}).Info("color scheme changed")
	return nil
}

// TestReload loads candidate without committing anything. Both palette
// modes are resolved; with full every file type's rules are compiled.
func (s *Set) TestReload(ctx context.Context, candidate reload.Candidate, full bool) (*reload.Report, error) {
	return s.orch.TestReload(ctx, candidate, scheme.ModeBoth, full)
}

// Candidate returns the configuration's sources with the pending scheme
// picks applied.
func (s *Set) Candidate() reload.Candidate {
	c := reload.CandidateFrom(s.cfg)
	c.Scheme, c.SchemeTrueColor = s.CandidateSchemes()
	return c
}

// PickScheme remembers a scheme chosen in the settings dialog until the
// dialog is applied with Configure. TestReload sees it through Candidate.
func (s *Set) PickScheme(mode scheme.Mode, name string) error {
	if mode == scheme.ModeBoth {
		return scheme.ErrModeBoth
	}
	infos, err := s.Schemes(mode)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.Name == name {
			s.candidates[mode] = name
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownScheme, name)
}

// CandidateSchemes returns the picked schemes, or the configured ones
// where nothing was picked.
func (s *Set) CandidateSchemes() (indexed, trueColor string) {
	indexed, trueColor = s.cfg.Scheme, s.cfg.SchemeTrueColor
	if name, ok := s.candidates[scheme.ModeIndexed]; ok {
		indexed = name
	}
	if name, ok := s.candidates[scheme.ModeTrueColor]; ok {
		trueColor = name
	}
	return indexed, trueColor
}

// Schemes lists the schemes of a palette mode in the active database.
func (s *Set) Schemes(mode scheme.Mode) ([]scheme.Info, error) {
	b, err := s.active()
	if err != nil {
		return nil, err
	}
	return scheme.List(b.Database(), mode), nil
}

// ConfigureLogging applies and persists new log settings.
func (s *Set) ConfigureLogging(l settings.Log) error {
	if err := s.sink.Apply(l); err != nil {
		return err
	}
	s.cfg.Log = l
	s.persist()
	return nil
}
