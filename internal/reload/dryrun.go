package reload

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/colorer/internal/metrics"
	"github.com/dshills/colorer/internal/scheme"
	"github.com/dshills/colorer/internal/settings"
)

// Candidate is a configuration being tried out before it is applied.
type Candidate struct {
	Catalog         string
	UserRules       string
	UserColors      string
	UserProfile     string
	Scheme          string
	SchemeTrueColor string
}

// CandidateFrom copies the source and scheme fields of cfg.
func CandidateFrom(cfg settings.Config) Candidate {
	return Candidate{
		Catalog:         cfg.Catalog,
		UserRules:       cfg.UserRules,
		UserColors:      cfg.UserColors,
		UserProfile:     cfg.UserProfile,
		Scheme:          cfg.Scheme,
		SchemeTrueColor: cfg.SchemeTrueColor,
	}
}

func (c Candidate) config() settings.Config {
	return settings.Config{
		Catalog:         c.Catalog,
		UserRules:       c.UserRules,
		UserColors:      c.UserColors,
		UserProfile:     c.UserProfile,
		Scheme:          c.Scheme,
		SchemeTrueColor: c.SchemeTrueColor,
	}
}

// MapperReport describes the mapper one palette mode resolved to.
type MapperReport struct {
	Mode      scheme.Mode
	Requested string
	Resolved  string
	FellBack  bool
}

// Report is the outcome of a successful dry run.
type Report struct {
	Catalog   string
	FileTypes int
	Compiled  int
	Mappers   []MapperReport
	Duration  time.Duration
}

// TestReload loads a candidate configuration without committing anything.
// With ModeBoth the indexed and the true color mapper are both resolved.
// With full, the base rules of every file type are compiled.
func (o *Orchestrator) TestReload(ctx context.Context, c Candidate, mode scheme.Mode, full bool) (rep *Report, err error) {
	start := time.Now()
	defer func() {
		if err == nil {
			o.metrics.ObserveReload(metrics.ResultDryRun, time.Since(start))
		}
	}()

	paths := o.Paths(c.config())
	db, err := o.load(ctx, paths)
	if err != nil {
		return nil, err
	}

	rep = &Report{Catalog: paths.Catalog, FileTypes: len(db.FileTypes())}

	modes := []scheme.Mode{mode}
	if mode == scheme.ModeBoth {
		modes = []scheme.Mode{scheme.ModeIndexed, scheme.ModeTrueColor}
	}
	for _, m := range modes {
		name := c.Scheme
		if m == scheme.ModeTrueColor {
			name = c.SchemeTrueColor
		}
		mapper, fellBack, err := scheme.ResolveOrDefault(db, m, name, o.log)
		if err != nil {
			return nil, baseLoad(StepScheme, name, err)
		}
		rep.Mappers = append(rep.Mappers, MapperReport{
			Mode:      m,
			Requested: name,
			Resolved:  mapper.Name(),
			FellBack:  fellBack,
		})
	}

	if full {
		for _, ft := range db.FileTypes() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, err := ft.BaseScheme(); err != nil {
				return nil, baseLoad(StepCompile, ft.Name, err)
			}
			rep.Compiled++
		}
	}

	rep.Duration = time.Since(start)
	o.log.WithFields(logrus.Fields{
		"catalog":  rep.Catalog,
		"types":    rep.FileTypes,
		"compiled": rep.Compiled,
	}).Debug("test reload passed")
	return rep, nil
}
