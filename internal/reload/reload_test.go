package reload

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/colorer/internal/fixture"
	"github.com/dshills/colorer/internal/metrics"
	"github.com/dshills/colorer/internal/rules"
	"github.com/dshills/colorer/internal/scheme"
	"github.com/dshills/colorer/internal/settings"
)

func newOrchestrator(t *testing.T, p fixture.Paths) (*Orchestrator, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	o := New(
		WithHostDir(p.Dir),
		WithLogger(logrus.NewEntry(logger)),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	return o, hook
}

func userConfig(p fixture.Paths) settings.Config {
	cfg := settings.Defaults()
	cfg.UserRules = p.UserRules
	cfg.UserColors = p.UserColors
	cfg.UserProfile = p.Profile
	return cfg
}

func TestReloadDefaultCatalogInHostDir(t *testing.T) {
	p := fixture.Write(t)
	o, _ := newOrchestrator(t, p)

	b, err := o.Reload(context.Background(), settings.Defaults())
	require.NoError(t, err)

	assert.Equal(t, "default", b.Mapper().Name())
	assert.Equal(t, scheme.ModeIndexed, b.Mapper().Mode())
	assert.Equal(t, rules.DefaultTypeName, b.DefaultType().Name)
	assert.NotNil(t, b.Database().Type("go"))
	assert.Nil(t, b.Database().Type("rust"))
}

func TestReloadMergesUserFiles(t *testing.T) {
	p := fixture.Write(t)
	o, _ := newOrchestrator(t, p)

	cfg := userConfig(p)
	cfg.Scheme = "user"
	b, err := o.Reload(context.Background(), cfg)
	require.NoError(t, err)

	db := b.Database()
	require.NotNil(t, db.Type("rust"))
	assert.Equal(t, "Python (user)", db.Type("python").Description)
	assert.Equal(t, "user", b.Mapper().Name())
}

func TestReloadRelativePaths(t *testing.T) {
	p := fixture.Write(t)
	o, _ := newOrchestrator(t, p)

	cfg := settings.Defaults()
	cfg.Catalog = "catalog.xml"
	cfg.UserRules = filepath.Join("user", "rules.yaml")
	b, err := o.Reload(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, b.Database().Type("rust"))
}

func TestReloadAppliesProfile(t *testing.T) {
	p := fixture.Write(t)
	store := settings.NewProfileStore(p.Profile)
	require.NoError(t, store.Set("go", rules.ParamFavorite, "true"))
	require.NoError(t, store.Set("go", "no-such-param", "x"))
	require.NoError(t, store.Set("cobol", rules.ParamFavorite, "true"))

	o, hook := newOrchestrator(t, p)
	b, err := o.Reload(context.Background(), userConfig(p))
	require.NoError(t, err)

	v, ok := b.Database().Type("go").UserParam(rules.ParamFavorite)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	var skipped int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.DebugLevel && (e.Data["type"] == "cobol" || e.Data["param"] == "no-such-param") {
			skipped++
		}
	}
	assert.Equal(t, 2, skipped)
}

func TestReloadTrueColor(t *testing.T) {
	p := fixture.Write(t)
	o, _ := newOrchestrator(t, p)

	cfg := settings.Defaults()
	cfg.TrueColor = true
	cfg.SchemeTrueColor = "solarized"
	b, err := o.Reload(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, b.TrueColor())
	assert.Equal(t, "solarized", b.Mapper().Name())
}

func TestReloadSchemeFallback(t *testing.T) {
	p := fixture.Write(t)
	o, hook := newOrchestrator(t, p)

	cfg := settings.Defaults()
	cfg.Scheme = "no-such-scheme"
	b, err := o.Reload(context.Background(), cfg)
	require.NoError(t, err)

	want, _, err := scheme.Resolve(b.Database(), scheme.ModeIndexed, "")
	require.NoError(t, err)
	assert.Equal(t, want.Name(), b.Mapper().Name())
	assert.Equal(t, want.DefaultText(), b.Mapper().DefaultText())

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["scheme"] == "no-such-scheme" {
			warned = true
		}
	}
	assert.True(t, warned, "fallback must be logged at warning level")
}

func TestReloadErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, p fixture.Paths, cfg *settings.Config)
		kind  Kind
		step  Step
	}{
		{
			name: "missing catalog",
			setup: func(t *testing.T, p fixture.Paths, cfg *settings.Config) {
				cfg.Catalog = filepath.Join(p.Dir, "nope.xml")
			},
			kind: KindBaseLoad, step: StepCatalog,
		},
		{
			name: "malformed user colors",
			setup: func(t *testing.T, p fixture.Paths, cfg *settings.Config) {
				fixture.WriteFile(t, p.UserColors, "<colors/>")
			},
			kind: KindBaseLoad, step: StepUserColors,
		},
		{
			name: "malformed user rules",
			setup: func(t *testing.T, p fixture.Paths, cfg *settings.Config) {
				fixture.WriteFile(t, p.UserRules, "types: [name: {")
			},
			kind: KindBaseLoad, step: StepUserRules,
		},
		{
			name: "unreadable profile",
			setup: func(t *testing.T, p fixture.Paths, cfg *settings.Config) {
				fixture.WriteFile(t, p.Profile, "{not json")
			},
			kind: KindSettings, step: StepProfile,
		},
		{
			name: "unmappable scheme",
			setup: func(t *testing.T, p fixture.Paths, cfg *settings.Config) {
				fixture.WriteFile(t, p.UserColors, `<?xml version="1.0"?>
<hrd-sets><hrd class="console" name="user"><assign name="def:Text" fore="zz"/></hrd></hrd-sets>`)
				cfg.Scheme = "user"
			},
			kind: KindBaseLoad, step: StepScheme,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fixture.Write(t)
			o, _ := newOrchestrator(t, p)
			cfg := userConfig(p)
			tt.setup(t, p, &cfg)

			b, err := o.Reload(context.Background(), cfg)
			require.Error(t, err)
			assert.Nil(t, b)

			var re *Error
			require.True(t, errors.As(err, &re), "got %T: %v", err, err)
			assert.Equal(t, tt.kind, re.Kind)
			assert.Equal(t, tt.step, re.Step)
			assert.Equal(t, tt.kind, KindOf(err))
			if tt.kind == KindBaseLoad {
				assert.ErrorIs(t, err, ErrBaseLoad)
				assert.NotErrorIs(t, err, ErrSettings)
			} else {
				assert.ErrorIs(t, err, ErrSettings)
			}
		})
	}
}

func TestReloadCanceled(t *testing.T) {
	p := fixture.Write(t)
	o, _ := newOrchestrator(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Reload(ctx, settings.Defaults())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReloadProfileLoaderOption(t *testing.T) {
	p := fixture.Write(t)
	boom := errors.New("boom")
	o := New(
		WithHostDir(p.Dir),
		WithProfiles(func(string) ProfileLoader { return failingProfile{boom} }),
	)
	cfg := settings.Defaults()
	cfg.UserProfile = "profile.json"
	_, err := o.Reload(context.Background(), cfg)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, KindSettings, KindOf(err))
}

type failingProfile struct{ err error }

func (f failingProfile) Load() (settings.Profile, error) { return nil, f.err }

func TestTestReloadBothModes(t *testing.T) {
	p := fixture.Write(t)
	o, _ := newOrchestrator(t, p)

	c := CandidateFrom(userConfig(p))
	c.Scheme = "white"
	c.SchemeTrueColor = "missing"
	rep, err := o.TestReload(context.Background(), c, scheme.ModeBoth, true)
	require.NoError(t, err)

	require.Len(t, rep.Mappers, 2)
	assert.Equal(t, MapperReport{Mode: scheme.ModeIndexed, Requested: "white", Resolved: "white"}, rep.Mappers[0])
	assert.Equal(t, MapperReport{Mode: scheme.ModeTrueColor, Requested: "missing", Resolved: "default", FellBack: true}, rep.Mappers[1])
	assert.Equal(t, rep.FileTypes, rep.Compiled)
	assert.Equal(t, 5, rep.FileTypes)
}

func TestTestReloadCompileFailure(t *testing.T) {
	p := fixture.Write(t)
	fixture.WriteFile(t, p.UserRules, "types:\n  - name: broken\n    rules:\n      - pattern: '('\n        region: def:Error\n")
	o, _ := newOrchestrator(t, p)

	c := CandidateFrom(userConfig(p))
	_, err := o.TestReload(context.Background(), c, scheme.ModeIndexed, false)
	require.NoError(t, err, "rules are only compiled by a full test")

	_, err = o.TestReload(context.Background(), c, scheme.ModeIndexed, true)
	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, StepCompile, re.Step)
	assert.Equal(t, "broken", re.Path)
}
