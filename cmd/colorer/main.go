// Package main is the command line front end of the colorer add-on. It
// drives the add-on through the in-memory console host.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dshills/colorer/internal/colorer"
	"github.com/dshills/colorer/internal/host"
	"github.com/dshills/colorer/internal/logging"
	"github.com/dshills/colorer/internal/metrics"
	"github.com/dshills/colorer/internal/reload"
	"github.com/dshills/colorer/internal/rules"
	"github.com/dshills/colorer/internal/scheme"
	"github.com/dshills/colorer/internal/settings"
	"github.com/dshills/colorer/internal/viewer"
	"github.com/dshills/colorer/internal/watch"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const settingsName = "colorer.toml"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	settings    string
	hostDir     string
	full        bool
	metricsAddr string
	showVersion bool
}

type app struct {
	opts    options
	out     io.Writer
	sink    *logging.Sink
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	set     *colorer.Set
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "colorer %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "Error: missing command")
		return 2
	}

	a := newApp(opts, stdout, stderr)
	defer a.sink.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "reload":
		err = a.reload(ctx)
	case "test":
		err = a.test(ctx)
	case "types":
		err = a.types(ctx)
	case "schemes":
		err = a.schemes(ctx)
	case "view":
		if len(cmdArgs) != 1 {
			fmt.Fprintln(stderr, "Error: view takes one file")
			return 2
		}
		err = a.view(ctx, cmdArgs[0])
	case "watch":
		err = a.watch(ctx)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", cmd)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, []string, error) {
	var opts options
	fs := flag.NewFlagSet("colorer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.settings, "settings", "", "Path to the settings file")
	fs.StringVar(&opts.settings, "s", "", "Path to the settings file (shorthand)")
	fs.StringVar(&opts.hostDir, "dir", "", "Host directory relative paths resolve against")
	fs.BoolVar(&opts.full, "full", false, "Compile every file type when testing")
	fs.StringVar(&opts.metricsAddr, "metrics", "", "Serve prometheus metrics on this address while watching")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "colorer - syntax highlighting add-on\n\n")
		fmt.Fprintf(stderr, "Usage: colorer [options] command [args]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  reload       Load the rule database and report it\n")
		fmt.Fprintf(stderr, "  test         Dry-run the configured sources\n")
		fmt.Fprintf(stderr, "  types        List the file types\n")
		fmt.Fprintf(stderr, "  schemes      List the color schemes\n")
		fmt.Fprintf(stderr, "  view FILE    Show a highlighted file\n")
		fmt.Fprintf(stderr, "  watch        Reload when rule sources change\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	if opts.settings == "" {
		opts.settings = defaultSettingsPath()
	}
	if opts.hostDir == "" {
		opts.hostDir = filepath.Dir(opts.settings)
	}
	return opts, fs.Args(), nil
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return settingsName
	}
	return filepath.Join(dir, "colorer", settingsName)
}

func newApp(opts options, stdout, stderr io.Writer) *app {
	a := &app{
		opts: opts,
		out:  stdout,
		sink: logging.NewSink(),
		reg:  prometheus.NewRegistry(),
	}
	a.metrics = metrics.New(a.reg)
	a.set = colorer.New(
		host.NewConsole(stderr),
		settings.NewFileStore(opts.settings),
		colorer.WithHostDir(opts.hostDir),
		colorer.WithLogSink(a.sink),
		colorer.WithMetrics(a.metrics),
		colorer.WithViewer(viewer.New()),
	)
	return a
}

// start brings the add-on up and requires it to end up enabled.
func (a *app) start(ctx context.Context) error {
	if err := a.set.Start(ctx); err != nil {
		return err
	}
	if a.set.State() != colorer.StateEnabled {
		return colorer.ErrDisabled
	}
	return nil
}

func (a *app) reload(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	b := a.set.Registry().Active()
	fmt.Fprintf(a.out, "bundle %s\n", b.ID())
	fmt.Fprintf(a.out, "file types: %d\n", len(b.Database().FileTypes()))
	fmt.Fprintf(a.out, "scheme: %s (%s)\n", b.Mapper().Name(), b.Mapper().Mode())
	return nil
}

func (a *app) test(ctx context.Context) error {
	store := settings.NewFileStore(a.opts.settings)
	cfg, err := store.Load()
	if err != nil {
		return err
	}
	rep, err := a.set.TestReload(ctx, reload.CandidateFrom(cfg), a.opts.full)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "catalog: %s\n", rep.Catalog)
	fmt.Fprintf(a.out, "file types: %d\n", rep.FileTypes)
	if a.opts.full {
		fmt.Fprintf(a.out, "compiled: %d\n", rep.Compiled)
	}
	for _, m := range rep.Mappers {
		line := fmt.Sprintf("%s scheme: %s", m.Mode, m.Resolved)
		if m.FellBack {
			line += fmt.Sprintf(" (%q not found)", m.Requested)
		}
		fmt.Fprintln(a.out, line)
	}
	fmt.Fprintf(a.out, "ok in %s\n", rep.Duration)
	return nil
}

func (a *app) types(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, ft := range a.set.Registry().Active().Database().FileTypes() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ft.Group, ft.Name, ft.Description)
	}
	return tw.Flush()
}

func (a *app) schemes(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, mode := range []scheme.Mode{scheme.ModeIndexed, scheme.ModeTrueColor} {
		infos, err := a.set.Schemes(mode)
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", mode, info.Name, info.Description)
		}
	}
	return tw.Flush()
}

func (a *app) view(ctx context.Context, path string) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	return a.set.ViewFile(path)
}

// watch reloads on source changes until interrupted. Reloads run on this
// goroutine, the watcher only posts them.
func (a *app) watch(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	log := a.sink.Entry("watch")

	if a.opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:    a.opts.metricsAddr,
			Handler: promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server failed")
			}
		}()
		defer srv.Close()
	}

	work := make(chan func(), 1)
	post := func(fn func()) {
		select {
		case work <- fn:
		case <-ctx.Done():
		}
	}

	sources, candidate := a.watchSources(), a.set.Candidate()
	w, err := a.startWatcher(ctx, sources, candidate, post, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "watching %d paths, interrupt to stop\n", len(w.Paths()))

	for {
		select {
		case <-ctx.Done():
			return w.Stop()
		case <-w.Dead():
			return w.Stop()
		case fn := <-work:
			fn()
			next, nextCandidate := a.watchSources(), a.set.Candidate()
			if slices.Equal(next, sources) && nextCandidate == candidate {
				continue
			}
			if err := w.Stop(); err != nil {
				log.WithError(err).Warn("stopping watcher")
			}
			sources, candidate = next, nextCandidate
			if w, err = a.startWatcher(ctx, sources, candidate, post, log); err != nil {
				return err
			}
			log.WithField("paths", len(w.Paths())).Info("rule sources moved, watcher restarted")
		}
	}
}

// watchSources lists the user files plus everything the catalog loads.
// A catalog that does not parse is watched alone until it is fixed.
func (a *app) watchSources() []string {
	paths := a.set.Orchestrator().Paths(a.set.Config())
	out := []string{paths.UserRules, paths.UserColors, paths.UserProfile}
	src, err := rules.CatalogSources(paths.Catalog)
	if err != nil {
		return append(out, paths.Catalog)
	}
	return append(out, src.Paths()...)
}

func (a *app) startWatcher(ctx context.Context, sources []string, candidate reload.Candidate, post watch.Post, log *logrus.Entry) (*watch.Watcher, error) {
	orch := a.set.Orchestrator()
	w, err := watch.New(
		sources,
		func(ctx context.Context) error {
			_, err := orch.TestReload(ctx, candidate, scheme.ModeBoth, false)
			return err
		},
		post,
		func() {
			if err := a.set.Reload(ctx); err != nil {
				log.WithError(err).Error("reload failed")
			}
		},
		watch.WithPatterns(rules.RuleFilePatterns...),
		watch.WithLogger(log),
		watch.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}
