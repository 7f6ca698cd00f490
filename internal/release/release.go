// Package release runs a complete build: version resolution, remap tasks and
// bundle assembly over one task graph.
package release

import (
	"context"
	"io"

	"github.com/opencubicchunks/modrel/internal/config"
	"github.com/opencubicchunks/modrel/internal/modversion"
	"github.com/opencubicchunks/modrel/internal/output"
	"github.com/opencubicchunks/modrel/internal/registry"
	"github.com/opencubicchunks/modrel/internal/vcs"
)

// Querier answers the describe and branch queries for a directory.
type Querier interface {
	Query(ctx context.Context, dir string) (vcs.Info, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, dir string) (vcs.Info, error)

// Query implements Querier.
func (f QuerierFunc) Query(ctx context.Context, dir string) (vcs.Info, error) {
	return f(ctx, dir)
}

// GitQuerier queries the git repository containing dir.
var GitQuerier Querier = QuerierFunc(vcs.Query)

// Options configures one build.
type Options struct {
	// Config is the project definition with defaults applied.
	Config *config.Config
	// Release forces a release build on top of Config.Release.
	Release bool
	// Workers overrides Config.Workers when positive.
	Workers int
	// SkipVersionFile suppresses the version file.
	SkipVersionFile bool
	// VCS defaults to GitQuerier.
	VCS Querier
	// Env looks up CI branch variables. Nil means os.Getenv.
	Env func(string) string
	// HookOutput receives remap hook output. Nil means os.Stderr.
	HookOutput io.Writer
}

// ResolveVersion runs the VCS queries and derives the version. VCS failures
// produce a marker version, not an error.
func ResolveVersion(ctx context.Context, opts Options) (modversion.ResolvedVersion, error) {
	cfg := opts.Config
	querier := opts.VCS
	if querier == nil {
		querier = GitQuerier
	}

	freeze, err := modversion.ParseFreeze(cfg.VersionMinorFreeze)
	if err != nil {
		return modversion.ResolvedVersion{}, err
	}

	// A query failure is logged by the resolver when it picks the placeholder.
	info, vcsErr := querier.Query(ctx, cfg.BaseDir)

	return modversion.Resolve(modversion.Inputs{
		Describe:  info.Describe,
		VCSErr:    vcsErr,
		Branch:    info.Branch,
		Freeze:    freeze,
		Release:   opts.Release || cfg.Release,
		MCVersion: cfg.EffectiveMCVersion(),
		Suffix:    cfg.VersionSuffix,
		Env:       opts.Env,
	})
}

// Run resolves the version, writes the version file and executes the build
// graph. The returned error covers failures before the graph runs; bundle and
// remap failures are reported in the Report.
func Run(ctx context.Context, opts Options) (*Report, error) {
	cfg := opts.Config

	version, err := ResolveVersion(ctx, opts)
	if err != nil {
		return nil, err
	}
	output.Info("version resolved", "version", version.String())

	report := &Report{Version: version}
	if !opts.SkipVersionFile {
		path := cfg.Path(cfg.VersionFile)
		if err := modversion.WriteVersionFile(path, version); err != nil {
			return nil, err
		}
		report.VersionFile = path
		output.Debug("version file written", "path", path)
	}

	b := newBuilder(cfg, version.String(), registry.New(), opts.HookOutput)
	g, err := b.graph()
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = cfg.EffectiveWorkers()
	}

	output.Debug("running build graph", "tasks", g.Len(), "workers", workers)
	report.Tasks = g.Run(ctx, workers)
	report.Bundles = b.outcomes(report.Tasks)
	return report, nil
}

// Plan returns the tasks in execution order without running them.
func Plan(cfg *config.Config) ([]PlannedTask, error) {
	b := newBuilder(cfg, "", registry.New(), nil)
	g, err := b.graph()
	if err != nil {
		return nil, err
	}

	order := g.Order()
	planned := make([]PlannedTask, 0, len(order))
	for _, name := range order {
		pt := PlannedTask{Name: name, After: g.Predecessors(name)}
		if bc, ok := b.bundleByTask[name]; ok {
			pt.Bundle = bc.Name
			pt.Kind = bc.Kind
			pt.File = fileName(cfg, "<version>", bc)
		}
		planned = append(planned, pt)
	}
	return planned, nil
}

// PlannedTask is one entry of Plan.
type PlannedTask struct {
	Name   string   `json:"name" yaml:"name"`
	After  []string `json:"after,omitempty" yaml:"after,omitempty"`
	Bundle string   `json:"bundle,omitempty" yaml:"bundle,omitempty"`
	Kind   string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	File   string   `json:"file,omitempty" yaml:"file,omitempty"`
}
