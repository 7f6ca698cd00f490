package release

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/opencubicchunks/modrel/internal/bundle"
	"github.com/opencubicchunks/modrel/internal/config"
	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/manifest"
	"github.com/opencubicchunks/modrel/internal/registry"
	"github.com/opencubicchunks/modrel/internal/remap"
	"github.com/opencubicchunks/modrel/internal/taskgraph"
)

// BundleTaskPrefix starts the name of every bundle task.
const BundleTaskPrefix = "bundle:"

// BundleTaskName returns the graph task name for a bundle.
func BundleTaskName(name string) string {
	return BundleTaskPrefix + name
}

// builder turns a project definition into graph tasks and collects bundle
// results while the graph runs.
type builder struct {
	cfg        *config.Config
	version    string
	reg        *registry.Registry
	hookOutput io.Writer
	assembler  *bundle.Assembler

	bundleByTask map[string]config.BundleConfig

	mu      sync.Mutex
	results map[string]*bundle.Result
}

func newBuilder(cfg *config.Config, version string, reg *registry.Registry, hookOutput io.Writer) *builder {
	return &builder{
		cfg:        cfg,
		version:    version,
		reg:        reg,
		hookOutput: hookOutput,
		assembler: &bundle.Assembler{
			OutputDir: cfg.Path(cfg.OutputDir),
			BaseName:  cfg.ArchivesBaseName,
			Version:   version,
			Settings:  settings(cfg),
		},
		bundleByTask: make(map[string]config.BundleConfig, len(cfg.Bundles)),
		results:      make(map[string]*bundle.Result, len(cfg.Bundles)),
	}
}

func settings(cfg *config.Config) manifest.Settings {
	forceLoad := true
	if cfg.Manifest.ForceLoadAsMod != nil {
		forceLoad = *cfg.Manifest.ForceLoadAsMod
	}
	return manifest.Settings{
		Group:             cfg.Group,
		ArchivesBaseName:  cfg.ArchivesBaseName,
		AccessTransformer: cfg.Manifest.AccessTransformer,
		CorePlugin:        cfg.Manifest.CorePlugin,
		TweakClass:        cfg.Manifest.TweakClass,
		TweakOrder:        cfg.Manifest.TweakOrder,
		ForceLoadAsMod:    forceLoad,
	}
}

func fileName(cfg *config.Config, version string, bc config.BundleConfig) string {
	return bundle.FileName(cfg.ArchivesBaseName, version, bc.Classifier)
}

func (b *builder) graph() (*taskgraph.Graph, error) {
	var tasks []taskgraph.Task

	for _, m := range b.cfg.Modules {
		t, err := remap.Task(m, remap.Deps{
			Registry:   b.reg,
			BaseDir:    b.cfg.BaseDir,
			Version:    b.version,
			OutputDir:  b.cfg.Path(b.cfg.OutputDir),
			HookOutput: b.hookOutput,
		})
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	for _, bc := range b.cfg.Bundles {
		if !bundle.Kind(bc.Kind).IsValid() {
			return nil, oerrors.NewValidationError(fmt.Sprintf("unknown bundle kind %q", bc.Kind), bc.Name, "kind",
				"Use core-only, full-embed or shaded-relocated")
		}
		name := BundleTaskName(bc.Name)
		requires := b.predecessors(bc)
		b.bundleByTask[name] = bc
		tasks = append(tasks, taskgraph.Task{
			Name:  name,
			After: requires,
			Run:   b.bundleRunner(bc, requires),
		})
	}

	return taskgraph.New(tasks)
}

// predecessors are the remap tasks of every module filling a role the bundle
// reads, the layered bundle, and explicit after entries.
func (b *builder) predecessors(bc config.BundleConfig) []string {
	roles := make(map[string]bool)
	for _, r := range bc.Roles {
		roles[r] = true
	}
	for _, r := range bc.EmbedRoles {
		roles[r] = true
	}

	set := make(map[string]bool)
	for _, m := range b.cfg.Modules {
		for _, o := range m.Outputs {
			if roles[o.Role] {
				set[remap.TaskName(m.ID)] = true
			}
		}
	}
	if bc.Layer != "" {
		set[BundleTaskName(bc.Layer)] = true
	}
	for _, a := range bc.After {
		set[BundleTaskName(a)] = true
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (b *builder) bundleRunner(bc config.BundleConfig, requires []string) func(context.Context, taskgraph.Gate) error {
	return func(ctx context.Context, gate taskgraph.Gate) error {
		spec, err := b.spec(bc, requires)
		if err != nil {
			b.record(&bundle.Result{Name: bc.Name, Kind: bundle.Kind(bc.Kind), State: bundle.Failed, Err: err})
			return err
		}
		res, err := b.assembler.Assemble(ctx, spec, gate)
		b.record(res)
		return err
	}
}

func (b *builder) spec(bc config.BundleConfig, requires []string) (bundle.Spec, error) {
	spec := bundle.Spec{
		Name:               bc.Name,
		Kind:               bundle.Kind(bc.Kind),
		Classifier:         bc.Classifier,
		ManifestAttributes: bc.Attributes,
		ExcludePatterns:    bc.Exclude,
		Requires:           requires,
	}

	if bc.Layer != "" {
		layered, err := b.layerOutput(bc)
		if err != nil {
			return spec, err
		}
		spec.Inputs = append(spec.Inputs, layered)
	}
	for _, r := range bc.Roles {
		role := registry.Role(r)
		spec.Roles = append(spec.Roles, role)
		spec.Inputs = append(spec.Inputs, b.reg.Lookup(role)...)
	}
	for _, r := range bc.Unpack {
		spec.Unpack = append(spec.Unpack, registry.Role(r))
	}
	for _, r := range bc.EmbedRoles {
		spec.Embedded = append(spec.Embedded, b.reg.Lookup(registry.Role(r))...)
	}
	for _, rl := range bc.Relocate {
		spec.Relocations = append(spec.Relocations, bundle.Relocation{From: rl.From, To: rl.To})
	}
	return spec, nil
}

// layerOutput reads the layered bundle's written archive back as an input.
// It carries the first role of that bundle, so a layered core-only bundle
// still counts as core-loader content for the manifest.
func (b *builder) layerOutput(bc config.BundleConfig) (*registry.ModuleOutput, error) {
	b.mu.Lock()
	res := b.results[bc.Layer]
	b.mu.Unlock()

	if res == nil || res.State != bundle.Written {
		return nil, &bundle.OrderingError{Bundle: bc.Name, Missing: []string{BundleTaskName(bc.Layer)}}
	}

	files, err := registry.LoadArchive(res.Path)
	if err != nil {
		return nil, err
	}

	role := registry.RoleMainModule
	for _, other := range b.cfg.Bundles {
		if other.Name == bc.Layer && len(other.Roles) > 0 {
			role = registry.Role(other.Roles[0])
		}
	}
	return &registry.ModuleOutput{Role: role, ModuleID: BundleTaskName(bc.Layer), Files: files}, nil
}

func (b *builder) record(res *bundle.Result) {
	if res == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[res.Name] = res
}

func (b *builder) result(name string) *bundle.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.results[name]
}
