package remap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/opencubicchunks/modrel/internal/config"
	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/output"
	"github.com/opencubicchunks/modrel/internal/registry"
	"github.com/opencubicchunks/modrel/internal/taskgraph"
)

// TaskPrefix starts the name of every remap task.
const TaskPrefix = "remap:"

// TaskName returns the graph task name for a module.
func TaskName(moduleID string) string {
	return TaskPrefix + moduleID
}

// Deps is what a remap task needs besides its module.
type Deps struct {
	Registry *registry.Registry
	// BaseDir resolves relative output and script paths.
	BaseDir   string
	Version   string
	OutputDir string
	// HookOutput receives hook stdout and stderr. Nil means os.Stderr.
	HookOutput io.Writer
}

// Task returns the remap task of module m. The hook is parsed up front so a
// broken script fails planning rather than the build.
func Task(m config.ModuleConfig, deps Deps) (taskgraph.Task, error) {
	hook, err := NewHook(m, deps.BaseDir)
	if err != nil {
		return taskgraph.Task{}, err
	}

	return taskgraph.Task{
		Name: TaskName(m.ID),
		Run: func(ctx context.Context, _ taskgraph.Gate) error {
			log := output.TaskLogger(TaskName(m.ID))
			if hook != nil {
				log.Debug("running remap hook")
				err := hook.Run(ctx, HookEnv{
					Version:   deps.Version,
					OutputDir: deps.OutputDir,
					Stdout:    deps.HookOutput,
					Stderr:    deps.HookOutput,
				})
				if err != nil {
					return err
				}
			}
			if err := LoadOutputs(deps.Registry, m, deps.BaseDir); err != nil {
				return err
			}
			log.Debug("outputs registered", "roles", len(m.Outputs))
			return nil
		},
	}, nil
}

// LoadOutputs registers every output of m.
func LoadOutputs(reg *registry.Registry, m config.ModuleConfig, baseDir string) error {
	for _, o := range m.Outputs {
		files, err := loadOutput(o, config.InDir(baseDir, o.Path))
		if err != nil {
			return fmt.Errorf("module %q role %s: %w", m.ID, o.Role, err)
		}
		if err := reg.Register(registry.Role(o.Role), m.ID, files); err != nil {
			return err
		}
	}
	return nil
}

func loadOutput(o config.OutputConfig, path string) ([]registry.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, oerrors.NewNotFoundError("module output does not exist", path, "Run the module build first")
		}
		return nil, err
	}

	switch layout := Layout(o, info.IsDir()); layout {
	case config.LayoutDir:
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", path)
		}
		return registry.LoadDir(osfs.New(path), ".")
	case config.LayoutArchive:
		return registry.LoadArchive(path)
	default:
		f, err := registry.LoadFile(osfs.New(filepath.Dir(path)), filepath.Base(path))
		if err != nil {
			return nil, err
		}
		return []registry.File{f}, nil
	}
}

// Layout returns the configured layout of o, or infers one: directories are
// walked, embedded dependencies stay whole, other jars and zips are expanded.
func Layout(o config.OutputConfig, isDir bool) string {
	if o.Layout != "" {
		return o.Layout
	}
	if isDir {
		return config.LayoutDir
	}
	if registry.Role(o.Role) == registry.RoleEmbeddedDependency {
		return config.LayoutFile
	}
	ext := strings.ToLower(filepath.Ext(o.Path))
	if ext == ".jar" || ext == ".zip" {
		return config.LayoutArchive
	}
	return config.LayoutFile
}
