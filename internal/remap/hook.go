// Package remap builds the per-module remap tasks: an optional external
// remap hook followed by loading the module's outputs into the registry.
package remap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/opencubicchunks/modrel/internal/config"
)

// Variables exported to a hook.
const (
	EnvModule  = "MODREL_MODULE"
	EnvVersion = "MODREL_VERSION"
	EnvOutput  = "MODREL_OUTPUT"
)

// HookError reports a hook that exited non-zero.
type HookError struct {
	Module   string
	ExitCode int
}

func (e *HookError) Error() string {
	return fmt.Sprintf("remap hook for module %q exited with status %d", e.Module, e.ExitCode)
}

// Hook is a parsed remap script for one module.
type Hook struct {
	Module string
	// Dir is the working directory the script runs in.
	Dir  string
	prog *syntax.File
}

// HookEnv is the per-run environment of a hook.
type HookEnv struct {
	Version   string
	OutputDir string
	// Base is inherited by the script. Nil means os.Environ().
	Base   []string
	Stdout io.Writer
	Stderr io.Writer
}

// NewHook parses the module's remap hook. It returns nil when the module has
// none.
func NewHook(m config.ModuleConfig, baseDir string) (*Hook, error) {
	if m.Remap == nil || (m.Remap.Run == "" && m.Remap.Script == "") {
		return nil, nil
	}

	source, name := m.Remap.Run, "remap:"+m.ID
	if m.Remap.Script != "" {
		name = config.InDir(baseDir, m.Remap.Script)
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading remap script for %q: %w", m.ID, err)
		}
		source = string(data)
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse remap hook for %q: %w", m.ID, err)
	}
	return &Hook{Module: m.ID, Dir: baseDir, prog: prog}, nil
}

// Run executes the hook in-process.
func (h *Hook) Run(ctx context.Context, env HookEnv) error {
	base := env.Base
	if base == nil {
		base = os.Environ()
	}
	vars := append(append([]string(nil), base...),
		EnvModule+"="+h.Module,
		EnvVersion+"="+env.Version,
		EnvOutput+"="+env.OutputDir,
	)

	stdout, stderr := env.Stdout, env.Stderr
	if stdout == nil {
		stdout = os.Stderr
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	runner, err := interp.New(
		interp.Dir(h.Dir),
		interp.Env(expand.ListEnviron(vars...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, h.prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &HookError{Module: h.Module, ExitCode: int(status)}
		}
		return fmt.Errorf("remap hook for %q failed: %w", h.Module, err)
	}
	return nil
}
