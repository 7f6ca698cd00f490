package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/release"
	"github.com/opencubicchunks/modrel/internal/testutil"
	"github.com/opencubicchunks/modrel/internal/vcs"
)

const testDefinition = `group: io.github.opencubicchunks
archivesBaseName: CubicChunks
mcVersion: 1.12.2
manifest:
  corePlugin: io.core.Loader
modules:
  - id: core
    outputs:
      - role: core-loader
        path: core/classes
      - role: main-module
        path: core/libs/cubicchunks.jar
        layout: file
  - id: api
    outputs:
      - role: embedded-dependency
        path: api/libs/api.jar
`

// setupProject writes a definition plus the module outputs it names.
func setupProject(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"MODREL_CONFIG", "MODREL_RELEASE", "MODREL_VERSION_MINOR_FREEZE", "MODREL_VERSION_SUFFIX", "MODREL_MC_VERSION"} {
		t.Setenv(name, "")
	}

	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "modrel.yaml"), testDefinition)
	testutil.WriteFile(t, filepath.Join(dir, "core/classes/io/core/Loader.class"), "loader")
	testutil.WriteZip(t, filepath.Join(dir, "core/libs/cubicchunks.jar"), map[string]string{"io/main/Mod.class": "mod"})
	testutil.WriteFile(t, filepath.Join(dir, "api/libs/api.jar"), "api-jar")
	return dir
}

func testGlobals(describe, branch string) *GlobalConfig {
	return &GlobalConfig{
		VCS: release.QuerierFunc(func(context.Context, string) (vcs.Info, error) {
			return vcs.Info{Describe: describe, Branch: branch}, nil
		}),
		Env: func(string) string { return "" },
	}
}

func execute(t *testing.T, g *GlobalConfig, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(g)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *oerrors.ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	return exitErr.Code
}
