package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/testutil"
)

func TestBuildCmd(t *testing.T) {
	cmd := NewBuildCmd(&GlobalConfig{})

	assert.Equal(t, "build", cmd.Use)
	assert.NotEmpty(t, cmd.Long)
	for _, flag := range []string{"release", "workers", "no-version-file"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}

func TestBuildWritesBundles(t *testing.T) {
	dir := setupProject(t)

	out, err := execute(t, testGlobals("v1.2-7-gabcdef0", "master"), "build", "-C", dir, "--workers", "2")
	require.NoError(t, err)

	libs := filepath.Join(dir, "build", "libs")
	for _, classifier := range []string{"core", "all-depext", "shade-all"} {
		assert.FileExists(t, filepath.Join(libs, "CubicChunks-1.12.2-1.2.7.0-SNAPSHOT-"+classifier+".jar"))
	}
	shaded := testutil.ZipContent(t, filepath.Join(libs, "CubicChunks-1.12.2-1.2.7.0-SNAPSHOT-shade-all.jar"))
	assert.Equal(t, "mod", shaded["io/main/Mod.class"])
	assert.Equal(t, "api-jar", shaded["api.jar"])

	data, err := os.ReadFile(filepath.Join(dir, "VERSION"))
	require.NoError(t, err)
	assert.Equal(t, "VERSION=1.12.2-1.2.7.0-SNAPSHOT\n", string(data))

	assert.Contains(t, out, "b:core")
	assert.Contains(t, out, "b:full")
	assert.Contains(t, out, "b:shaded")
	assert.Contains(t, out, "written")
	assert.Contains(t, out, "Built")
}

func TestBuildReleaseWithoutVersionFile(t *testing.T) {
	dir := setupProject(t)

	_, err := execute(t, testGlobals("v1.2-7-gabcdef0", "master"), "build", "-C", dir, "--release", "--no-version-file")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "build", "libs", "CubicChunks-1.12.2-1.2.7.0-core.jar"))
	assert.NoFileExists(t, filepath.Join(dir, "VERSION"))
}

func TestBuildMissingOutputFailsDependents(t *testing.T) {
	dir := setupProject(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "api/libs/api.jar")))

	out, err := execute(t, testGlobals("v1.2-7-gabcdef0", "master"), "build", "-C", dir)

	require.Error(t, err)
	assert.Equal(t, oerrors.ExitBundleFailed, exitCode(t, err))
	assert.ErrorIs(t, err, oerrors.ErrBundle)
	assert.Contains(t, out, "skipped")
	assert.FileExists(t, filepath.Join(dir, "build", "libs", "CubicChunks-1.12.2-1.2.7.0-SNAPSHOT-core.jar"))
}

func TestBuildAmbiguousBranch(t *testing.T) {
	dir := setupProject(t)

	_, err := execute(t, testGlobals("v1.2-7-gabcdef0", "HEAD"), "build", "-C", dir)

	require.Error(t, err)
	assert.Equal(t, oerrors.ExitAmbiguousBranch, exitCode(t, err))
}

func TestBuildMissingDefinition(t *testing.T) {
	t.Setenv("MODREL_CONFIG", "")

	_, err := execute(t, testGlobals("v1.2", "master"), "build", "-C", t.TempDir())

	require.Error(t, err)
	assert.Equal(t, oerrors.ExitNotFound, exitCode(t, err))
}
