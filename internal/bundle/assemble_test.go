package bundle

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/manifest"
	"github.com/opencubicchunks/modrel/internal/registry"
	"github.com/opencubicchunks/modrel/internal/testutil"
)

type gateSet map[string]bool

func (g gateSet) Completed(name string) bool { return g[name] }

func out(role registry.Role, id string, files map[string]string) *registry.ModuleOutput {
	o := &registry.ModuleOutput{Role: role, ModuleID: id}
	for _, name := range sortedKeys(files) {
		o.Files = append(o.Files, registry.File{Name: name, Source: registry.BytesSource(files[name])})
	}
	return o
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func newAssembler(t *testing.T) *Assembler {
	t.Helper()
	return &Assembler{
		OutputDir: t.TempDir(),
		BaseName:  "CubicChunks",
		Version:   "1.12.2-0.0.3.0",
		Settings: manifest.Settings{
			Group:             "io.github.opencubicchunks",
			ArchivesBaseName:  "CubicChunks",
			AccessTransformer: "cubicchunks_at.cfg",
			CorePlugin:        "cc.CoreMod",
			TweakClass:        "org.spongepowered.asm.launch.MixinTweaker",
			TweakOrder:        "0",
			ForceLoadAsMod:    true,
		},
	}
}

func TestAssemble_LastInputWins(t *testing.T) {
	a := newAssembler(t)
	spec := Spec{
		Name: "core", Kind: KindCoreOnly, Classifier: "core",
		Inputs: []*registry.ModuleOutput{
			out(registry.RoleCoreLoader, "A", map[string]string{"a.txt": "from A", "only-a.txt": "A"}),
			out(registry.RoleCoreLoader, "B", map[string]string{"a.txt": "from B"}),
		},
	}

	res, err := a.Assemble(context.Background(), spec, nil)
	require.NoError(t, err)
	assert.Equal(t, Written, res.State)
	assert.Equal(t, filepath.Join(a.OutputDir, "CubicChunks-1.12.2-0.0.3.0-core.jar"), res.Path)

	names, content := testutil.ReadZip(t, res.Path)
	assert.Equal(t, []string{manifest.Path, "a.txt", "only-a.txt"}, names)
	assert.Equal(t, "from B", content["a.txt"])
}

func TestAssemble_ManifestAndEmbedded(t *testing.T) {
	a := newAssembler(t)
	spec := Spec{
		Name: "full", Kind: KindFullEmbed, Classifier: "all-depext",
		Inputs: []*registry.ModuleOutput{
			out(registry.RoleCoreLoader, "core", map[string]string{
				"cc/CoreMod.class":     "core",
				"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\r\nStale: yes\r\n\r\n",
			}),
		},
		Embedded: []*registry.ModuleOutput{
			out(registry.RoleMainModule, "core", map[string]string{"build/libs/cc-main.jar": "main"}),
			out(registry.RoleEmbeddedDependency, "api", map[string]string{"libs/cc-api.jar": "api", "libs/Dummy-api.jar": "x"}),
		},
		ExcludePatterns:    []string{"**/*dummy*"},
		ManifestAttributes: map[string]string{manifest.KeyTweakOrder: "5"},
	}

	res, err := a.Assemble(context.Background(), spec, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"cc-main.jar", "cc-api.jar"}, res.Embedded)

	names, content := testutil.ReadZip(t, res.Path)
	assert.Equal(t, []string{manifest.Path, "cc-api.jar", "cc-main.jar", "cc/CoreMod.class"}, names)

	attrs, err := manifest.Parse(stringsReader(content[manifest.Path]))
	require.NoError(t, err)
	m := attrs.Map()
	assert.Equal(t, "cc-main.jar cc-api.jar", m[manifest.KeyContainedDeps])
	assert.Equal(t, "cc.CoreMod", m[manifest.KeyCorePlugin])
	assert.Equal(t, "5", m[manifest.KeyTweakOrder])
	assert.Equal(t, "io.github.opencubicchunks:CubicChunks:1.12.2-0.0.3.0:core", m[manifest.KeyMavenVersion])
	assert.NotContains(t, m, "Stale")
}

func TestAssemble_NoCorePluginWithoutCoreLoader(t *testing.T) {
	a := newAssembler(t)
	spec := Spec{
		Name: "shaded", Kind: KindShadedRelocated,
		Inputs: []*registry.ModuleOutput{out(registry.RoleMainModule, "core", map[string]string{"x.class": "x"})},
	}

	res, err := a.Assemble(context.Background(), spec, nil)
	require.NoError(t, err)
	assert.False(t, res.Manifest.Has(manifest.KeyCorePlugin))
	assert.Equal(t, filepath.Join(a.OutputDir, "CubicChunks-1.12.2-0.0.3.0.jar"), res.Path)
}

func TestAssemble_OrderingEnforced(t *testing.T) {
	a := newAssembler(t)
	spec := Spec{
		Name: "shaded", Kind: KindShadedRelocated, Classifier: "shade-all",
		Inputs:   []*registry.ModuleOutput{out(registry.RoleMainModule, "core", map[string]string{"x.class": "x"})},
		Requires: []string{"remap:core", "remap:api"},
	}

	res, err := a.Assemble(context.Background(), spec, gateSet{"remap:core": true})
	require.Error(t, err)
	assert.ErrorIs(t, err, oerrors.ErrOrdering)
	assert.ErrorIs(t, err, oerrors.ErrBundle)

	var oe *OrderingError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, []string{"remap:api"}, oe.Missing)
	assert.Equal(t, Failed, res.State)
	assert.Equal(t, Pending, res.Reached)
	assertEmptyDir(t, a.OutputDir)

	// A nil gate cannot vouch for anything.
	_, err = a.Assemble(context.Background(), spec, nil)
	assert.ErrorIs(t, err, oerrors.ErrOrdering)

	res, err = a.Assemble(context.Background(), spec, gateSet{"remap:core": true, "remap:api": true})
	require.NoError(t, err)
	assert.Equal(t, Written, res.State)
}

func TestAssemble_MissingInput(t *testing.T) {
	a := newAssembler(t)

	_, err := a.Assemble(context.Background(), Spec{Name: "core", Kind: KindCoreOnly, Roles: []registry.Role{registry.RoleCoreLoader}}, nil)
	var mi *MissingInputError
	require.ErrorAs(t, err, &mi)
	assert.Equal(t, registry.RoleCoreLoader, mi.Role)
	assert.Contains(t, err.Error(), "core-only")
	assert.ErrorIs(t, err, oerrors.ErrNotFound)

	_, err = a.Assemble(context.Background(), Spec{Name: "empty", Kind: KindFullEmbed, Inputs: []*registry.ModuleOutput{out(registry.RoleMainModule, "m", nil)}}, nil)
	require.ErrorAs(t, err, &mi)
	assert.Equal(t, registry.Role(""), mi.Role)
}

func TestAssemble_EmbeddedConflict(t *testing.T) {
	a := newAssembler(t)
	spec := Spec{
		Name: "full", Kind: KindFullEmbed,
		Embedded: []*registry.ModuleOutput{
			out(registry.RoleEmbeddedDependency, "one", map[string]string{"lib/dep.jar": "v1"}),
			out(registry.RoleEmbeddedDependency, "two", map[string]string{"other/dep.jar": "v2"}),
		},
	}

	res, err := a.Assemble(context.Background(), spec, nil)
	assert.ErrorIs(t, err, oerrors.ErrConflict)
	assert.Equal(t, Pending, res.Reached)

	// Identical bytes under one name are not a conflict.
	spec.Embedded[1] = out(registry.RoleEmbeddedDependency, "two", map[string]string{"other/dep.jar": "v1"})
	res, err = a.Assemble(context.Background(), spec, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"dep.jar"}, res.Embedded)
}

func TestAssemble_Relocation(t *testing.T) {
	a := newAssembler(t)
	spec := Spec{
		Name: "shaded", Kind: KindShadedRelocated,
		Inputs: []*registry.ModuleOutput{
			out(registry.RoleMainModule, "core", map[string]string{
				"com/google/gson/Gson.class": "gson",
				"cc/Main.class":              "main",
				"META-INF/MUMFREY.SF":        "sig",
			}),
		},
		ExcludePatterns: []string{"META-INF/MUMFREY.*"},
		Relocations:     []Relocation{{From: "com/google/gson/", To: "cc/shadow/gson/"}},
	}

	res, err := a.Assemble(context.Background(), spec, nil)
	require.NoError(t, err)
	names, _ := testutil.ReadZip(t, res.Path)
	assert.Equal(t, []string{manifest.Path, "cc/Main.class", "cc/shadow/gson/Gson.class"}, names)
}

func TestAssemble_UnpackLayersArchiveEntries(t *testing.T) {
	jar, err := os.ReadFile(testutil.WriteZip(t, filepath.Join(t.TempDir(), "cc-main.jar"), map[string]string{
		"META-INF/MANIFEST.MF":       "Manifest-Version: 1.0\r\nMain-Class: nested\r\n",
		"META-INF/MUMFREY.SF":        "sig",
		"com/google/gson/Gson.class": "gson",
		"cc/Main.class":              "main",
	}))
	require.NoError(t, err)

	a := newAssembler(t)
	spec := Spec{
		Name: "shaded", Kind: KindShadedRelocated,
		Inputs: []*registry.ModuleOutput{
			out(registry.RoleCoreLoader, "core", map[string]string{"cc/CoreMod.class": "core"}),
			out(registry.RoleMainModule, "core", map[string]string{"cc-main.jar": string(jar)}),
		},
		Embedded: []*registry.ModuleOutput{
			out(registry.RoleEmbeddedDependency, "gen", map[string]string{"libs/cc-gen.jar": "gen"}),
		},
		Unpack:          []registry.Role{registry.RoleMainModule},
		ExcludePatterns: []string{"META-INF/MUMFREY.*"},
		Relocations:     []Relocation{{From: "com/google/gson/", To: "cc/shadow/gson/"}},
	}

	res, err := a.Assemble(context.Background(), spec, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"cc-gen.jar"}, res.Embedded)

	names, content := testutil.ReadZip(t, res.Path)
	assert.Equal(t, []string{manifest.Path, "cc-gen.jar", "cc/CoreMod.class", "cc/Main.class", "cc/shadow/gson/Gson.class"}, names)
	assert.Equal(t, "main", content["cc/Main.class"])
	assert.NotContains(t, content[manifest.Path], "Main-Class")
}

func TestAssemble_UnpackLeavesOtherRolesWhole(t *testing.T) {
	jar, err := os.ReadFile(testutil.WriteZip(t, filepath.Join(t.TempDir(), "loader.jar"), map[string]string{
		"cc/Loader.class": "loader",
	}))
	require.NoError(t, err)

	a := newAssembler(t)
	spec := Spec{
		Name: "shaded", Kind: KindShadedRelocated,
		Inputs: []*registry.ModuleOutput{
			out(registry.RoleCoreLoader, "core", map[string]string{"loader.jar": string(jar), "notes.txt": "n"}),
		},
		Unpack: []registry.Role{registry.RoleMainModule},
	}

	res, err := a.Assemble(context.Background(), spec, nil)
	require.NoError(t, err)
	names, _ := testutil.ReadZip(t, res.Path)
	assert.Equal(t, []string{manifest.Path, "loader.jar", "notes.txt"}, names)
}

func TestAssemble_UnpackCorruptArchive(t *testing.T) {
	a := newAssembler(t)
	spec := Spec{
		Name: "shaded", Kind: KindShadedRelocated,
		Inputs: []*registry.ModuleOutput{
			out(registry.RoleMainModule, "core", map[string]string{"cc-main.jar": "not a zip"}),
		},
		Unpack: []registry.Role{registry.RoleMainModule},
	}

	_, err := a.Assemble(context.Background(), spec, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module core")
}

func TestAssemble_RelocationConflict(t *testing.T) {
	a := newAssembler(t)
	spec := Spec{
		Name: "shaded", Kind: KindShadedRelocated,
		Inputs: []*registry.ModuleOutput{
			out(registry.RoleMainModule, "core", map[string]string{
				"a/X.class": "one",
				"b/X.class": "two",
			}),
		},
		Relocations: []Relocation{{From: "a/", To: "z/"}, {From: "b/", To: "z/"}},
	}

	res, err := a.Assemble(context.Background(), spec, nil)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "z/X.class", ce.Path)
	assert.Equal(t, InputsGathered, res.Reached)
	assertEmptyDir(t, a.OutputDir)
}

func TestAssemble_Deterministic(t *testing.T) {
	spec := Spec{
		Name: "core", Kind: KindCoreOnly, Classifier: "core",
		Inputs: []*registry.ModuleOutput{out(registry.RoleCoreLoader, "core", map[string]string{"b": "2", "a": "1", "c/d": "3"})},
	}

	a1 := newAssembler(t)
	r1, err := a1.Assemble(context.Background(), spec, nil)
	require.NoError(t, err)
	a2 := newAssembler(t)
	r2, err := a2.Assemble(context.Background(), spec, nil)
	require.NoError(t, err)

	b1, err := os.ReadFile(r1.Path)
	require.NoError(t, err)
	b2, err := os.ReadFile(r2.Path)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
	assert.Equal(t, r1.Digest, r2.Digest)

	sum := sha256.Sum256(b1)
	assert.Equal(t, fmt.Sprintf("sha256:%x", sum), r1.Digest)
}

func TestAssemble_Cancelled(t *testing.T) {
	a := newAssembler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := a.Assemble(ctx, Spec{
		Name: "core", Kind: KindCoreOnly,
		Inputs: []*registry.ModuleOutput{out(registry.RoleCoreLoader, "core", map[string]string{"a": "1"})},
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Failed, res.State)
	assertEmptyDir(t, a.OutputDir)
}

func TestAssemble_InvalidPattern(t *testing.T) {
	a := newAssembler(t)
	_, err := a.Assemble(context.Background(), Spec{
		Name: "core", Kind: KindCoreOnly,
		Inputs:          []*registry.ModuleOutput{out(registry.RoleCoreLoader, "core", map[string]string{"a": "1"})},
		ExcludePatterns: []string{"[unclosed"},
	}, nil)
	assert.ErrorIs(t, err, oerrors.ErrBundle)
}

func TestExcluded(t *testing.T) {
	patterns := []string{"**/*dummy*", "META-INF/MUMFREY.*"}

	assert.True(t, Excluded(patterns, "dummy.jar"))
	assert.True(t, Excluded(patterns, "libs/DummyOutput.jar"))
	assert.True(t, Excluded(patterns, "META-INF/MUMFREY.RSA"))
	assert.False(t, Excluded(patterns, "META-INF/MANIFEST.MF"))
	assert.False(t, Excluded(patterns, "cc-api.jar"))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "cc-1.0-core.jar", FileName("cc", "1.0", "core"))
	assert.Equal(t, "cc-1.0.jar", FileName("cc", "1.0", ""))
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}
