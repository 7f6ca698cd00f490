// Package config loads and validates the project build definition (modrel.yaml).
package config

import (
	"path/filepath"
	"runtime"

	"github.com/opencubicchunks/modrel/internal/modversion"
)

// Defaults applied by WithDefaults.
const (
	DefaultOutputDir   = "build/libs"
	DefaultVersionFile = "VERSION"
)

// Output layouts.
const (
	// LayoutDir loads every file under a directory.
	LayoutDir = "dir"
	// LayoutArchive expands a zip archive into its entries.
	LayoutArchive = "archive"
	// LayoutFile keeps a single file whole, for archives nested in bundles.
	LayoutFile = "file"
)

// ManifestConfig holds project-wide manifest settings.
type ManifestConfig struct {
	AccessTransformer string `json:"accessTransformer,omitempty" yaml:"accessTransformer,omitempty"`
	CorePlugin        string `json:"corePlugin,omitempty" yaml:"corePlugin,omitempty"`
	TweakClass        string `json:"tweakClass,omitempty" yaml:"tweakClass,omitempty"`
	TweakOrder        string `json:"tweakOrder,omitempty" yaml:"tweakOrder,omitempty"`
	ForceLoadAsMod    *bool  `json:"forceLoadAsMod,omitempty" yaml:"forceLoadAsMod,omitempty"`
}

// RemapConfig configures the remap hook of a module. Run is an inline shell
// script, Script a path to one; at most one may be set.
type RemapConfig struct {
	Run    string `json:"run,omitempty" yaml:"run,omitempty"`
	Script string `json:"script,omitempty" yaml:"script,omitempty"`
}

// OutputConfig is one role a module fills.
type OutputConfig struct {
	Role string `json:"role" yaml:"role"`
	Path string `json:"path" yaml:"path"`
	// Layout is dir, archive or file. Empty infers it from the path and role.
	Layout string `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// ModuleConfig is one build module.
type ModuleConfig struct {
	ID      string         `json:"id" yaml:"id"`
	Outputs []OutputConfig `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Remap   *RemapConfig   `json:"remap,omitempty" yaml:"remap,omitempty"`
}

// RelocationConfig moves paths starting with From under To.
type RelocationConfig struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// BundleConfig describes one release bundle.
type BundleConfig struct {
	Name       string `json:"name" yaml:"name"`
	Kind       string `json:"kind" yaml:"kind"`
	Classifier string `json:"classifier,omitempty" yaml:"classifier,omitempty"`
	// Roles are layered into the bundle in order.
	Roles []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	// Unpack lists roles from Roles whose archives are layered as their
	// entries, the way a shading plugin merges dependency jars.
	Unpack []string `json:"unpack,omitempty" yaml:"unpack,omitempty"`
	// Layer names a bundle whose written archive is layered first.
	Layer string `json:"layer,omitempty" yaml:"layer,omitempty"`
	// EmbedRoles are nested whole at the archive root.
	EmbedRoles []string           `json:"embedRoles,omitempty" yaml:"embedRoles,omitempty"`
	Exclude    []string           `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Relocate   []RelocationConfig `json:"relocate,omitempty" yaml:"relocate,omitempty"`
	Attributes map[string]string  `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	After      []string           `json:"after,omitempty" yaml:"after,omitempty"`
}

// Config is the project build definition.
type Config struct {
	Group              string         `json:"group" yaml:"group"`
	ArchivesBaseName   string         `json:"archivesBaseName" yaml:"archivesBaseName"`
	MCVersion          string         `json:"mcVersion,omitempty" yaml:"mcVersion,omitempty"`
	ForgeVersion       string         `json:"forgeVersion,omitempty" yaml:"forgeVersion,omitempty"`
	VersionSuffix      string         `json:"versionSuffix,omitempty" yaml:"versionSuffix,omitempty"`
	VersionMinorFreeze string         `json:"versionMinorFreeze,omitempty" yaml:"versionMinorFreeze,omitempty"`
	Release            bool           `json:"release,omitempty" yaml:"release,omitempty"`
	OutputDir          string         `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	VersionFile        string         `json:"versionFile,omitempty" yaml:"versionFile,omitempty"`
	Workers            int            `json:"workers,omitempty" yaml:"workers,omitempty"`
	Manifest           ManifestConfig `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Modules            []ModuleConfig `json:"modules,omitempty" yaml:"modules,omitempty"`
	Bundles            []BundleConfig `json:"bundles,omitempty" yaml:"bundles,omitempty"`

	// BaseDir is the directory relative paths resolve against. Not serialized.
	BaseDir string `json:"-" yaml:"-"`
}

// EffectiveMCVersion returns mcVersion, or the MC part of forgeVersion.
func (c *Config) EffectiveMCVersion() string {
	if c.MCVersion != "" {
		return c.MCVersion
	}
	return modversion.MCVersionFromForge(c.ForgeVersion)
}

// Path resolves p against BaseDir unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// EffectiveWorkers returns Workers, or the CPU count when unset.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// WithDefaults returns a copy with unset fields defaulted. A definition
// without bundles gets DefaultBundles.
func (c *Config) WithDefaults() *Config {
	out := *c
	if out.OutputDir == "" {
		out.OutputDir = DefaultOutputDir
	}
	if out.VersionFile == "" {
		out.VersionFile = DefaultVersionFile
	}
	if out.Manifest.TweakOrder == "" {
		out.Manifest.TweakOrder = "0"
	}
	if out.Manifest.ForceLoadAsMod == nil {
		t := true
		out.Manifest.ForceLoadAsMod = &t
	}
	if len(out.Bundles) == 0 {
		out.Bundles = DefaultBundles()
	}
	return &out
}

// DefaultBundles is the standard three-bundle layout.
func DefaultBundles() []BundleConfig {
	return []BundleConfig{
		{
			Name:       "core",
			Kind:       "core-only",
			Classifier: "core",
			Roles:      []string{"core-loader"},
		},
		{
			Name:       "full",
			Kind:       "full-embed",
			Classifier: "all-depext",
			Layer:      "core",
			EmbedRoles: []string{"main-module", "embedded-dependency"},
			Exclude:    []string{"**/*dummy*"},
		},
		{
			Name:       "shaded",
			Kind:       "shaded-relocated",
			Classifier: "shade-all",
			Roles:      []string{"main-module", "core-loader"},
			Unpack:     []string{"main-module"},
			EmbedRoles: []string{"embedded-dependency"},
			Exclude:    []string{"META-INF/MUMFREY.*", "**/*dummy*"},
		},
	}
}

// DefaultConfig is the definition written by `modrel config init`.
func DefaultConfig() *Config {
	forceLoad := true
	return &Config{
		Group:            "io.github.opencubicchunks",
		ArchivesBaseName: "CubicChunks",
		ForgeVersion:     "1.12.2-14.23.5.2768",
		OutputDir:        DefaultOutputDir,
		VersionFile:      DefaultVersionFile,
		Manifest: ManifestConfig{
			AccessTransformer: "cubicchunks_at.cfg",
			CorePlugin:        "io.github.opencubicchunks.cubicchunks.core.asm.CubicChunksCoreMod",
			TweakClass:        "org.spongepowered.asm.launch.MixinTweaker",
			TweakOrder:        "0",
			ForceLoadAsMod:    &forceLoad,
		},
		Modules: []ModuleConfig{
			{
				ID: "cubicchunks-core",
				Outputs: []OutputConfig{
					{Role: "core-loader", Path: "cubicchunks-core/build/libs/cubicchunks-core-coremod.jar"},
					{Role: "main-module", Path: "cubicchunks-core/build/libs/cubicchunks-core.jar", Layout: LayoutFile},
				},
			},
			{
				ID: "cubicchunks-api",
				Outputs: []OutputConfig{
					{Role: "main-module", Path: "cubicchunks-api/build/libs/cubicchunks-api.jar", Layout: LayoutFile},
				},
			},
			{
				ID: "cubicchunks-cubicgen",
				Outputs: []OutputConfig{
					{Role: "embedded-dependency", Path: "cubicchunks-cubicgen/build/libs/cubicchunks-cubicgen-shade.jar"},
				},
			},
		},
		Bundles: DefaultBundles(),
	}
}
