package config

import (
	"os"
	"slices"

	"github.com/opencubicchunks/modrel/internal/output"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag ConfigSource = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv ConfigSource = "env"
	// SourceConfig indicates value came from the project definition.
	SourceConfig ConfigSource = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault ConfigSource = "default"
)

// ResolvedValue is one setting and the source that won.
type ResolvedValue struct {
	Key    string
	Value  string
	Source ConfigSource
	// Shadowed holds values overridden by higher precedence.
	Shadowed map[ConfigSource]string
}

// ResolveConfigPathOptions contains options for definition path resolution.
type ResolveConfigPathOptions struct {
	// FlagValue is the --config flag value (empty if not set).
	FlagValue string
	// Dir is the --dir flag value; relative paths resolve against it.
	Dir string
}

// ResolveConfigPath resolves the definition path using precedence:
// (1) --config flag, (2) MODREL_CONFIG env, (3) ./modrel.yaml
func ResolveConfigPath(opts ResolveConfigPathOptions) (ResolvedValue, error) {
	result := ResolvedValue{
		Key:      "config",
		Shadowed: make(map[ConfigSource]string),
	}

	envValue := os.Getenv(ConfigEnvVar)
	defaultPath := InDir(opts.Dir, DefaultFileName)

	switch {
	case opts.FlagValue != "":
		result.Value = opts.FlagValue
		result.Source = SourceFlag
		if envValue != "" {
			result.Shadowed[SourceEnv] = envValue
		}
		result.Shadowed[SourceDefault] = defaultPath
	case envValue != "":
		result.Value = envValue
		result.Source = SourceEnv
		result.Shadowed[SourceDefault] = defaultPath
	default:
		result.Value = defaultPath
		result.Source = SourceDefault
		return result, nil
	}

	expanded, err := ExpandPath(result.Value)
	if err != nil {
		return result, err
	}
	result.Value = InDir(opts.Dir, expanded)
	return result, nil
}

// LogResolvedValues logs each value's resolution at debug level.
func LogResolvedValues(values []ResolvedValue) {
	for _, v := range values {
		output.Debug("config value resolved",
			"key", v.Key,
			"value", v.Value,
			"source", v.Source,
		)
		sources := make([]ConfigSource, 0, len(v.Shadowed))
		for s := range v.Shadowed {
			sources = append(sources, s)
		}
		slices.Sort(sources)
		for _, s := range sources {
			output.Debug("  shadowed by higher precedence",
				"key", v.Key,
				"shadowed_source", s,
				"shadowed_value", v.Shadowed[s],
			)
		}
	}
}
