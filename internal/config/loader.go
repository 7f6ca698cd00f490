package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
)

// Environment variable prefix for modrel settings.
const envPrefix = "MODREL"

// Keys that environment variables may override, with their variables.
var envOverrides = []struct {
	Key string
	Env string
}{
	{"release", "MODREL_RELEASE"},
	{"versionMinorFreeze", "MODREL_VERSION_MINOR_FREEZE"},
	{"versionSuffix", "MODREL_VERSION_SUFFIX"},
	{"mcVersion", "MODREL_MC_VERSION"},
}

// Loader reads a project definition and applies environment overrides.
type Loader struct {
	v        *viper.Viper
	lookup   func(string) (string, bool)
	resolved []ResolvedValue
}

// NewLoader creates a loader bound to the process environment.
func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, o := range envOverrides {
		_ = v.BindEnv(o.Key, o.Env)
	}

	return &Loader{v: v, lookup: os.LookupEnv}
}

// Load reads the definition at path. Relative paths inside it resolve
// against the file's directory.
//
// The document is decoded with yaml.v3 so manifest attribute keys keep their
// case; viper supplies the environment overrides on top.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, oerrors.NewNotFoundError("project definition not found", path,
				"Run 'modrel config init' to create one, or pass --config.")
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	l.v.SetConfigFile(path)
	l.v.SetConfigType("yaml")
	if err := l.v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, oerrors.NewValidationError(err.Error(), path, "", "Check the YAML syntax.")
	}

	cfg, err := decode(data)
	if err != nil {
		return nil, oerrors.NewValidationError(err.Error(), path, "", "Check the field names against 'modrel config init' output.")
	}

	if err := l.applyOverrides(cfg); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	cfg.BaseDir = abs

	return cfg, nil
}

// LoadWithDefaults loads the definition and applies defaults.
func (l *Loader) LoadWithDefaults(path string) (*Config, error) {
	cfg, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg.WithDefaults(), nil
}

// Resolved reports where each overridable value came from on the last Load.
func (l *Loader) Resolved() []ResolvedValue {
	return l.resolved
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) applyOverrides(cfg *Config) error {
	l.resolved = l.resolved[:0]

	for _, o := range envOverrides {
		rv := ResolvedValue{Key: o.Key, Source: SourceDefault, Shadowed: map[ConfigSource]string{}}
		inConfig := l.v.InConfig(o.Key)
		envValue, _ := l.lookup(o.Env)
		inEnv := envValue != ""

		switch {
		case inEnv:
			rv.Source = SourceEnv
			if inConfig {
				rv.Shadowed[SourceConfig] = fmt.Sprint(configValue(cfg, o.Key))
			}
		case inConfig:
			rv.Source = SourceConfig
		default:
			rv.Value = fmt.Sprint(configValue(cfg, o.Key))
			l.resolved = append(l.resolved, rv)
			continue
		}

		switch o.Key {
		case "release":
			raw := l.v.GetString(o.Key)
			b, err := parseBool(raw)
			if err != nil {
				return oerrors.NewValidationError(err.Error(), o.Env, o.Key, "Use true or false.")
			}
			cfg.Release = b
		case "versionMinorFreeze":
			cfg.VersionMinorFreeze = l.v.GetString(o.Key)
		case "versionSuffix":
			cfg.VersionSuffix = l.v.GetString(o.Key)
		case "mcVersion":
			cfg.MCVersion = l.v.GetString(o.Key)
		}

		rv.Value = fmt.Sprint(configValue(cfg, o.Key))
		l.resolved = append(l.resolved, rv)
	}
	return nil
}

func configValue(cfg *Config, key string) any {
	switch key {
	case "release":
		return cfg.Release
	case "versionMinorFreeze":
		return cfg.VersionMinorFreeze
	case "versionSuffix":
		return cfg.VersionSuffix
	case "mcVersion":
		return cfg.MCVersion
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "", "0", "f", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// Exists reports whether a definition file exists at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
