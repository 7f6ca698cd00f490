package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPath(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "/env/modrel.yaml")

		res, err := ResolveConfigPath(ResolveConfigPathOptions{FlagValue: "/flag/modrel.yaml"})

		require.NoError(t, err)
		assert.Equal(t, "/flag/modrel.yaml", res.Value)
		assert.Equal(t, SourceFlag, res.Source)
		assert.Equal(t, "/env/modrel.yaml", res.Shadowed[SourceEnv])
		assert.Equal(t, DefaultFileName, res.Shadowed[SourceDefault])
	})

	t.Run("env over default", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "/env/modrel.yaml")

		res, err := ResolveConfigPath(ResolveConfigPathOptions{})

		require.NoError(t, err)
		assert.Equal(t, "/env/modrel.yaml", res.Value)
		assert.Equal(t, SourceEnv, res.Source)
	})

	t.Run("default in dir", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "")

		res, err := ResolveConfigPath(ResolveConfigPathOptions{Dir: "project"})

		require.NoError(t, err)
		assert.Equal(t, filepath.Join("project", DefaultFileName), res.Value)
		assert.Equal(t, SourceDefault, res.Source)
		assert.Empty(t, res.Shadowed)
	})

	t.Run("relative flag resolves against dir", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "")

		res, err := ResolveConfigPath(ResolveConfigPathOptions{FlagValue: "ci.yaml", Dir: "project"})

		require.NoError(t, err)
		assert.Equal(t, filepath.Join("project", "ci.yaml"), res.Value)
	})
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
		{"~", home},
		{"~/modrel.yaml", filepath.Join(home, "modrel.yaml")},
		{"~other/x", "~other/x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandPath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogResolvedValues(t *testing.T) {
	assert.NotPanics(t, func() {
		LogResolvedValues([]ResolvedValue{{
			Key:      "release",
			Value:    "true",
			Source:   SourceEnv,
			Shadowed: map[ConfigSource]string{SourceConfig: "false"},
		}})
	})
}
