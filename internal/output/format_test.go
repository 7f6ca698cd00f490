package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{FormatText, true},
		{FormatYAML, true},
		{FormatJSON, true},
		{OutputFormat("table"), false},
		{OutputFormat(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.format.IsValid())
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	assert.Equal(t, FormatText, ParseOutputFormat(""))
	assert.Equal(t, FormatYAML, ParseOutputFormat("YML"))
	assert.Equal(t, FormatJSON, ParseOutputFormat("json"))
	assert.False(t, ParseOutputFormat("xml").IsValid())
	assert.Equal(t, []string{"text", "yaml", "json"}, ValidFormats())
}

func TestWriteStructured(t *testing.T) {
	v := struct {
		Version string `json:"version" yaml:"version"`
		Release bool   `json:"release" yaml:"release"`
	}{Version: "1.12.2-1.2.0.0", Release: true}

	var yamlBuf bytes.Buffer
	require.NoError(t, WriteStructured(&yamlBuf, FormatYAML, v))
	assert.Equal(t, "version: 1.12.2-1.2.0.0\nrelease: true\n", yamlBuf.String())

	var jsonBuf bytes.Buffer
	require.NoError(t, WriteStructured(&jsonBuf, FormatJSON, v))
	assert.JSONEq(t, `{"version":"1.12.2-1.2.0.0","release":true}`, jsonBuf.String())

	assert.Error(t, WriteStructured(&bytes.Buffer{}, FormatText, v))
}

func TestRenderBundleTable(t *testing.T) {
	out := RenderBundleTable([]BundleRow{
		{Name: "core", Kind: "core-only", Status: StatusWritten, Path: "build/libs/cc-1.0-core.jar", Digest: "sha256:0123456789abcdef0123"},
		{Name: "shaded", Kind: "shaded-relocated", Status: StatusFailed, Message: "conflict"},
	})

	for _, want := range []string{"BUNDLE", "core-only", "shaded-relocated", "cc-1.0-core.jar", "sha256:0123456789ab", "conflict"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "0123456789abcdef0123")
}

func TestShortDigest(t *testing.T) {
	assert.Equal(t, "sha256:0123456789ab", ShortDigest("sha256:0123456789abcdef"))
	assert.Equal(t, "sha256:01", ShortDigest("sha256:01"))
	assert.Equal(t, "", ShortDigest(""))
}
