package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesParents(t *testing.T) {
	path := WriteFile(t, filepath.Join(t.TempDir(), "a/b/c.txt"), "hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestZipRoundTrip(t *testing.T) {
	path := WriteZip(t, filepath.Join(t.TempDir(), "libs/x.jar"), map[string]string{
		"b.txt":       "B",
		"a/A.class":   "A",
		"META-INF/xx": "M",
	})

	names, content := ReadZip(t, path)
	assert.Equal(t, []string{"META-INF/xx", "a/A.class", "b.txt"}, names)
	assert.Equal(t, "A", content["a/A.class"])
	assert.Equal(t, content, ZipContent(t, path))
}
