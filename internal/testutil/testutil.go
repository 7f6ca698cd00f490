// Package testutil provides test helpers for laying out project trees and
// inspecting the archives a release writes.
package testutil

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteFile creates path with the given content, making parent directories.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent dirs for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// WriteZip creates a zip archive at path holding entries. Entries are written
// in name order so the archive bytes are stable.
func WriteZip(t *testing.T, path string, entries map[string]string) string {
	t.Helper()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s to %s: %v", name, path, err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatalf("failed to write %s to %s: %v", name, path, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish %s: %v", path, err)
	}
	return WriteFile(t, path, buf.String())
}

// ReadZip returns the entry names of the archive at path in stored order,
// along with each entry's content.
func ReadZip(t *testing.T, path string) ([]string, map[string]string) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	content := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s in %s: %v", f.Name, path, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read %s in %s: %v", f.Name, path, err)
		}
		names = append(names, f.Name)
		content[f.Name] = string(data)
	}
	return names, content
}

// ZipContent returns the content of every entry in the archive at path.
func ZipContent(t *testing.T, path string) map[string]string {
	t.Helper()
	_, content := ReadZip(t, path)
	return content
}
