// Package fsutil provides crash-safe file replacement.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// PendingFile is a temp file in the destination directory that becomes
// visible at its final path only on Commit.
type PendingFile struct {
	*os.File
	path string
	done bool
}

// CreateAtomic opens a temp file next to path. Callers must call Commit or
// Abort; Abort after Commit is a no-op so it can be deferred.
func CreateAtomic(path string, perm os.FileMode) (*PendingFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPattern(filepath.Base(path)))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("chmod temp file: %w", err)
	}
	return &PendingFile{File: tmp, path: path}, nil
}

// Commit syncs the temp file and renames it onto the final path.
func (p *PendingFile) Commit() error {
	if p.done {
		return nil
	}
	p.done = true
	tmpName := p.Name()

	if err := p.Sync(); err != nil {
		_ = p.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := p.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file into place: %w", err)
	}

	// Windows cannot sync directories.
	if runtime.GOOS != "windows" {
		if err := fsyncDir(filepath.Dir(p.path)); err != nil {
			return fmt.Errorf("fsync directory: %w", err)
		}
	}
	return nil
}

// Abort discards the temp file.
func (p *PendingFile) Abort() {
	if p.done {
		return
	}
	p.done = true
	_ = p.Close()
	_ = os.Remove(p.Name())
}

// WriteFile replaces path with data atomically.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	f, err := CreateAtomic(path, perm)
	if err != nil {
		return err
	}
	defer f.Abort()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	return f.Commit()
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// tmpPattern hides the temp file and satisfies CreateTemp's trailing "*".
func tmpPattern(base string) string {
	return fmt.Sprintf(".%s.*", base)
}
