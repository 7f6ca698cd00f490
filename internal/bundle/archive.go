package bundle

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"time"

	"github.com/opencubicchunks/modrel/internal/fsutil"
	"github.com/opencubicchunks/modrel/internal/manifest"
)

// entryTime is stamped on every entry so identical inputs give identical bytes.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// writeArchive writes the manifest followed by entries (already sorted) to a
// temp file beside dest and renames it into place. It returns the entry names
// and the archive digest.
func writeArchive(ctx context.Context, dest string, attrs *manifest.Attributes, entries []*entry) (names []string, digest string, err error) {
	f, err := fsutil.CreateAtomic(dest, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("creating %s: %w", dest, err)
	}
	defer f.Abort()

	h := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, h))
	defer func() {
		if err != nil {
			_ = zw.Close()
		}
	}()

	if err := writeEntry(zw, manifest.Path, attrs.Bytes()); err != nil {
		return nil, "", err
	}
	names = append(names, manifest.Path)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if err := writeEntry(zw, e.path, e.data); err != nil {
			return nil, "", err
		}
		names = append(names, e.path)
	}

	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("finishing archive: %w", err)
	}
	if err := f.Commit(); err != nil {
		return nil, "", err
	}
	return names, formatDigest(h), nil
}

// formatDigest renders h as "sha256:<hex>".
func formatDigest(h hash.Hash) string {
	return fmt.Sprintf("sha256:%x", h.Sum(nil))
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: entryTime}
	header.SetMode(0o644)

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing entry %s: %w", name, err)
	}
	return nil
}
