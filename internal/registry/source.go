package registry

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
)

// Source produces the bytes of one file. Open may be called more than once.
type Source interface {
	Open() (io.ReadCloser, error)
}

// File is a named entry of a module output. Name is slash-separated.
type File struct {
	Name   string
	Source Source
}

// ReadAll returns the content of f.
func (f File) ReadAll() ([]byte, error) {
	rc, err := f.Source.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	return data, nil
}

// BytesSource serves an in-memory buffer.
type BytesSource []byte

// Open implements Source.
func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// BillySource serves a file from a go-billy filesystem.
type BillySource struct {
	FS   billy.Filesystem
	Path string
}

// Open implements Source.
func (s BillySource) Open() (io.ReadCloser, error) {
	return s.FS.Open(s.Path)
}

// ArchiveEntrySource serves one entry of a zip archive on disk.
type ArchiveEntrySource struct {
	Archive string
	Entry   string
}

// Open implements Source.
func (s ArchiveEntrySource) Open() (io.ReadCloser, error) {
	zr, err := zip.OpenReader(s.Archive)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", s.Archive, err)
	}
	for _, f := range zr.File {
		if f.Name != s.Entry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			_ = zr.Close()
			return nil, fmt.Errorf("opening %s in %s: %w", s.Entry, s.Archive, err)
		}
		return &archiveEntryReader{ReadCloser: rc, archive: zr}, nil
	}
	_ = zr.Close()
	return nil, oerrors.NewNotFoundError(fmt.Sprintf("entry %s not in archive", s.Entry), s.Archive, "")
}

type archiveEntryReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (r *archiveEntryReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// LoadDir returns every regular file under root, named relative to root, in
// sorted order.
func LoadDir(fs billy.Filesystem, root string) ([]File, error) {
	var files []File
	err := util.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, File{Name: filepath.ToSlash(rel), Source: BillySource{FS: fs, Path: p}})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, oerrors.NewNotFoundError("output directory does not exist", root, "Run the module build first")
		}
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// LoadArchive expands a zip archive into its file entries, in archive order.
func LoadArchive(archive string) ([]File, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, oerrors.NewNotFoundError("archive does not exist", archive, "Run the module build first")
		}
		return nil, fmt.Errorf("opening archive %s: %w", archive, err)
	}
	defer zr.Close()

	files := make([]File, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		files = append(files, File{Name: f.Name, Source: ArchiveEntrySource{Archive: archive, Entry: f.Name}})
	}
	return files, nil
}

// IsArchiveName reports whether name looks like a zip archive (.jar or .zip).
func IsArchiveName(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".jar" || ext == ".zip"
}

// ExpandArchive reads the entries of an in-memory zip archive, in archive
// order. name is used in errors only.
func ExpandArchive(name string, data []byte) ([]File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("reading archive %s: %w", name, err)
	}

	files := make([]File, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s in %s: %w", f.Name, name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s in %s: %w", f.Name, name, err)
		}
		files = append(files, File{Name: f.Name, Source: BytesSource(content)})
	}
	return files, nil
}

// LoadFile returns a single file named by its base name, used for archives
// embedded whole.
func LoadFile(fs billy.Filesystem, p string) (File, error) {
	info, err := fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, oerrors.NewNotFoundError("file does not exist", p, "Run the module build first")
		}
		return File{}, fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", p)
	}
	return File{Name: path.Base(filepath.ToSlash(p)), Source: BillySource{FS: fs, Path: p}}, nil
}
