package vfs

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DirectoryDriver serves a host directory. Lookups never leave root, so a
// document can not reach files above the folder it was loaded from.
type DirectoryDriver struct {
	root string
	rel  string
}

func NewDirectoryDriver(path string) *DirectoryDriver {
	return &DirectoryDriver{root: filepath.Clean(path)}
}

func (dd *DirectoryDriver) Path() string {
	return filepath.Join(dd.root, dd.rel)
}

func (dd *DirectoryDriver) Name() string {
	return filepath.Base(dd.Path())
}

func (dd *DirectoryDriver) IsDirectory() bool { return true }

func (dd *DirectoryDriver) List() ([]string, error) {
	entries, err := os.ReadDir(dd.Path())
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %q", dd.Path())
	}
	result := make([]string, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.Name())
	}
	sort.Strings(result)
	return result, nil
}

func (dd *DirectoryDriver) GetElement(name string) (Element, error) {
	rel := filepath.Join(dd.rel, filepath.FromSlash(name))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return nil, errors.Errorf("%q is outside of %q", name, dd.root)
	}
	full := filepath.Join(dd.root, rel)
	s, err := os.Stat(full)
	if err != nil {
		return nil, errors.Wrapf(err, "stat")
	}
	if s.IsDir() {
		return &DirectoryDriver{root: dd.root, rel: rel}, nil
	}
	return &DirectoryDriverFile{path: full, size: s.Size()}, nil
}

type DirectoryDriverFile struct {
	path string
	size int64
	f    *os.File
}

func (ddf *DirectoryDriverFile) Name() string      { return filepath.Base(ddf.path) }
func (ddf *DirectoryDriverFile) IsDirectory() bool { return false }
func (ddf *DirectoryDriverFile) Size() int64       { return ddf.size }

func (ddf *DirectoryDriverFile) Open() error {
	if ddf.f != nil {
		return errors.Errorf("file %q already opened", ddf.path)
	}
	f, err := os.Open(ddf.path)
	if err != nil {
		return errors.Wrapf(err, "open %q", ddf.path)
	}
	ddf.f = f
	return nil
}

func (ddf *DirectoryDriverFile) Close() error {
	if ddf.f == nil {
		return nil
	}
	err := ddf.f.Close()
	ddf.f = nil
	return errors.Wrapf(err, "close %q", ddf.path)
}

func (ddf *DirectoryDriverFile) Reader() (*io.SectionReader, error) {
	if ddf.f == nil {
		return nil, errors.Errorf("file %q is not opened", ddf.path)
	}
	return io.NewSectionReader(ddf.f, 0, ddf.size), nil
}
