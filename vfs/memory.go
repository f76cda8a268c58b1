package vfs

import (
	"bytes"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// MemDirectory serves files kept in memory, e.g. the parts of a multi file
// upload. Names may contain slashes.
type MemDirectory struct {
	name  string
	files map[string][]byte
}

func NewMemDirectory(name string) *MemDirectory {
	return &MemDirectory{name: name, files: make(map[string][]byte)}
}

func (md *MemDirectory) Put(name string, data []byte) {
	md.files[strings.TrimPrefix(name, "./")] = data
}

func (md *MemDirectory) Name() string      { return md.name }
func (md *MemDirectory) IsDirectory() bool { return true }

func (md *MemDirectory) List() ([]string, error) {
	names := make([]string, 0, len(md.files))
	for n := range md.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (md *MemDirectory) GetElement(name string) (Element, error) {
	if data, ok := md.files[name]; ok {
		return &MemFile{name: name, data: data}, nil
	}
	// multipart uploads lose directories, fall back to the base name
	base := path.Base(name)
	if data, ok := md.files[base]; ok {
		return &MemFile{name: base, data: data}, nil
	}
	return nil, errors.Errorf("no file %q in %s", name, md.name)
}

func (md *MemDirectory) Len() int { return len(md.files) }

type MemFile struct {
	name string
	data []byte
	open bool
}

func (mf *MemFile) Name() string      { return mf.name }
func (mf *MemFile) IsDirectory() bool { return false }
func (mf *MemFile) Size() int64       { return int64(len(mf.data)) }

func (mf *MemFile) Open() error {
	mf.open = true
	return nil
}

func (mf *MemFile) Close() error {
	mf.open = false
	return nil
}

func (mf *MemFile) Reader() (*io.SectionReader, error) {
	if !mf.open {
		return nil, errors.Errorf("file '%s' is not opened", mf.name)
	}
	return io.NewSectionReader(bytes.NewReader(mf.data), 0, int64(len(mf.data))), nil
}
