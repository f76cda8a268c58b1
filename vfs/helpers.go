package vfs

import (
	"io"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

func OpenFileAndGetReader(f File) (*io.SectionReader, error) {
	if err := f.Open(); err != nil {
		return nil, errors.Wrapf(err, "cannot open file '%s'", f.Name())
	}
	r, err := f.Reader()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "cannot get file '%s' reader", f.Name())
	}
	return r, nil
}

func DirectoryGetFile(d Directory, name string) (File, error) {
	e, err := d.GetElement(name)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open file '%s'", name)
	}
	if e.IsDirectory() {
		return nil, errors.Errorf("file '%s' is directory, not a file", name)
	}
	return e.(File), nil
}

// ReadURI loads a relative URI below d. The URI is percent decoded and
// backslashes are treated as separators.
func ReadURI(d Directory, uri string) ([]byte, error) {
	p, err := url.PathUnescape(uri)
	if err != nil {
		p = uri
	}
	p = strings.ReplaceAll(p, "\\", "/")

	if md, ok := d.(*MemDirectory); ok {
		return ReadFile(md, strings.TrimPrefix(p, "./"))
	}

	parts := strings.Split(p, "/")
	cur := d
	for _, part := range parts[:len(parts)-1] {
		if part == "" || part == "." {
			continue
		}
		e, err := cur.GetElement(part)
		if err != nil {
			return nil, err
		}
		sub, ok := e.(Directory)
		if !ok || !e.IsDirectory() {
			return nil, errors.Errorf("'%s' is not a directory", part)
		}
		cur = sub
	}
	return ReadFile(cur, parts[len(parts)-1])
}

func ReadFile(d Directory, name string) ([]byte, error) {
	f, err := DirectoryGetFile(d, name)
	if err != nil {
		return nil, err
	}
	r, err := OpenFileAndGetReader(f)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(r)
}
