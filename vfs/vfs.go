// Package vfs resolves external resources referenced by documents: buffers
// and images given by relative URI.
package vfs

import (
	"io"
)

// Element is a named entry of a Directory. Implementations hold only
// metadata until the file is opened.
type Element interface {
	Name() string
	IsDirectory() bool
}

// File must be opened before Reader is called and closed afterwards.
type File interface {
	Element
	Size() int64
	Open() error
	Close() error
	Reader() (*io.SectionReader, error)
}

type Directory interface {
	Element
	List() ([]string, error)
	GetElement(name string) (Element, error)
}
