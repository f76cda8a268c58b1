// Package errs holds the conversion error kinds shared by all pipeline stages.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	Unknown Kind = iota
	MalformedInput
	DataRange
	Topology
	UnsupportedExtension
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case MalformedInput:
		return "malformed input"
	case DataRange:
		return "data range"
	case Topology:
		return "topology inconsistency"
	case UnsupportedExtension:
		return "unsupported extension"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
}

func New(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func Malformed(format string, args ...interface{}) error {
	return New(MalformedInput, format, args...)
}

func Range(format string, args ...interface{}) error {
	return New(DataRange, format, args...)
}

func Topo(format string, args ...interface{}) error {
	return New(Topology, format, args...)
}

// KindOf unwraps err with errors.Cause and reports its kind.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
