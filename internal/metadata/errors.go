package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat marks files that are not readable JPEG images.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrIO marks permission, disk and rename failures.
	ErrIO = errors.New("i/o failure")
	// ErrInvalidCoordinate marks latitudes or longitudes out of range.
	ErrInvalidCoordinate = errors.New("coordinate out of range")
)

// Error describes a failed store operation on one file. errors.Is matches
// both its Kind and the underlying cause.
type Error struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func ioError(op, path string, err error) error {
	return &Error{Op: op, Path: path, Kind: ErrIO, Err: err}
}

func formatError(op, path string, err error) error {
	return &Error{Op: op, Path: path, Kind: ErrUnsupportedFormat, Err: err}
}
