package core

import (
	"errors"
	"fmt"

	"github.com/weaveworks/gitstorage/pkg/util/structerr"
)

var (
	// ErrPathNotFound is returned when a path segment is neither present in the tree
	// nor declared in the submodule manifest, or when a non-empty path is requested
	// from a repository without commits.
	ErrPathNotFound = errors.New("path not found")
	// ErrNotADirectory is returned when a directory was expected but the path
	// resolved to something else.
	ErrNotADirectory = errors.New("path not dir")
	// ErrNotAFile is returned when file content was expected but the path resolved
	// to a directory or a sub-repository reference.
	ErrNotAFile = errors.New("path not file")
	// ErrRevisionNotFound is returned when an explicitly given revision does not resolve.
	ErrRevisionNotFound = errors.New("revision not found")
	// ErrRepositoryNotFound is returned when no repository exists at a location.
	ErrRepositoryNotFound = errors.New("repository does not exist at path")
)

var _ structerr.StructError = &PathError{}

// PathError records the path that failed to resolve together with the error kind,
// one of ErrPathNotFound, ErrNotADirectory or ErrNotAFile.
type PathError struct {
	Path string
	Err  error
}

// NewPathError wraps err with the path it applies to.
func NewPathError(path string, err error) *PathError {
	return &PathError{Path: path, Err: err}
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Path)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *PathError.
func (e *PathError) Is(target error) bool {
	_, ok := target.(*PathError)
	return ok
}

// NewRevisionNotFound formats ErrRevisionNotFound for the given revision.
func NewRevisionNotFound(rev string) error {
	return fmt.Errorf("%w: %s", ErrRevisionNotFound, rev)
}

var (
	IsErrPathNotFound       = func(err error) bool { return errors.Is(err, ErrPathNotFound) }
	IsErrNotADirectory      = func(err error) bool { return errors.Is(err, ErrNotADirectory) }
	IsErrNotAFile           = func(err error) bool { return errors.Is(err, ErrNotAFile) }
	IsErrRevisionNotFound   = func(err error) bool { return errors.Is(err, ErrRevisionNotFound) }
	IsErrRepositoryNotFound = func(err error) bool { return errors.Is(err, ErrRepositoryNotFound) }
)
