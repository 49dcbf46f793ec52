package remote

import (
	"github.com/weaveworks/gitstorage/pkg/util/structerr"
)

var (
	_ structerr.StructError = &UnsupportedRemoteError{}
	_ structerr.StructError = &FetchError{}
)

// UnsupportedRemoteError is returned for identifiers that match no transport.
type UnsupportedRemoteError struct {
	Identifier string
}

func (e *UnsupportedRemoteError) Error() string {
	return "remote not supported: " + e.Identifier
}

// Is reports whether target is an *UnsupportedRemoteError.
func (e *UnsupportedRemoteError) Is(target error) bool {
	_, ok := target.(*UnsupportedRemoteError)
	return ok
}

// FetchError is returned for any failure while talking to a remote. Only the
// identifier is kept; the transport error is logged and dropped, so a
// connection failure looks the same as a missing repository to the caller.
type FetchError struct {
	Identifier string
}

func (e *FetchError) Error() string {
	return "error fetching from remote: " + e.Identifier
}

// Is reports whether target is a *FetchError.
func (e *FetchError) Is(target error) bool {
	_, ok := target.(*FetchError)
	return ok
}
