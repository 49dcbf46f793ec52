// Package remote fetches refs and objects from another repository into a
// local one without touching the local branches.
package remote

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// Scheme is the transport used to reach a remote.
type Scheme string

const (
	SchemeHTTP  Scheme = "http"
	SchemeGit   Scheme = "git"
	SchemeLocal Scheme = "file"
)

const defaultGitPort = 9418

// Endpoint is a classified remote identifier.
type Endpoint struct {
	// Identifier is the string the endpoint was classified from.
	Identifier string
	Scheme     Scheme
	// URL is what the transport connects to.
	URL string
	// Path is the repository path requested from a git daemon, or the
	// filesystem path of a local repository.
	Path string
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("%s remote %s", e.Scheme, e.URL)
}

// Classify decides the transport for identifier. In order: an http:// or
// https:// prefix selects HTTP, git://host[:port][/path] the git daemon protocol,
// and an absolute filesystem path a local repository. Anything else fails with
// an *UnsupportedRemoteError.
func Classify(identifier string) (*Endpoint, error) {
	switch {
	case strings.HasPrefix(identifier, "http://"), strings.HasPrefix(identifier, "https://"):
		return &Endpoint{
			Identifier: identifier,
			Scheme:     SchemeHTTP,
			URL:        identifier,
		}, nil

	case strings.HasPrefix(identifier, "git://"):
		u, err := url.Parse(identifier)
		if err != nil || u.Hostname() == "" {
			return nil, &UnsupportedRemoteError{Identifier: identifier}
		}
		port := defaultGitPort
		if p := u.Port(); p != "" {
			if port, err = strconv.Atoi(p); err != nil {
				return nil, &UnsupportedRemoteError{Identifier: identifier}
			}
		}
		path := u.Path
		if path == "" {
			path = "/"
		}
		return &Endpoint{
			Identifier: identifier,
			Scheme:     SchemeGit,
			URL:        fmt.Sprintf("git://%s:%d%s", u.Hostname(), port, path),
			Path:       path,
		}, nil

	case filepath.IsAbs(identifier):
		return &Endpoint{
			Identifier: identifier,
			Scheme:     SchemeLocal,
			URL:        identifier,
			Path:       identifier,
		}, nil
	}
	return nil, &UnsupportedRemoteError{Identifier: identifier}
}
