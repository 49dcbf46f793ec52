// Package storage exposes one checked-out revision of a git repository as a
// read-only file tree with history.
package storage

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/gitstorage/pkg/revtree"
	"github.com/weaveworks/gitstorage/pkg/storage/core"
)

const (
	headRev     = "HEAD"
	shortRevLen = 12
)

// Storage binds a repository to its current commit. The current commit is only
// changed by Checkout. Storage holds no lock: concurrent readers are fine as long
// as nobody calls Checkout at the same time.
type Storage struct {
	repo     *git.Repository
	resolver *revtree.Resolver
	opts     *Options

	// nil when the repository has no commits yet
	commit *object.Commit
}

// Open opens the repository at path, looking for a .git directory in path and
// its parents, and checks out HEAD. core.ErrRepositoryNotFound is returned if
// there is no repository.
func Open(path string, opts ...Option) (*Storage, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", core.ErrRepositoryNotFound, path)
	} else if err != nil {
		return nil, err
	}
	log.Debugf("Opened repository at %q", path)
	return New(repo, opts...)
}

// New creates a Storage for repo with HEAD checked out.
func New(repo *git.Repository, opts ...Option) (*Storage, error) {
	s := &Storage{
		repo:     repo,
		resolver: revtree.NewResolver(repo.Storer),
		opts:     defaultOpts().ApplyOptions(opts),
	}
	if err := s.Checkout(""); err != nil {
		return nil, err
	}
	return s, nil
}

// Repository returns the underlying repository.
func (s *Storage) Repository() *git.Repository {
	return s.repo
}

// SetDateFormat switches the format used for dates from now on.
func (s *Storage) SetDateFormat(f DateFormat) error {
	if _, err := ParseDateFormat(string(f)); err != nil {
		return err
	}
	s.opts.DateFormat = f
	return nil
}

// Checkout makes rev the current commit. An empty rev means HEAD. A HEAD that
// does not resolve means the repository has no commits yet, which leaves no
// current commit instead of failing. Any other revision that does not resolve
// fails with core.ErrRevisionNotFound and keeps the current commit.
func (s *Storage) Checkout(rev string) error {
	if rev == "" {
		rev = headRev
	}
	c, err := s.resolveCommit(rev)
	if err != nil {
		if rev == headRev && errors.Is(err, core.ErrRevisionNotFound) {
			log.Debugf("HEAD does not resolve, treating the repository as empty")
			s.commit = nil
			return nil
		}
		return err
	}
	s.commit = c
	return nil
}

// Rev is the full hex id of the current commit, or "" without one.
func (s *Storage) Rev() string {
	if s.commit == nil {
		return ""
	}
	return s.commit.Hash.String()
}

// ShortRev is the first 12 characters of Rev.
func (s *Storage) ShortRev() string {
	rev := s.Rev()
	if len(rev) > shortRevLen {
		return rev[:shortRevLen]
	}
	return rev
}

// Files lists every file in the current commit, depth first. Directories are not
// listed.
func (s *Storage) Files() ([]string, error) {
	return s.resolver.Files(s.commit)
}

// Listdir lists the names in the directory at path, "" being the root.
func (s *Storage) Listdir(path string) ([]string, error) {
	n, err := s.resolver.Resolve(s.commit, path, revtree.KindDirectory)
	if err != nil {
		return nil, err
	}
	switch node := n.(type) {
	case *revtree.Directory:
		return node.Entries(), nil
	case revtree.EmptyRoot:
		return []string{}, nil
	default:
		// files and sub-repository references
		return nil, core.NewPathError(path, core.ErrNotADirectory)
	}
}

// File reads the content of the file at path.
func (s *Storage) File(path string) ([]byte, error) {
	n, err := s.resolver.Resolve(s.commit, path, revtree.KindFile)
	if err != nil {
		return nil, err
	}
	f, ok := n.(*revtree.File)
	if !ok {
		return nil, core.NewPathError(path, core.ErrNotAFile)
	}
	return f.Contents()
}

func (s *Storage) resolveCommit(rev string) (*object.Commit, error) {
	h, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		log.Tracef("Resolving revision %q: %v", rev, err)
		return nil, core.NewRevisionNotFound(rev)
	}
	obj, err := s.repo.Object(plumbing.AnyObject, *h)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, core.NewRevisionNotFound(rev)
	} else if err != nil {
		return nil, err
	}
	switch o := obj.(type) {
	case *object.Commit:
		return o, nil
	case *object.Tag:
		return o.Commit()
	default:
		return nil, fmt.Errorf("%w: %s is a %s", core.ErrRevisionNotFound, rev, obj.Type())
	}
}
