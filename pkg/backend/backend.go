// Package backend installs, opens and synchronizes the git repositories that
// back stored items.
package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/gitstorage/pkg/fastforward"
	"github.com/weaveworks/gitstorage/pkg/remote"
	"github.com/weaveworks/gitstorage/pkg/storage"
	"github.com/weaveworks/gitstorage/pkg/storage/core"
	"github.com/weaveworks/gitstorage/pkg/tracing"
	"github.com/weaveworks/gitstorage/pkg/util/sync"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// ErrRepositoryExists is returned by Install when the location already holds
// a repository.
var ErrRepositoryExists = errors.New("repository already exists at path")

// ensurer is implemented by locators that can create the item directory.
type ensurer interface {
	Ensure(name string) (string, error)
}

// existenceChecker is implemented by locators that can tell whether an item
// has a repository without opening it.
type existenceChecker interface {
	Exists(name string) (bool, error)
}

// Backend is the git storage backend.
type Backend struct {
	locator Locator
	opts    *Options
	fetcher *remote.Fetcher
	// locks serializes syncs of the same repository path
	locks sync.NamedLockMap
}

// New creates a Backend resolving item names with locator.
func New(locator Locator, opts ...Option) *Backend {
	o := defaultOpts().ApplyOptions(opts)
	return &Backend{
		locator: locator,
		opts:    o,
		fetcher: remote.NewFetcher(remote.Timeout(o.Timeout)),
		locks:   sync.NewNamedLockMap(),
	}
}

func (b *Backend) TracerName() string { return "Backend" }

// Title is the display name of the backend.
func (b *Backend) Title() string { return "Git" }

// Command is the client program used with repositories of this backend.
func (b *Backend) Command() string { return "git" }

// CloneVerb is the Command subcommand that copies a repository.
func (b *Backend) CloneVerb() string { return "clone" }

// CloneCommand is the shell command that clones the repository at location.
func (b *Backend) CloneCommand(location string) string {
	return fmt.Sprintf("%s %s %s", b.Command(), b.CloneVerb(), location)
}

// Install creates an empty bare repository in <path>/.git for the item name,
// with pushes over HTTP enabled and HEAD pointing at the main branch.
func (b *Backend) Install(name string) (string, error) {
	var (
		path string
		err  error
	)
	if e, ok := b.locator.(ensurer); ok {
		path, err = e.Ensure(name)
	} else {
		path, err = b.locator.Locate(name)
	}
	if err != nil {
		return "", err
	}

	st := filesystem.NewStorage(osfs.New(filepath.Join(path, git.GitDirName)), cache.NewObjectLRUDefault())
	repo, err := git.Init(st, nil)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		return "", fmt.Errorf("%w: %s", ErrRepositoryExists, path)
	} else if err != nil {
		return "", err
	}

	cfg, err := repo.Config()
	if err != nil {
		return "", err
	}
	cfg.Raw.Section("http").SetOption("receivepack", "true")
	if err := repo.Storer.SetConfig(cfg); err != nil {
		return "", err
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(b.opts.MainBranch))
	if err := repo.Storer.SetReference(head); err != nil {
		return "", err
	}

	log.Infof("Initialized repository for %q at %s", name, path)
	return path, nil
}

// Acquire opens the Storage of the item name at HEAD. It fails with
// core.ErrRepositoryNotFound if the item has no repository.
func (b *Backend) Acquire(name string) (*storage.Storage, error) {
	path, err := b.locator.Locate(name)
	if err != nil {
		return nil, err
	}
	if c, ok := b.locator.(existenceChecker); ok {
		exists, err := c.Exists(name)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", core.ErrRepositoryNotFound, path)
		}
	}
	return storage.Open(path, b.opts.DateFormat)
}

// Sync fetches from identifier into the repository of the item name and
// fast-forwards every fetched ref that can be. See SyncPath.
func (b *Backend) Sync(ctx context.Context, name, identifier string) ([]*fastforward.Result, error) {
	path, err := b.locator.Locate(name)
	if err != nil {
		return nil, err
	}
	return b.SyncPath(ctx, path, identifier)
}

// SyncPath fetches every ref of the remote identifier into the repository at
// path and then resolves each refs/ entry against the local ref of the same
// name, in name order. Divergence is reported in the results, never as an
// error. A fetch failure returns before any ref is touched. Errors on single
// refs do not stop the others and are returned together.
//
// Syncs of the same path are serialized.
func (b *Backend) SyncPath(ctx context.Context, path, identifier string) ([]*fastforward.Result, error) {
	ep, err := remote.Classify(identifier)
	if err != nil {
		return nil, err
	}

	lock := b.locks.LockByName(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", core.ErrRepositoryNotFound, path)
	} else if err != nil {
		return nil, err
	}

	var results []*fastforward.Result
	err = tracing.FromContext(ctx, b).TraceFunc(ctx, "Sync", func(ctx context.Context, span trace.Span) error {
		span.SetAttributes(
			attribute.String("path", path),
			attribute.String("remote", identifier),
		)
		refs, err := b.fetcher.FetchInto(ctx, repo, ep)
		if err != nil {
			return err
		}

		var errs []error
		for _, name := range refs.Names("refs/") {
			res, err := fastforward.ResolveAndApply(repo.Storer, name, refs[name])
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			if res.Outcome.OK() {
				log.Infof("%s: %s", path, res)
			} else {
				log.Warnf("%s: %s", path, res)
			}
			results = append(results, res)
		}
		span.SetAttributes(attribute.Int("refs", len(results)))
		return utilerrors.NewAggregate(errs)
	}).Register()
	return results, err
}
