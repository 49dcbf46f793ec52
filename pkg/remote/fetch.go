package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/revlist"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage"
	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/gitstorage/pkg/storage/core"
	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	anonymousRemote = "anonymous"
	// fetched refs land here only for the duration of a fetch
	scratchPrefix = "refs/gitstorage/fetch/"
)

var fetchRefSpec = config.RefSpec("+refs/*:" + scratchPrefix + "*")

// Refs maps every ref a remote advertised to the object it points at. A
// symbolic HEAD is stored with the hash of its target.
type Refs map[plumbing.ReferenceName]plumbing.Hash

// Names returns the ref names starting with prefix, sorted.
func (r Refs) Names(prefix string) []plumbing.ReferenceName {
	names := sets.NewString()
	for name := range r {
		if strings.HasPrefix(name.String(), prefix) {
			names.Insert(name.String())
		}
	}
	result := make([]plumbing.ReferenceName, 0, names.Len())
	for _, name := range names.List() {
		result = append(result, plumbing.ReferenceName(name))
	}
	return result
}

// Fetcher copies objects from remotes into local repositories.
type Fetcher struct {
	opts *Options
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	return &Fetcher{opts: defaultOpts().ApplyOptions(opts)}
}

// Fetch copies every object reachable from the refs of the remote named by
// identifier into the repository at localPath and returns the advertised refs.
// No local ref is created or moved. An empty remote yields empty Refs.
//
// Identifiers matching no transport fail with *UnsupportedRemoteError, and any
// failure talking to the remote with *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, localPath, identifier string) (Refs, error) {
	ep, err := Classify(identifier)
	if err != nil {
		return nil, err
	}
	local, err := git.PlainOpenWithOptions(localPath, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", core.ErrRepositoryNotFound, localPath)
	} else if err != nil {
		return nil, err
	}
	return f.FetchInto(ctx, local, ep)
}

// FetchInto is Fetch for an opened repository and a classified endpoint.
func (f *Fetcher) FetchInto(ctx context.Context, local *git.Repository, ep *Endpoint) (Refs, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	log.Debugf("Fetching from %s", ep)
	var (
		refs Refs
		err  error
	)
	if ep.Scheme == SchemeLocal {
		refs, err = fetchLocal(ctx, local, ep.Path)
	} else {
		refs, err = fetchTransport(ctx, local, ep)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Debugf("Fetch from %s took longer than deadline %s", ep, f.opts.Timeout)
		}
		log.Debugf("Fetch from %s failed: %v", ep, err)
		return nil, &FetchError{Identifier: ep.Identifier}
	}
	log.Debugf("Fetched %d refs from %s", len(refs), ep)
	return refs, nil
}

// fetchLocal copies objects straight from the object store of another
// repository on disk, without a transport in between.
func fetchLocal(ctx context.Context, local *git.Repository, path string) (Refs, error) {
	remote, err := git.PlainOpen(path)
	if err != nil {
		return nil, err
	}

	refs := Refs{}
	iter, err := remote.References()
	if err != nil {
		return nil, err
	}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() == plumbing.HashReference {
			refs[ref.Name()] = ref.Hash()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if head, err := remote.Reference(plumbing.HEAD, true); err == nil {
		refs[plumbing.HEAD] = head.Hash()
	}
	if len(refs) == 0 {
		return refs, nil
	}

	tips := sets.NewString()
	for _, h := range refs {
		tips.Insert(h.String())
	}
	var wants []plumbing.Hash
	for _, h := range tips.List() {
		wants = append(wants, plumbing.NewHash(h))
	}
	objects, err := revlist.Objects(remote.Storer, wants, nil)
	if err != nil {
		return nil, err
	}

	copied := 0
	for _, h := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if local.Storer.HasEncodedObject(h) == nil {
			continue
		}
		o, err := remote.Storer.EncodedObject(plumbing.AnyObject, h)
		if err != nil {
			return nil, err
		}
		if _, err := local.Storer.SetEncodedObject(o); err != nil {
			return nil, err
		}
		copied++
	}
	log.Tracef("Copied %d of %d reachable objects from %q", copied, len(objects), path)
	return refs, nil
}

// fetchTransport lists and fetches over the git or http transport. The fetch
// writes into a scratch namespace that is removed again before returning.
func fetchTransport(ctx context.Context, local *git.Repository, ep *Endpoint) (Refs, error) {
	remote := git.NewRemote(local.Storer, &config.RemoteConfig{
		Name: anonymousRemote,
		URLs: []string{ep.URL},
	})

	advertised, err := remote.ListContext(ctx, &git.ListOptions{})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return Refs{}, nil
	} else if err != nil {
		return nil, err
	}
	if !hasHashRef(advertised) {
		return Refs{}, nil
	}

	// leftovers of an interrupted fetch would show up as remote refs
	removeScratchRefs(local.Storer)
	defer removeScratchRefs(local.Storer)
	err = remote.FetchContext(ctx, &git.FetchOptions{
		RemoteName: anonymousRemote,
		RefSpecs:   []config.RefSpec{fetchRefSpec},
		Tags:       git.NoTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, err
	}
	return refsFromScratch(local.Storer, advertised)
}

func hasHashRef(advertised []*plumbing.Reference) bool {
	for _, ref := range advertised {
		if ref.Type() == plumbing.HashReference {
			return true
		}
	}
	return false
}

// refsFromScratch reads the refs as the fetch wrote them, so a ref the remote
// moved after it was listed still points at objects that were fetched.
// Symbolic refs of the listing resolve against those. Other listed refs are
// only kept when their object is present locally.
func refsFromScratch(s storage.Storer, advertised []*plumbing.Reference) (Refs, error) {
	refs := Refs{}
	iter, err := s.IterReferences()
	if err != nil {
		return nil, err
	}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if ref.Type() == plumbing.HashReference && strings.HasPrefix(name, scratchPrefix) {
			refs[plumbing.ReferenceName("refs/"+strings.TrimPrefix(name, scratchPrefix))] = ref.Hash()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ref := range advertised {
		if _, ok := refs[ref.Name()]; ok {
			continue
		}
		switch ref.Type() {
		case plumbing.SymbolicReference:
			if h, ok := refs[ref.Target()]; ok {
				refs[ref.Name()] = h
			}
		case plumbing.HashReference:
			if s.HasEncodedObject(ref.Hash()) == nil {
				refs[ref.Name()] = ref.Hash()
			}
		}
	}
	return refs, nil
}

func removeScratchRefs(s storer.ReferenceStorer) {
	iter, err := s.IterReferences()
	if err != nil {
		log.Warnf("Listing refs for cleanup: %v", err)
		return
	}
	var scratch []plumbing.ReferenceName
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		if strings.HasPrefix(ref.Name().String(), scratchPrefix) {
			scratch = append(scratch, ref.Name())
		}
		return nil
	})
	for _, name := range scratch {
		if err := s.RemoveReference(name); err != nil {
			log.Warnf("Removing scratch ref %s: %v", name, err)
		}
	}
}
