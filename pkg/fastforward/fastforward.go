// Package fastforward moves local branches to fetched commits, but only
// forward.
package fastforward

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage"
	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/gitstorage/pkg/storage/core"
)

// Apply opens the repository at localPath and runs ResolveAndApply on it.
func Apply(localPath string, branch plumbing.ReferenceName, target plumbing.Hash) (*Result, error) {
	repo, err := git.PlainOpenWithOptions(localPath, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", core.ErrRepositoryNotFound, localPath)
	} else if err != nil {
		return nil, err
	}
	return ResolveAndApply(repo.Storer, branch, target)
}

// ResolveAndApply compares branch with target and applies the smallest safe
// update:
//
//	branch missing             -> created at target
//	branch == target           -> Identical
//	target is an ancestor      -> RemoteIsAncestor
//	branch is an ancestor      -> fast-forwarded to target
//	otherwise                  -> Diverged, branch untouched
//
// Diverged is a result, not an error. The target object must already be in s.
// The ref is only moved if it still holds the value it was compared against.
func ResolveAndApply(s storage.Storer, branch plumbing.ReferenceName, target plumbing.Hash) (*Result, error) {
	result := &Result{Ref: branch, New: target}

	local, err := s.Reference(branch)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		if err := s.SetReference(plumbing.NewHashReference(branch, target)); err != nil {
			return nil, err
		}
		log.Debugf("Created %s at %s", branch, target)
		result.Outcome = Created
		return result, nil
	} else if err != nil {
		return nil, err
	}
	if local.Type() != plumbing.HashReference {
		return nil, fmt.Errorf("%s is a symbolic reference to %s", branch, local.Target())
	}
	result.Old = local.Hash()

	if local.Hash() == target {
		result.Outcome = Identical
		return result, nil
	}

	localCommit, err := peel(s, local.Hash())
	if err != nil {
		return nil, err
	}
	targetCommit, err := peel(s, target)
	if err != nil {
		return nil, err
	}
	bases, err := localCommit.MergeBase(targetCommit)
	if err != nil {
		return nil, err
	}
	if len(bases) == 0 {
		log.Warnf("No common ancestor between %s (%s) and %s", branch, local.Hash(), target)
		result.Outcome = Diverged
		return result, nil
	}

	for _, base := range bases {
		switch base.Hash {
		case targetCommit.Hash:
			result.Outcome = RemoteIsAncestor
			result.New = local.Hash()
			return result, nil
		case localCommit.Hash:
			next := plumbing.NewHashReference(branch, target)
			if err := s.CheckAndSetReference(next, local); err != nil {
				return nil, fmt.Errorf("moving %s to %s: %w", branch, target, err)
			}
			log.Debugf("Fast-forwarded %s from %s to %s", branch, local.Hash(), target)
			result.Outcome = FastForwarded
			return result, nil
		}
	}

	log.Debugf("%s (%s) and %s have diverged", branch, local.Hash(), target)
	result.Outcome = Diverged
	result.New = local.Hash()
	return result, nil
}

// peel returns the commit h points at, following annotated tags.
func peel(s storer.EncodedObjectStorer, h plumbing.Hash) (*object.Commit, error) {
	for {
		o, err := object.GetObject(s, h)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", h, err)
		}
		switch o := o.(type) {
		case *object.Commit:
			return o, nil
		case *object.Tag:
			h = o.Target
		default:
			return nil, fmt.Errorf("%s is a %s, not a commit", h, o.Type())
		}
	}
}
