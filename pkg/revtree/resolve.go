// Package revtree resolves slash-separated paths against the tree of a commit.
package revtree

import (
	"errors"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/gitstorage/pkg/gitmodules"
	"github.com/weaveworks/gitstorage/pkg/storage/core"
)

// Resolver looks up the objects a tree refers to in an object store.
type Resolver struct {
	s storer.EncodedObjectStorer
}

// NewResolver creates a Resolver reading from s.
func NewResolver(s storer.EncodedObjectStorer) *Resolver {
	return &Resolver{s: s}
}

// SplitPath splits path on "/" and drops empty fragments, so "a//b/" is "a/b"
// and "" is the root.
func SplitPath(path string) []string {
	var fragments []string
	for _, f := range strings.Split(path, "/") {
		if f != "" {
			fragments = append(fragments, f)
		}
	}
	return fragments
}

// Resolve walks path from the root tree of commit. A nil commit stands for a
// repository without commits, where only the empty path exists.
//
// When a fragment has no loadable object in the store (a gitlink entry, or no
// entry at all) the path consumed so far is looked up in the .gitmodules file at
// the root. A match yields a *SubrepoRef; for KindFile a match is reported as
// core.ErrNotAFile instead, since a reference is never file content.
func (r *Resolver) Resolve(commit *object.Commit, path string, kind Kind) (Node, error) {
	if commit == nil {
		if path == "" {
			return EmptyRoot{}, nil
		}
		return nil, core.NewPathError(path, core.ErrPathNotFound)
	}

	root, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	fragments := SplitPath(path)
	var (
		tree = root
		blob *object.Blob
	)
	for i, fragment := range fragments {
		if tree == nil {
			// a blob has no children
			return nil, core.NewPathError(path, core.ErrPathNotFound)
		}
		consumed := fragments[:i+1]

		entry := findEntry(tree, fragment)
		var obj object.Object
		if entry != nil && entry.Mode != filemode.Submodule {
			obj, err = r.load(entry.Hash)
			if err != nil {
				return nil, err
			}
		}
		if obj == nil {
			pinned := plumbing.ZeroHash
			if entry != nil {
				pinned = entry.Hash
			}
			return r.fallback(root, path, consumed, fragments[i+1:], pinned, kind)
		}

		tree, blob = nil, nil
		switch o := obj.(type) {
		case *object.Tree:
			tree = o
		case *object.Blob:
			blob = o
		default:
			return nil, core.NewPathError(path, core.ErrPathNotFound)
		}
		log.Tracef("revtree: resolved %q to %s %s", strings.Join(consumed, "/"), obj.Type(), obj.ID())
	}

	switch {
	case blob != nil && kind == KindDirectory:
		return nil, core.NewPathError(path, core.ErrNotADirectory)
	case blob != nil:
		return &File{Blob: blob}, nil
	case kind == KindFile:
		return nil, core.NewPathError(path, core.ErrNotAFile)
	default:
		return &Directory{Tree: tree}, nil
	}
}

func (r *Resolver) fallback(root *object.Tree, path string, consumed, rest []string, pinned plumbing.Hash, kind Kind) (Node, error) {
	key := strings.Join(consumed, "/")
	location, ok, err := r.submodule(root, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.NewPathError(path, core.ErrPathNotFound)
	}
	if kind == KindFile {
		return nil, core.NewPathError(path, core.ErrNotAFile)
	}
	log.Debugf("revtree: %q is inside submodule %q at %s", path, location, pinned)
	return &SubrepoRef{
		Location: location,
		Path:     strings.Join(rest, "/"),
		Rev:      pinned,
	}, nil
}

// submodule looks key up in the manifest at the root of the tree.
func (r *Resolver) submodule(root *object.Tree, key string) (string, bool, error) {
	entry := findEntry(root, gitmodules.Filename)
	if entry == nil || !entry.Mode.IsFile() {
		return "", false, nil
	}
	blob, err := object.GetBlob(r.s, entry.Hash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	raw, err := (&File{Blob: blob}).Contents()
	if err != nil {
		return "", false, err
	}
	location, ok := gitmodules.Parse(string(raw))[key]
	return location, ok, nil
}

// load returns nil without an error when the object is not in the store.
func (r *Resolver) load(h plumbing.Hash) (object.Object, error) {
	o, err := r.s.EncodedObject(plumbing.AnyObject, h)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return object.DecodeObject(r.s, o)
}

func findEntry(t *object.Tree, name string) *object.TreeEntry {
	for i := range t.Entries {
		if t.Entries[i].Name == name {
			return &t.Entries[i]
		}
	}
	return nil
}

// Files lists the path of every blob below the root tree of commit, depth
// first in stored order. Directories and submodule entries are not listed.
func (r *Resolver) Files(commit *object.Commit) ([]string, error) {
	if commit == nil {
		return []string{}, nil
	}
	root, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	files := []string{}
	err = r.walk(root, "", func(path string) {
		files = append(files, path)
	})
	return files, err
}

func (r *Resolver) walk(t *object.Tree, prefix string, fn func(string)) error {
	for _, e := range t.Entries {
		name := e.Name
		if prefix != "" {
			name = prefix + "/" + e.Name
		}
		if e.Mode == filemode.Submodule {
			continue
		}
		obj, err := r.load(e.Hash)
		if err != nil {
			return err
		}
		switch o := obj.(type) {
		case *object.Blob:
			fn(name)
		case *object.Tree:
			if err := r.walk(o, name, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
