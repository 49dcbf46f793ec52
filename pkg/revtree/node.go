package revtree

import (
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Kind is the node kind a caller expects a path to resolve to.
type Kind int

const (
	// KindAny accepts whatever the path resolves to.
	KindAny Kind = iota
	// KindFile expects file content. The submodule fallback never applies to it.
	KindFile
	// KindDirectory expects a directory.
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "any"
	}
}

// Node is the result of resolving a path. It is one of *File, *Directory,
// *SubrepoRef or EmptyRoot.
type Node interface {
	node()
}

var (
	_ Node = &File{}
	_ Node = &Directory{}
	_ Node = &SubrepoRef{}
	_ Node = EmptyRoot{}
)

// File is a blob in the tree.
type File struct {
	Blob *object.Blob
}

func (*File) node() {}

// Size is the blob length in bytes.
func (f *File) Size() int64 { return f.Blob.Size }

// Contents reads the whole blob.
func (f *File) Contents() ([]byte, error) {
	r, err := f.Blob.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Directory is a tree in the tree.
type Directory struct {
	Tree *object.Tree
}

func (*Directory) node() {}

// Entries lists the names of the immediate children in stored order.
func (d *Directory) Entries() []string {
	names := make([]string, 0, len(d.Tree.Entries))
	for _, e := range d.Tree.Entries {
		names = append(names, e.Name)
	}
	return names
}

// SubrepoRef is a path that leads into another repository declared in the
// submodule manifest.
type SubrepoRef struct {
	// Location is the url recorded for the submodule.
	Location string
	// Path is what is left of the requested path inside the sub-repository.
	Path string
	// Rev is the commit the submodule entry is pinned to, or the zero hash if the
	// tree holds no entry for it at all.
	Rev plumbing.Hash
}

func (*SubrepoRef) node() {}

// EmptyRoot is the root of a repository that has no commits yet.
type EmptyRoot struct{}

func (EmptyRoot) node() {}
