// Package gittest builds repositories object by object for tests.
package gittest

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/stretchr/testify/require"
)

// Epoch is the committer time of the first commit made by Demo.
var Epoch = time.Date(2013, 7, 22, 16, 40, 20, 0, time.FixedZone("", 12*60*60))

const (
	// NestedPath is the deepest file in the Demo repository.
	NestedPath = "nested/deep/dir/file"
	// NestedContent is the content of NestedPath.
	NestedContent = "This is\n\na deeply nested file\n"
)

var demoContents = []string{
	"This is a test file.\n",
	"This is a test file.\nWith a new line.\n",
	"This is a test file.\nWith a different new line.\n",
}

// Builder writes objects and refs straight into a storer.
type Builder struct {
	t testing.TB
	s storage.Storer
}

// New returns a Builder for s.
func New(t testing.TB, s storage.Storer) *Builder {
	return &Builder{t: t, s: s}
}

// Init creates a bare repository at <dir>/.git, the layout used for stored
// repositories, and returns it together with a Builder for it.
func Init(t testing.TB, dir string) (*git.Repository, *Builder) {
	repo, err := git.PlainInit(filepath.Join(dir, ".git"), true)
	require.NoError(t, err)
	return repo, New(t, repo.Storer)
}

// Blob stores content and returns its hash.
func (b *Builder) Blob(content string) plumbing.Hash {
	o := b.s.NewEncodedObject()
	o.SetType(plumbing.BlobObject)
	w, err := o.Writer()
	require.NoError(b.t, err)
	_, err = w.Write([]byte(content))
	require.NoError(b.t, err)
	require.NoError(b.t, w.Close())
	return b.store(o)
}

// Tree stores the nested trees needed to hold files, keyed by slash-separated
// path. Gitlinks adds submodule entries pinned at the given commits.
func (b *Builder) Tree(files map[string]string, gitlinks map[string]plumbing.Hash) plumbing.Hash {
	root := &dir{}
	for path, content := range files {
		root.add(strings.Split(path, "/"), b.Blob(content), filemode.Regular)
	}
	for path, h := range gitlinks {
		root.add(strings.Split(path, "/"), h, filemode.Submodule)
	}
	return b.writeDir(root)
}

// Commit stores a commit of tree made by name at when.
func (b *Builder) Commit(tree plumbing.Hash, name, msg string, when time.Time, parents ...plumbing.Hash) plumbing.Hash {
	sig := Signature(name, when)
	c := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      msg,
		TreeHash:     tree,
		ParentHashes: parents,
	}
	o := b.s.NewEncodedObject()
	require.NoError(b.t, c.Encode(o))
	return b.store(o)
}

// SetRef points name at h.
func (b *Builder) SetRef(name plumbing.ReferenceName, h plumbing.Hash) {
	require.NoError(b.t, b.s.SetReference(plumbing.NewHashReference(name, h)))
}

// Signature is the identity used for every commit made by name.
func Signature(name string, when time.Time) object.Signature {
	return object.Signature{
		Name:  name,
		Email: name + "@example.com",
		When:  when,
	}
}

// Demo commits four revisions to branch and returns their hashes, oldest first,
// and the files of the last one:
//
//	file1 file2 -> file1 changed -> file2 changed, file3 added -> nested/deep/dir/file added
func (b *Builder) Demo(branch plumbing.ReferenceName) ([]plumbing.Hash, []string) {
	files := map[string]string{
		"file1": demoContents[0],
		"file2": demoContents[0],
	}
	steps := []struct {
		author string
		msg    string
		change func()
	}{
		{"user1", "added1", func() {}},
		{"user2", "added2", func() { files["file1"] = demoContents[1] }},
		{"user3", "added3", func() {
			files["file2"] = demoContents[1]
			files["file3"] = demoContents[0]
		}},
		{"user3", "added4", func() { files[NestedPath] = NestedContent }},
	}

	var revs, parents []plumbing.Hash
	for i, step := range steps {
		step.change()
		h := b.Commit(b.Tree(files, nil), step.author, step.msg, Epoch.Add(time.Duration(i)*time.Minute), parents...)
		revs = append(revs, h)
		parents = []plumbing.Hash{h}
	}
	b.SetRef(branch, revs[len(revs)-1])
	return revs, []string{"file1", "file2", "file3", NestedPath}
}

func (b *Builder) store(o plumbing.EncodedObject) plumbing.Hash {
	h, err := b.s.SetEncodedObject(o)
	require.NoError(b.t, err)
	return h
}

type dir struct {
	entries map[string]*dirEntry
}

type dirEntry struct {
	hash plumbing.Hash
	mode filemode.FileMode
	sub  *dir
}

func (d *dir) add(parts []string, h plumbing.Hash, mode filemode.FileMode) {
	if d.entries == nil {
		d.entries = map[string]*dirEntry{}
	}
	if len(parts) == 1 {
		d.entries[parts[0]] = &dirEntry{hash: h, mode: mode}
		return
	}
	e, ok := d.entries[parts[0]]
	if !ok || e.sub == nil {
		e = &dirEntry{mode: filemode.Dir, sub: &dir{}}
		d.entries[parts[0]] = e
	}
	e.sub.add(parts[1:], h, mode)
}

func (b *Builder) writeDir(d *dir) plumbing.Hash {
	t := &object.Tree{}
	for name, e := range d.entries {
		h := e.hash
		if e.sub != nil {
			h = b.writeDir(e.sub)
		}
		t.Entries = append(t.Entries, object.TreeEntry{Name: name, Mode: e.mode, Hash: h})
	}
	// git orders tree entries as if directory names ended in a slash
	sort.Slice(t.Entries, func(i, j int) bool {
		return sortKey(t.Entries[i]) < sortKey(t.Entries[j])
	})
	o := b.s.NewEncodedObject()
	require.NoError(b.t, t.Encode(o))
	return b.store(o)
}

func sortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}
