package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaveworks/gitstorage/pkg/gitmodules"
	"github.com/weaveworks/gitstorage/pkg/storage/core"
	"github.com/weaveworks/gitstorage/pkg/util/gittest"
)

func demoStorage(t *testing.T, opts ...Option) (*Storage, []plumbing.Hash, []string) {
	dir := t.TempDir()
	_, b := gittest.Init(t, dir)
	revs, files := b.Demo(plumbing.Master)
	s, err := Open(dir, opts...)
	require.NoError(t, err)
	return s, revs, files
}

func TestOpen_NoRepository(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, core.ErrRepositoryNotFound)
}

func TestStorage_Demo(t *testing.T) {
	s, revs, files := demoStorage(t)
	head := revs[len(revs)-1].String()

	got, err := s.Files()
	require.NoError(t, err)
	assert.Equal(t, files, got)

	entries, err := s.Listdir("")
	require.NoError(t, err)
	assert.Equal(t, []string{"file1", "file2", "file3", "nested"}, entries)

	assert.Equal(t, head, s.Rev())
	assert.Equal(t, head[:12], s.ShortRev())

	info, err := s.Pathinfo("nested")
	require.NoError(t, err)
	assert.Equal(t, &PathInfo{Basename: "nested", Type: PathTypeFolder}, info)

	entries, err = s.Listdir("nested")
	require.NoError(t, err)
	assert.Equal(t, []string{"deep"}, entries)

	info, err = s.Pathinfo("file1")
	require.NoError(t, err)
	assert.Equal(t, &PathInfo{Basename: "file1", Type: PathTypeFile, Size: 38, Date: "2013-07-22 16:43:20"}, info)

	content, err := s.File(gittest.NestedPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("This is\n\na deeply nested file\n"), content)

	for _, tt := range []struct {
		name string
		fn   func() error
		want error
	}{
		{"pathinfo nosuchpath", func() error { _, err := s.Pathinfo("nosuchpath"); return err }, core.ErrPathNotFound},
		{"listdir nosuchpath", func() error { _, err := s.Listdir("nosuchpath"); return err }, core.ErrPathNotFound},
		{"listdir file1", func() error { _, err := s.Listdir("file1"); return err }, core.ErrNotADirectory},
		{"file nested", func() error { _, err := s.File("nested"); return err }, core.ErrNotAFile},
		{"pathinfo nested nosuchpath", func() error { _, err := s.Pathinfo("nested/deep/nosuchpath"); return err }, core.ErrPathNotFound},
		{"listdir nested nosuchpath", func() error { _, err := s.Listdir("nested/deep/nosuchpath"); return err }, core.ErrPathNotFound},
		{"listdir nested file", func() error { _, err := s.Listdir(gittest.NestedPath); return err }, core.ErrNotADirectory},
		{"file nested dir", func() error { _, err := s.File("nested/deep/dir"); return err }, core.ErrNotAFile},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.fn(), tt.want)
		})
	}
}

func TestStorage_Log(t *testing.T) {
	s, revs, _ := demoStorage(t)

	logs, err := s.Log("HEAD", 10)
	require.NoError(t, err)
	require.Len(t, logs, 4)
	authors := []string{}
	for _, l := range logs {
		authors = append(authors, l.Author)
	}
	assert.Equal(t, []string{"user3", "user3", "user2", "user1"}, authors)
	assert.Equal(t, LogEntry{
		Author: "user3",
		Email:  "user3@example.com",
		Date:   "2013-07-22 16:43:20",
		Node:   revs[3].String(),
		Rev:    revs[3].String(),
		Desc:   "added4",
	}, logs[0])

	logs, err = s.Log("", 2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = s.Log("", 0)
	require.NoError(t, err)
	assert.Empty(t, logs)

	logs, err = s.Log(revs[1].String(), 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	_, err = s.Log("nosuchrev", 1)
	assert.ErrorIs(t, err, core.ErrRevisionNotFound)
}

func TestStorage_Checkout(t *testing.T) {
	s, revs, _ := demoStorage(t)

	require.NoError(t, s.Checkout(revs[0].String()))
	assert.Equal(t, revs[0].String(), s.Rev())
	require.NoError(t, s.Checkout(revs[0].String()))
	assert.Equal(t, revs[0].String(), s.Rev())

	files, err := s.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"file1", "file2"}, files)

	require.NoError(t, s.Checkout("refs/heads/master"))
	assert.Equal(t, revs[3].String(), s.Rev())

	err = s.Checkout("nowhere")
	assert.ErrorIs(t, err, core.ErrRevisionNotFound)
	assert.Equal(t, revs[3].String(), s.Rev())

	require.NoError(t, s.Checkout(""))
	assert.Equal(t, revs[3].String(), s.Rev())
}

func TestStorage_DateFormat(t *testing.T) {
	s, _, _ := demoStorage(t, DateFormatRFC3339Local)
	info, err := s.Pathinfo("file1")
	require.NoError(t, err)
	assert.Equal(t, "2013-07-22T16:43:20+1200", info.Date)

	require.NoError(t, s.SetDateFormat(DateFormatDefault))
	info, err = s.Pathinfo("file1")
	require.NoError(t, err)
	assert.Equal(t, "2013-07-22 16:43:20", info.Date)

	assert.Error(t, s.SetDateFormat("iso"))
}

func TestStorage_Empty(t *testing.T) {
	dir := t.TempDir()
	gittest.Init(t, dir)
	s, err := Open(dir)
	require.NoError(t, err)

	files, err := s.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{}, files)

	info, err := s.Pathinfo("")
	require.NoError(t, err)
	assert.Equal(t, &PathInfo{Basename: "", Type: PathTypeFolder, Size: 0, Date: ""}, info)

	entries, err := s.Listdir("")
	require.NoError(t, err)
	assert.Equal(t, []string{}, entries)

	logs, err := s.Log("", 1)
	require.NoError(t, err)
	assert.Equal(t, []LogEntry{}, logs)

	assert.Equal(t, "", s.Rev())
	assert.Equal(t, "", s.ShortRev())

	assert.ErrorIs(t, s.Checkout("nowhere"), core.ErrRevisionNotFound)
	// a failed checkout leaves the storage usable
	info, err = s.Pathinfo("")
	require.NoError(t, err)
	assert.Equal(t, PathTypeFolder, info.Type)

	_, err = s.Listdir("nowhere")
	assert.ErrorIs(t, err, core.ErrPathNotFound)
	_, err = s.Log("nosuchrev", 1)
	assert.ErrorIs(t, err, core.ErrRevisionNotFound)
}

func TestStorage_Subrepo(t *testing.T) {
	dir := t.TempDir()
	_, b := gittest.Init(t, dir)
	url := "http://models.example.com/w/import1"
	first := plumbing.NewHash("466b6256bd9a1588256558a8e644f04b13bc04f3")
	second := plumbing.NewHash("00cf337ef94f882f2585684c1c5c601285312f85")
	manifest := gitmodules.Format(map[string]string{"ext/import1": url})

	c1 := b.Commit(b.Tree(map[string]string{gitmodules.Filename: manifest}, map[string]plumbing.Hash{"ext/import1": second}), "user1", "pin", gittest.Epoch)
	c2 := b.Commit(b.Tree(map[string]string{gitmodules.Filename: manifest}, map[string]plumbing.Hash{"ext/import1": first}), "user1", "bump", gittest.Epoch.Add(time.Minute), c1)
	b.SetRef(plumbing.Master, c2)

	s, err := Open(dir)
	require.NoError(t, err)

	info, err := s.Pathinfo("ext/import1")
	require.NoError(t, err)
	assert.Equal(t, &PathInfo{
		Basename: "import1",
		Type:     PathTypeSubrepo,
		Subrepo: &SubrepoInfo{
			Location: url,
			Path:     "",
			Rev:      first.String(),
		},
	}, info)

	_, err = s.File("ext/import1")
	assert.ErrorIs(t, err, core.ErrNotAFile)
	_, err = s.Listdir("ext/import1")
	assert.ErrorIs(t, err, core.ErrNotADirectory)

	require.NoError(t, s.Checkout(c1.String()))
	info, err = s.Pathinfo("ext/import1")
	require.NoError(t, err)
	assert.Equal(t, second.String(), info.Subrepo.Rev)
}

func TestBasename(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"a":        "a",
		"a/b":      "b",
		"a/b/":     "",
		"nested/x": "x",
	}
	for path, want := range tests {
		assert.Equal(t, want, basename(path), path)
	}
}
