package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaveworks/gitstorage/pkg/util/gittest"
)

func TestBackend_SyncTransport(t *testing.T) {
	tests := []struct {
		name  string
		serve func(testing.TB, string) string
	}{
		{"git daemon", gittest.ServeDaemon},
		{"smart http", gittest.ServeHTTP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			_, rb := gittest.Init(t, filepath.Join(base, "src"))
			revs, _ := rb.Demo(plumbing.Master)
			identifier := tt.serve(t, base) + "/src/.git"

			b := New(NewDirLocator(t.TempDir()), Timeout(30*time.Second))
			path, err := b.Install("item")
			require.NoError(t, err)
			ctx := context.Background()

			results, err := b.Sync(ctx, "item", identifier)
			require.NoError(t, err)
			assert.Equal(t, []result{
				{plumbing.Master, true, "Created new branch: refs/heads/master"},
			}, summarize(results))
			s, err := b.Acquire("item")
			require.NoError(t, err)
			assert.Equal(t, revs[3].String(), s.Rev())

			results, err = b.Sync(ctx, "item", identifier)
			require.NoError(t, err)
			assert.Equal(t, []result{
				{plumbing.Master, true, "Source and target are identical."},
			}, summarize(results))

			tree := rb.Tree(map[string]string{"file1": "over the wire\n"}, nil)
			next := rb.Commit(tree, "user4", "added5", gittest.Epoch.Add(time.Hour), revs[3])
			rb.SetRef(plumbing.Master, next)

			results, err = b.Sync(ctx, "item", identifier)
			require.NoError(t, err)
			assert.Equal(t, []result{
				{plumbing.Master, true, "Fast-forwarded branch: refs/heads/master"},
			}, summarize(results))
			assert.Equal(t, next, masterOf(t, path))

			s, err = b.Acquire("item")
			require.NoError(t, err)
			assert.Equal(t, next.String(), s.Rev())
			content, err := s.File("file1")
			require.NoError(t, err)
			assert.Equal(t, "over the wire\n", string(content))

			repo, err := git.PlainOpen(path)
			require.NoError(t, err)
			iter, err := repo.References()
			require.NoError(t, err)
			require.NoError(t, iter.ForEach(func(ref *plumbing.Reference) error {
				assert.False(t, strings.HasPrefix(ref.Name().String(), "refs/gitstorage/"), ref.Name().String())
				return nil
			}))
		})
	}
}
