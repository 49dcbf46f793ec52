package backend

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaveworks/gitstorage/pkg/fastforward"
	"github.com/weaveworks/gitstorage/pkg/watch"
)

func TestBackend_MirrorEvery(t *testing.T) {
	remoteDir, _, _ := demoRemote(t)
	b, _ := newBackend(t)
	_, err := b.Install("item")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var outcomes []fastforward.Outcome
	b.MirrorEvery(ctx, "item", remoteDir, 10*time.Millisecond, func(results []*fastforward.Result, err error) {
		require.NoError(t, err)
		require.Len(t, results, 1)
		outcomes = append(outcomes, results[0].Outcome)
		if len(outcomes) == 3 {
			cancel()
		}
	})
	assert.Equal(t, []fastforward.Outcome{fastforward.Created, fastforward.Identical, fastforward.Identical}, outcomes)
}

func TestBackend_MirrorOn(t *testing.T) {
	remoteDir, rb, revs := demoRemote(t)
	b, _ := newBackend(t)
	path, err := b.Install("item")
	require.NoError(t, err)
	_, err = b.Sync(context.Background(), "item", remoteDir)
	require.NoError(t, err)

	changes := make(chan watch.Change)
	var outcomes []fastforward.Outcome
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.MirrorOn(context.Background(), "item", remoteDir, changes, func(results []*fastforward.Result, err error) {
			assert.NoError(t, err)
			for _, r := range results {
				outcomes = append(outcomes, r.Outcome)
			}
		})
	}()

	rb.SetRef(plumbing.Master, revs[1])
	changes <- watch.Change{Refs: []string{"refs/heads/master"}}
	close(changes)
	<-done

	// the first run may or may not have seen the older remote, the last one always has
	require.NotEmpty(t, outcomes)
	assert.Equal(t, fastforward.RemoteIsAncestor, outcomes[len(outcomes)-1])
	assert.Equal(t, revs[3], masterOf(t, path))
}
