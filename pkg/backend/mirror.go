package backend

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/gitstorage/pkg/fastforward"
	"github.com/weaveworks/gitstorage/pkg/watch"
	"k8s.io/apimachinery/pkg/util/wait"
)

// ReportFunc receives the outcome of every sync run by a mirror loop.
type ReportFunc func(results []*fastforward.Result, err error)

func (b *Backend) mirrorOnce(ctx context.Context, name, identifier string, report ReportFunc) {
	log.Trace("mirror: Will perform sync operation")
	results, err := b.Sync(ctx, name, identifier)
	if err != nil {
		log.Errorf("mirror: sync of %q from %s failed: %v", name, identifier, err)
	}
	if report != nil {
		report(results, err)
	}
}

// MirrorEvery syncs the item name from identifier right away and then every
// interval, measured from the start of each run, until ctx is done. Failed
// runs are logged and retried on the next tick.
func (b *Backend) MirrorEvery(ctx context.Context, name, identifier string, interval time.Duration, report ReportFunc) {
	log.Infof("Mirroring %s into %q every %s", identifier, name, interval)
	wait.NonSlidingUntilWithContext(ctx, func(ctx context.Context) {
		b.mirrorOnce(ctx, name, identifier, report)
	}, interval)
	log.Infof("Stopped mirroring %s into %q", identifier, name)
}

// MirrorOn syncs the item name from identifier right away and then once for
// every Change received, until changes is closed or ctx is done.
func (b *Backend) MirrorOn(ctx context.Context, name, identifier string, changes <-chan watch.Change, report ReportFunc) {
	log.Infof("Mirroring %s into %q on ref changes", identifier, name)
	defer log.Infof("Stopped mirroring %s into %q", identifier, name)

	b.mirrorOnce(ctx, name, identifier, report)
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			log.Debugf("mirror: refs changed: %v", change.Refs)
			b.mirrorOnce(ctx, name, identifier, report)
		}
	}
}
