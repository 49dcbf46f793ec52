// Package watch notices ref updates in a repository on the local disk.
package watch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/rjeczalik/notify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/weaveworks/gitstorage/pkg/util/sync"
	"k8s.io/apimachinery/pkg/util/sets"
)

// ErrNoRepository is returned when the watched path holds no git directory.
var ErrNoRepository = errors.New("no git directory to watch")

const lockSuffix = ".lock"

// Change lists the refs touched during one batch, relative to the git
// directory and sorted. HEAD and packed-refs show up under their own names.
type Change struct {
	Refs []string
}

type eventStream chan notify.EventInfo

// RefWatcher emits a Change whenever refs of a repository are written. Bursts
// of events, like the lock file dance git does for every ref update, are
// collected into one Change.
type RefWatcher struct {
	gitDir   string
	inbound  eventStream
	outbound chan Change
	done     chan struct{}
	stop     gosync.Once
	monitor  *sync.Monitor
	opts     Options
}

// NewRefWatcher watches the repository at path, which is either a bare git
// directory or a directory with a .git subdirectory.
func NewRefWatcher(path string, opts ...Option) (*RefWatcher, error) {
	o := defaultOptions().ApplyOptions(opts)
	gitDir, err := findGitDir(afero.NewOsFs(), path)
	if err != nil {
		return nil, err
	}

	w := &RefWatcher{
		gitDir:   gitDir,
		inbound:  make(eventStream, int(o.EventBufferSize)),
		outbound: make(chan Change),
		done:     make(chan struct{}),
		opts:     *o,
	}

	log.Tracef("RefWatcher: Starting watch for %q", gitDir)
	// the git directory itself for HEAD and packed-refs, refs recursively
	if err := notify.Watch(gitDir, w.inbound, notify.All); err != nil {
		notify.Stop(w.inbound)
		return nil, err
	}
	if err := notify.Watch(filepath.Join(gitDir, "refs", "..."), w.inbound, notify.All); err != nil {
		notify.Stop(w.inbound)
		return nil, err
	}
	w.monitor = sync.RunMonitor(w.monitorFunc)
	return w, nil
}

func findGitDir(fs afero.Fs, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	// notify reports resolved paths
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	for _, dir := range []string{filepath.Join(abs, git.GitDirName), abs} {
		if ok, _ := afero.DirExists(fs, filepath.Join(dir, "refs")); ok {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoRepository, path)
}

// GitDir is the directory being watched.
func (w *RefWatcher) GitDir() string {
	return w.gitDir
}

// Changes is closed after Close.
func (w *RefWatcher) Changes() <-chan Change {
	return w.outbound
}

func (w *RefWatcher) monitorFunc() error {
	log.Debug("RefWatcher: Monitoring thread started")
	defer log.Debug("RefWatcher: Monitoring thread stopped")
	defer close(w.outbound)

	pending := sets.NewString()
	var dispatch <-chan time.Time
	for {
		select {
		case <-w.done:
			return nil
		case event := <-w.inbound:
			ref, ok := w.refName(event.Path())
			if !ok {
				continue
			}
			log.Tracef("RefWatcher: %s on %q", event.Event(), ref)
			pending.Insert(ref)
			if dispatch == nil {
				dispatch = time.After(w.opts.BatchTimeout)
			}
		case <-dispatch:
			dispatch = nil
			change := Change{Refs: pending.List()}
			pending = sets.NewString()
			log.Debugf("RefWatcher: Dispatching changes of %v", change.Refs)
			select {
			case w.outbound <- change:
			case <-w.done:
				return nil
			}
		}
	}
}

// refName maps an event path to the ref it touches, or false if it is not
// about refs at all.
func (w *RefWatcher) refName(path string) (string, bool) {
	rel, err := filepath.Rel(w.gitDir, path)
	if err != nil {
		return "", false
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), lockSuffix)
	switch {
	case rel == "HEAD", rel == "packed-refs":
		return rel, true
	case strings.HasPrefix(rel, "refs/"):
		return rel, true
	}
	return "", false
}

// Close stops watching and waits for the dispatching goroutine to exit. Later
// calls only wait.
func (w *RefWatcher) Close() error {
	w.stop.Do(func() {
		notify.Stop(w.inbound)
		close(w.done)
	})
	return w.monitor.Wait()
}
