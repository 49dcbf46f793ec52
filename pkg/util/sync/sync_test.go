package sync

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamedLockMap(t *testing.T) {
	m := NewNamedLockMap()
	a := m.LockByName("/srv/a")
	assert.Same(t, a, m.LockByName("/srv/a"))
	assert.NotSame(t, a, m.LockByName("/srv/b"))
	assert.Equal(t, 2, m.Len())

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := m.LockByName("/srv/a")
			l.Lock()
			defer l.Unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestMonitor(t *testing.T) {
	wantErr := errors.New("stopped")
	m := RunMonitor(func() error { return wantErr })
	assert.Equal(t, wantErr, m.Wait())
	assert.Equal(t, wantErr, m.Wait())

	var nilMonitor *Monitor
	assert.ErrorIs(t, nilMonitor.Wait(), ErrNilMonitor)
}
