package sync

import (
	"errors"
	"sync"
)

// ErrNilMonitor is returned by Wait on a nil *Monitor.
var ErrNilMonitor = errors.New("wait on nil monitor")

// Monitor tracks a single background goroutine and keeps the error it
// returned.
type Monitor struct {
	wg  *sync.WaitGroup
	err error
}

// RunMonitor starts f in its own goroutine. The returned Monitor's Wait blocks
// until f has returned.
func RunMonitor(f func() error) *Monitor {
	m := &Monitor{wg: new(sync.WaitGroup)}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.err = f()
	}()
	return m
}

// Wait blocks until the goroutine has returned and hands back its error.
// It is safe to call more than once.
func (m *Monitor) Wait() error {
	if m == nil {
		return ErrNilMonitor
	}
	m.wg.Wait()
	return m.err
}
