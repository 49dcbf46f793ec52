package watch

import "time"

// How many filesystem events we can buffer before watching is delayed
const DefaultEventBufferSize int32 = 4096

type Option interface {
	ApplyTo(*Options)
}

// Options specifies options for the RefWatcher
type Options struct {
	// BatchTimeout is how long to collect events after the first one of a
	// burst before emitting a Change.
	// Default: 1s
	BatchTimeout time.Duration
	// EventBufferSize describes how many events can be buffered
	// before watching is interrupted/delayed.
	// Default: DefaultEventBufferSize
	EventBufferSize int32
}

func (o *Options) ApplyTo(target *Options) {
	if o.BatchTimeout != 0 {
		target.BatchTimeout = o.BatchTimeout
	}
	if o.EventBufferSize != 0 {
		target.EventBufferSize = o.EventBufferSize
	}
}

func (o *Options) ApplyOptions(opts []Option) *Options {
	for _, opt := range opts {
		opt.ApplyTo(o)
	}
	return o
}

func defaultOptions() *Options {
	return &Options{
		BatchTimeout:    1 * time.Second,
		EventBufferSize: DefaultEventBufferSize,
	}
}

// BatchTimeout sets Options.BatchTimeout.
type BatchTimeout time.Duration

func (t BatchTimeout) ApplyTo(target *Options) {
	if t != 0 {
		target.BatchTimeout = time.Duration(t)
	}
}
