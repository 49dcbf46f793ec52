package remote

import "time"

const defaultTimeout = 1 * time.Minute

type Options struct {
	// Timeout bounds a whole fetch, including the ref listing. Default 1m.
	Timeout time.Duration
}

func defaultOpts() *Options {
	return &Options{Timeout: defaultTimeout}
}

type Option interface {
	ApplyTo(*Options)
}

func (o *Options) ApplyTo(target *Options) {
	if o.Timeout != 0 {
		target.Timeout = o.Timeout
	}
}

func (o *Options) ApplyOptions(opts []Option) *Options {
	for _, opt := range opts {
		opt.ApplyTo(o)
	}
	return o
}

// Timeout sets Options.Timeout.
type Timeout time.Duration

func (t Timeout) ApplyTo(target *Options) {
	if t != 0 {
		target.Timeout = time.Duration(t)
	}
}
