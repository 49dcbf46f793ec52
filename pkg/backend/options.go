package backend

import (
	"time"

	"github.com/weaveworks/gitstorage/pkg/storage"
)

const (
	defaultMainBranch = "master"
	defaultTimeout    = 1 * time.Minute
)

type Options struct {
	// MainBranch is the branch HEAD of installed repositories points to.
	// Default "master".
	MainBranch string
	// Timeout bounds each fetch. Default 1m.
	Timeout time.Duration
	// DateFormat is passed to every acquired Storage. Default storage.DateFormatDefault.
	DateFormat storage.DateFormat
}

func defaultOpts() *Options {
	return &Options{
		MainBranch: defaultMainBranch,
		Timeout:    defaultTimeout,
		DateFormat: storage.DateFormatDefault,
	}
}

type Option interface {
	ApplyTo(*Options)
}

func (o *Options) ApplyTo(target *Options) {
	if o.MainBranch != "" {
		target.MainBranch = o.MainBranch
	}
	if o.Timeout != 0 {
		target.Timeout = o.Timeout
	}
	if o.DateFormat != "" {
		target.DateFormat = o.DateFormat
	}
}

func (o *Options) ApplyOptions(opts []Option) *Options {
	for _, opt := range opts {
		opt.ApplyTo(o)
	}
	return o
}

// MainBranch sets Options.MainBranch.
type MainBranch string

func (b MainBranch) ApplyTo(target *Options) {
	if b != "" {
		target.MainBranch = string(b)
	}
}

// Timeout sets Options.Timeout.
type Timeout time.Duration

func (t Timeout) ApplyTo(target *Options) {
	if t != 0 {
		target.Timeout = time.Duration(t)
	}
}

// DateFormat sets Options.DateFormat.
type DateFormat storage.DateFormat

func (f DateFormat) ApplyTo(target *Options) {
	if f != "" {
		target.DateFormat = storage.DateFormat(f)
	}
}
