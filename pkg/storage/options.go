package storage

import (
	"fmt"
	"time"
)

// DateFormat selects how commit timestamps are rendered. The committer's own
// offset is always kept.
type DateFormat string

const (
	// DateFormatDefault renders "2006-01-02 15:04:05".
	DateFormatDefault DateFormat = "default"
	// DateFormatRFC3339Local renders "2006-01-02T15:04:05-0700".
	DateFormatRFC3339Local DateFormat = "rfc3339.local"
)

var dateLayouts = map[DateFormat]string{
	DateFormatDefault:      "2006-01-02 15:04:05",
	DateFormatRFC3339Local: "2006-01-02T15:04:05-0700",
}

// ParseDateFormat validates name as a known DateFormat.
func ParseDateFormat(name string) (DateFormat, error) {
	f := DateFormat(name)
	if _, ok := dateLayouts[f]; !ok {
		return "", fmt.Errorf("unknown date format %q", name)
	}
	return f, nil
}

// Format renders t in its own location. Unknown formats fall back to the default.
func (f DateFormat) Format(t time.Time) string {
	layout, ok := dateLayouts[f]
	if !ok {
		layout = dateLayouts[DateFormatDefault]
	}
	return t.Format(layout)
}

func (f DateFormat) ApplyTo(target *Options) {
	if f != "" {
		target.DateFormat = f
	}
}

type Options struct {
	// DateFormat is used for the dates in Pathinfo and Log. Default "default".
	DateFormat DateFormat
}

func defaultOpts() *Options {
	return &Options{DateFormat: DateFormatDefault}
}

type Option interface {
	ApplyTo(*Options)
}

func (o *Options) ApplyTo(target *Options) {
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
