// Package tracing wraps sync phases in OpenTelemetry spans.
package tracing

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

// FuncTracer starts spans named "<tracer>.<span>" and can run a closure inside
// one, recording the closure's error on the span.
type FuncTracer interface {
	trace.Tracer
	// TraceFunc runs fn inside a span called spanName. The span ends when one
	// of the methods of the returned TraceFuncResult is called.
	// ErrFuncNotSupplied is returned if fn is nil.
	TraceFunc(ctx context.Context, spanName string, fn TraceFunc, opts ...trace.SpanStartOption) TraceFuncResult
}

// Context returns context.Background() when enable is false. Otherwise spans
// started from the returned context go to the global TracerProvider.
func Context(enable bool) context.Context {
	if !enable {
		return context.Background()
	}
	return WithGlobalProvider(context.Background())
}

// WithGlobalProvider returns a child of ctx from which spans go to the global
// TracerProvider.
func WithGlobalProvider(ctx context.Context) context.Context {
	return trace.ContextWithSpan(ctx, &globalProviderSpan{trace.SpanFromContext(ctx)})
}

// globalProviderSpan is a no-op span whose provider is the global one, so
// FromContext picks up whatever otel.SetTracerProvider installed.
type globalProviderSpan struct {
	trace.Span
}

func (s *globalProviderSpan) TracerProvider() trace.TracerProvider {
	return otel.GetTracerProvider()
}

// TracerNamed lets a type pick the tracer name FromContext uses for it.
type TracerNamed interface {
	TracerName() string
}

// FromContext returns a FuncTracer of the provider carried by ctx, named
// after obj: a string is used as is, a TracerNamed by its TracerName, nil
// gives an unnamed tracer and anything else its %T.
func FromContext(ctx context.Context, obj interface{}) FuncTracer {
	return FromProvider(trace.SpanFromContext(ctx).TracerProvider(), obj)
}

// FromProvider is FromContext for an explicit provider.
func FromProvider(tp trace.TracerProvider, obj interface{}) FuncTracer {
	name := tracerName(obj)
	return funcTracer{name: name, tracer: tp.Tracer(name)}
}

func tracerName(obj interface{}) string {
	switch t := obj.(type) {
	case nil:
		return ""
	case string:
		return t
	case TracerNamed:
		return t.TracerName()
	}
	return fmt.Sprintf("%T", obj)
}

// TraceFuncResult ends the span of a TraceFunc call. One of its methods must
// be called, or the span is never ended.
type TraceFuncResult interface {
	// Error ends the span and returns the error of the closure.
	Error() error
	// Register records the error with DefaultErrRegisterFunc, then ends the span.
	Register() error
	// RegisterCustom records the error with fn, then ends the span.
	RegisterCustom(fn ErrRegisterFunc) error
}

// ErrFuncNotSupplied is returned when a callback argument is nil.
var ErrFuncNotSupplied = errors.New("function argument not supplied")

func funcNotSupplied(name string) error {
	return fmt.Errorf("%w: %s", ErrFuncNotSupplied, name)
}

// TraceFunc is a closure run inside a span.
type TraceFunc func(context.Context, trace.Span) error

// ErrRegisterFunc records err on span.
type ErrRegisterFunc func(span trace.Span, err error)

type funcTracer struct {
	name   string
	tracer trace.Tracer
}

func (o funcTracer) fmtSpanName(spanName string) string {
	switch {
	case o.name != "" && spanName != "":
		return o.name + "." + spanName
	case o.name+spanName != "":
		return o.name + spanName
	}
	return "<unnamed_span>"
}

func (o funcTracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, o.fmtSpanName(spanName), opts...)
}

func (o funcTracer) TraceFunc(ctx context.Context, spanName string, fn TraceFunc, opts ...trace.SpanStartOption) TraceFuncResult {
	ctx, span := o.Start(ctx, spanName, opts...)
	if fn == nil {
		return &traceFuncResult{funcNotSupplied("FuncTracer.TraceFunc"), span}
	}
	return &traceFuncResult{fn(ctx, span), span}
}

type traceFuncResult struct {
	err  error
	span trace.Span
}

func (r *traceFuncResult) Error() error {
	r.span.End()
	return r.err
}

func (r *traceFuncResult) Register() error {
	return r.RegisterCustom(DefaultErrRegisterFunc)
}

func (r *traceFuncResult) RegisterCustom(fn ErrRegisterFunc) error {
	if fn == nil {
		r.err = multierr.Combine(r.err, funcNotSupplied("TraceFuncResult.RegisterCustom"))
		fn = DefaultErrRegisterFunc
	}
	fn(r.span, r.err)
	r.span.End()
	return r.err
}

// DefaultErrRegisterFunc records a non-nil err with span.RecordError.
func DefaultErrRegisterFunc(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}
