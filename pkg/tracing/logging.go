package tracing

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewLoggingTracerProvider wraps tp so that span lifecycle events are also
// written to the logrus standard logger at debug level.
func NewLoggingTracerProvider(tp trace.TracerProvider) SDKTracerProvider {
	return &loggingTracerProvider{tp}
}

type loggingTracerProvider struct {
	tp trace.TracerProvider
}

func (tp *loggingTracerProvider) Tracer(instrumentationName string, opts ...trace.TracerOption) trace.Tracer {
	return &loggingTracer{provider: tp, tracer: tp.tp.Tracer(instrumentationName, opts...)}
}

func (tp *loggingTracerProvider) Shutdown(ctx context.Context) error {
	if p, ok := tp.tp.(SDKTracerProvider); ok {
		return p.Shutdown(ctx)
	}
	return nil
}

func (tp *loggingTracerProvider) ForceFlush(ctx context.Context) error {
	if p, ok := tp.tp.(SDKTracerProvider); ok {
		return p.ForceFlush(ctx)
	}
	return nil
}

type loggingTracer struct {
	provider trace.TracerProvider
	tracer   trace.Tracer
}

const (
	spanNameKey       = "span"
	spanEventKey      = "event"
	spanStatusKey     = "status"
	spanAttributesKey = "attributes"
)

func (t *loggingTracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	entry := log.WithField(spanNameKey, spanName)
	cfg := trace.NewSpanStartConfig(opts...)
	if attrs := cfg.Attributes(); len(attrs) != 0 {
		entry.WithField(spanAttributesKey, attrs).Debug("starting span")
	} else {
		entry.Debug("starting span")
	}

	ctx, span := t.tracer.Start(ctx, spanName, opts...)
	ls := &loggingSpan{Span: span, provider: t.provider, entry: entry}
	return trace.ContextWithSpan(ctx, ls), ls
}

// loggingSpan forwards to the wrapped span after logging each mutation.
type loggingSpan struct {
	trace.Span
	provider trace.TracerProvider
	entry    *log.Entry
}

func (s *loggingSpan) End(options ...trace.SpanEndOption) {
	s.entry.Debug("ending span")
	s.Span.End(options...)
}

func (s *loggingSpan) AddEvent(name string, options ...trace.EventOption) {
	s.entry.WithField(spanEventKey, name).Debug("recorded span event")
	s.Span.AddEvent(name, options...)
}

func (s *loggingSpan) RecordError(err error, options ...trace.EventOption) {
	s.entry.WithError(err).Debug("recorded span error")
	s.Span.RecordError(err, options...)
}

func (s *loggingSpan) SetStatus(code codes.Code, description string) {
	s.entry.WithField(spanStatusKey, code.String()).Debugf("recorded span status change: %s", description)
	s.Span.SetStatus(code, description)
}

func (s *loggingSpan) SetName(name string) {
	s.entry.WithField("new-"+spanNameKey, name).Debug("recorded span name change")
	s.entry = s.entry.WithField(spanNameKey, name)
	s.Span.SetName(name)
}

func (s *loggingSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.entry.WithField(spanAttributesKey, kv).Debug("recorded span attribute change")
	s.Span.SetAttributes(kv...)
}

func (s *loggingSpan) TracerProvider() trace.TracerProvider { return s.provider }
