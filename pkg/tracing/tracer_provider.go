package tracing

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

// ServiceName is the default service.name resource attribute.
const ServiceName = "gitstorage"

// SDKTracerProvider is a TracerProvider that can flush and shut down its
// exporters.
type SDKTracerProvider interface {
	trace.TracerProvider
	Shutdown(ctx context.Context) error
	ForceFlush(ctx context.Context) error
}

// NewBuilder returns an empty TracerProviderBuilder.
func NewBuilder() TracerProviderBuilder {
	return &builder{}
}

// TracerProviderBuilder collects exporters and options for a SDKTracerProvider.
// Exporter construction errors are kept and returned from Build.
type TracerProviderBuilder interface {
	// RegisterInsecureOTelExporter exports over gRPC to an OpenTelemetry
	// Collector at addr, "localhost:55680" if empty.
	RegisterInsecureOTelExporter(ctx context.Context, addr string, opts ...otlptracegrpc.Option) TracerProviderBuilder
	// RegisterInsecureJaegerExporter exports to the Jaeger collector HTTP API at
	// addr, "http://localhost:14268/api/traces" if empty.
	RegisterInsecureJaegerExporter(addr string, opts ...jaeger.CollectorEndpointOption) TracerProviderBuilder
	// RegisterStdoutExporter pretty-prints spans to os.Stdout, or to the
	// writer given with stdouttrace.WithWriter.
	RegisterStdoutExporter(opts ...stdouttrace.Option) TracerProviderBuilder

	WithOptions(opts ...tracesdk.TracerProviderOption) TracerProviderBuilder
	// WithAttributes adds resource attributes. service.name defaults to ServiceName.
	WithAttributes(attrs ...attribute.KeyValue) TracerProviderBuilder
	// WithSynchronousExports exports every span as it ends. Only for tests.
	WithSynchronousExports(sync bool) TracerProviderBuilder
	// WithLogging also logs span events, see NewLoggingTracerProvider.
	WithLogging(log bool) TracerProviderBuilder

	Build() (SDKTracerProvider, error)
	// InstallGlobally builds the provider and passes it to otel.SetTracerProvider.
	InstallGlobally() (SDKTracerProvider, error)
}

type builder struct {
	exporters []tracesdk.SpanExporter
	errs      []error
	tpOpts    []tracesdk.TracerProviderOption
	attrs     []attribute.KeyValue
	sync      bool
	log       bool
}

func (b *builder) add(exp tracesdk.SpanExporter, err error) TracerProviderBuilder {
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.exporters = append(b.exporters, exp)
	return b
}

func (b *builder) RegisterInsecureOTelExporter(ctx context.Context, addr string, opts ...otlptracegrpc.Option) TracerProviderBuilder {
	if addr == "" {
		addr = "localhost:55680"
	}
	opts = append([]otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(addr),
		otlptracegrpc.WithInsecure(),
	}, opts...)
	return b.add(otlptracegrpc.New(ctx, opts...))
}

func (b *builder) RegisterInsecureJaegerExporter(addr string, opts ...jaeger.CollectorEndpointOption) TracerProviderBuilder {
	if addr != "" {
		opts = append([]jaeger.CollectorEndpointOption{jaeger.WithEndpoint(addr)}, opts...)
	}
	return b.add(jaeger.New(jaeger.WithCollectorEndpoint(opts...)))
}

func (b *builder) RegisterStdoutExporter(opts ...stdouttrace.Option) TracerProviderBuilder {
	opts = append([]stdouttrace.Option{stdouttrace.WithPrettyPrint()}, opts...)
	return b.add(stdouttrace.New(opts...))
}

func (b *builder) WithOptions(opts ...tracesdk.TracerProviderOption) TracerProviderBuilder {
	b.tpOpts = append(b.tpOpts, opts...)
	return b
}

func (b *builder) WithAttributes(attrs ...attribute.KeyValue) TracerProviderBuilder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

func (b *builder) WithSynchronousExports(sync bool) TracerProviderBuilder {
	b.sync = sync
	return b
}

func (b *builder) WithLogging(log bool) TracerProviderBuilder {
	b.log = log
	return b
}

var ErrNoExportersProvided = errors.New("no exporters provided")

func (b *builder) Build() (SDKTracerProvider, error) {
	if err := multierr.Combine(b.errs...); err != nil {
		return nil, err
	}
	if len(b.exporters) == 0 {
		return nil, ErrNoExportersProvided
	}

	attrs := append([]attribute.KeyValue{semconv.ServiceNameKey.String(ServiceName)}, b.attrs...)
	opts := []tracesdk.TracerProviderOption{
		tracesdk.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
	}
	for _, exporter := range b.exporters {
		if b.sync {
			opts = append(opts, tracesdk.WithSyncer(exporter))
		} else {
			opts = append(opts, tracesdk.WithBatcher(exporter))
		}
	}
	tp := tracesdk.NewTracerProvider(append(opts, b.tpOpts...)...)
	if b.log {
		return NewLoggingTracerProvider(tp), nil
	}
	return tp, nil
}

func (b *builder) InstallGlobally() (SDKTracerProvider, error) {
	tp, err := b.Build()
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Shutdown flushes and stops tp if it is a SDKTracerProvider, waiting at most
// timeout unless timeout is 0.
func Shutdown(ctx context.Context, tp trace.TracerProvider, timeout time.Duration) error {
	p, ok := tp.(SDKTracerProvider)
	if !ok {
		return nil
	}
	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.Shutdown(ctx)
}
