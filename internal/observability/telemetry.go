package observability

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/AnandVishesh1301/temboXpoke/internal/config"
)

const instrumentationName = "github.com/AnandVishesh1301/temboXpoke"

// InitTracing installs the global TracerProvider. Spans are exported to
// stdout only when cfg.Stdout is set; otherwise they are sampled and dropped.
// The returned function flushes and stops the provider.
func InitTracing(ctx context.Context, cfg config.TracingConfig) (func(context.Context) error, error) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(newResource(ctx, cfg))}
	if cfg.Stdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, errors.Wrap(err, "create stdout exporter")
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// InitMetrics installs the global MeterProvider and binds the tool-call
// instruments to it. With cfg.MetricsStdout set, a periodic reader exports to
// stdout every cfg.MetricsInterval; otherwise measurements are aggregated in
// process only. The returned function flushes and stops the provider.
func InitMetrics(ctx context.Context, cfg config.TracingConfig) (func(context.Context) error, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(newResource(ctx, cfg))}
	if cfg.MetricsStdout {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, errors.Wrap(err, "create stdout metric exporter")
		}
		var readerOpts []sdkmetric.PeriodicReaderOption
		if cfg.MetricsInterval > 0 {
			readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricsInterval))
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, readerOpts...)))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	useMeterProvider(mp)
	return mp.Shutdown, nil
}

func newResource(ctx context.Context, cfg config.TracingConfig) *resource.Resource {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)),
	)
	if err != nil {
		return resource.Default()
	}
	return res
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

type toolInstruments struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

var instruments = newToolInstruments(otel.Meter(instrumentationName))

// useMeterProvider rebinds the tool-call instruments. Called at startup,
// before any tool runs.
func useMeterProvider(mp metric.MeterProvider) {
	instruments = newToolInstruments(mp.Meter(instrumentationName))
}

func newToolInstruments(m metric.Meter) toolInstruments {
	calls, err := m.Int64Counter("mcp.tool.calls",
		metric.WithDescription("Tool invocations by module, tool and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		otel.Handle(err)
		calls = noop.Int64Counter{}
	}
	duration, err := m.Float64Histogram("mcp.tool.duration",
		metric.WithDescription("Tool invocation latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		otel.Handle(err)
		duration = noop.Float64Histogram{}
	}
	return toolInstruments{calls: calls, duration: duration}
}

// StartToolSpan starts the span covering one tool invocation. subject, when
// set, is recorded as enduser.id.
func StartToolSpan(ctx context.Context, module, tool, subject string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("mcp.module", module),
		attribute.String("mcp.tool", tool),
	}
	if subject != "" {
		attrs = append(attrs, attribute.String("enduser.id", subject))
	}
	return tracer().Start(ctx, "tools/call "+tool,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
}

// EndToolSpan records the envelope outcome and ends the span.
func EndToolSpan(span trace.Span, ok bool, kind string) {
	span.SetAttributes(attribute.Bool("mcp.result.ok", ok))
	if !ok {
		span.SetAttributes(attribute.String("mcp.error.kind", kind))
		span.SetStatus(codes.Error, kind)
	}
	span.End()
}

// RecordToolCall updates the call counter and latency histogram.
func RecordToolCall(ctx context.Context, module, tool, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("module", module),
		attribute.String("tool", tool),
		attribute.String("status", status),
	)
	instruments.calls.Add(ctx, 1, attrs)
	instruments.duration.Record(ctx, float64(d.Microseconds())/1000, attrs)
}

// StartUpstreamSpan starts a client span for an outbound API request.
func StartUpstreamSpan(ctx context.Context, service, method, url string) (context.Context, trace.Span) {
	return tracer().Start(ctx, service+" "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", url),
			attribute.String("peer.service", service),
		),
	)
}

// EndUpstreamSpan records the response status (0 when none) or error.
func EndUpstreamSpan(span trace.Span, status int, err error) {
	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if status >= 400 {
		span.SetStatus(codes.Error, "upstream error")
	}
	span.End()
}
