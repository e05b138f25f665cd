package trace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/google/wire"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer name used by conveyor packages.
const InstrumentationName = "github.com/go-arcade/conveyor"

// Conf is the tracing configuration
type Conf struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoint of the OTLP collector, e.g. localhost:4317 or localhost:4318
	Endpoint string `mapstructure:"endpoint"`
	// Protocol is grpc or http
	Protocol       string            `mapstructure:"protocol"`
	ServiceName    string            `mapstructure:"serviceName"`
	ServiceVersion string            `mapstructure:"serviceVersion"`
	Insecure       bool              `mapstructure:"insecure"`
	Headers        map[string]string `mapstructure:"headers"`
	// BatchTimeout and ExportTimeout are in seconds
	BatchTimeout       int `mapstructure:"batchTimeout"`
	ExportTimeout      int `mapstructure:"exportTimeout"`
	MaxExportBatchSize int `mapstructure:"maxExportBatchSize"`
}

func (c *Conf) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "conveyor"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Protocol == "" {
		c.Protocol = "grpc"
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 5
	}
	if c.ExportTimeout == 0 {
		c.ExportTimeout = 30
	}
	if c.MaxExportBatchSize == 0 {
		c.MaxExportBatchSize = 512
	}
	if c.Endpoint == "" {
		if c.Protocol == "grpc" {
			c.Endpoint = "localhost:4317"
		} else {
			c.Endpoint = "localhost:4318"
		}
	}
}

// InitTracerProvider installs a global TracerProvider. When tracing is
// disabled spans are still created with valid ids but never exported.
func InitTracerProvider(ctx context.Context, conf Conf) (*sdktrace.TracerProvider, func(), error) {
	if !conf.Enabled {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
		otel.SetTracerProvider(tp)
		return tp, func() { _ = tp.Shutdown(context.Background()) }, nil
	}

	conf.SetDefaults()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(conf.ServiceName),
			semconv.ServiceVersionKey.String(conf.ServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := createExporter(ctx, conf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(time.Duration(conf.BatchTimeout)*time.Second),
			sdktrace.WithExportTimeout(time.Duration(conf.ExportTimeout)*time.Second),
			sdktrace.WithMaxExportBatchSize(conf.MaxExportBatchSize),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
	)

	cleanup := func() {
		timeout := min(max(time.Duration(conf.ExportTimeout)*time.Second+5*time.Second, 10*time.Second), 30*time.Second)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Warnw("tracer provider shutdown timed out", "timeout", timeout)
				return
			}
			log.Errorw("failed to shutdown tracer provider", "error", err)
		}
	}
	return tp, cleanup, nil
}

func createExporter(ctx context.Context, conf Conf) (sdktrace.SpanExporter, error) {
	timeout := time.Duration(conf.ExportTimeout) * time.Second
	switch conf.Protocol {
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(conf.Endpoint), otlptracegrpc.WithTimeout(timeout)}
		if conf.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(conf.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(conf.Headers))
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(conf.Endpoint), otlptracehttp.WithTimeout(timeout)}
		if conf.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(conf.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(conf.Headers))
		}
		return otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", conf.Protocol)
	}
}

// GetTracer returns a tracer from the global provider
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Start opens a span on the conveyor tracer.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetTracer(InstrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ProviderSet provides the tracer provider
var ProviderSet = wire.NewSet(ProvideTracerProvider)

// ProvideTracerProvider installs the global tracer provider for the process
func ProvideTracerProvider(conf Conf) (*sdktrace.TracerProvider, func(), error) {
	return InitTracerProvider(context.Background(), conf)
}
