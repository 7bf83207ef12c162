package tracing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	stage0log "github.com/gxo-labs/stage0/pkg/stage0/v1/log"
	stage0tracing "github.com/gxo-labs/stage0/pkg/stage0/v1/tracing"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/encoding/gzip"
)

const (
	defaultServiceName  = "stage0"
	defaultGRPCEndpoint = "localhost:4317"
	defaultHTTPEndpoint = "localhost:4318"
	defaultTimeout      = 10 * time.Second
)

// OtelTracerProvider implements stage0tracing.TracerProvider with either the
// OpenTelemetry SDK or the no-op provider.
type OtelTracerProvider struct {
	provider    trace.TracerProvider
	sdkProvider *sdktrace.TracerProvider
}

var _ stage0tracing.TracerProvider = (*OtelTracerProvider)(nil)

// NewNoOpProvider returns a provider that records nothing.
func NewNoOpProvider() *OtelTracerProvider {
	return &OtelTracerProvider{provider: trace.NewNoopTracerProvider()}
}

// NewProviderFromEnv builds a provider from the standard OTEL_* environment.
// Tracing stays off unless OTEL_EXPORTER_OTLP_ENDPOINT or
// OTEL_EXPORTER_OTLP_PROTOCOL is set, since a bootstrap run usually has no
// collector. OTEL_SDK_DISABLED=true always wins. Diagnostics go to log, never
// to stdout, which may carry a generated config file.
func NewProviderFromEnv(ctx context.Context, log stage0log.Logger) (*OtelTracerProvider, error) {
	if strings.EqualFold(os.Getenv("OTEL_SDK_DISABLED"), "true") {
		log.Debugf("OpenTelemetry tracing disabled via OTEL_SDK_DISABLED")
		return NewNoOpProvider(), nil
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" && os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "" {
		log.Debugf("OpenTelemetry exporter not configured, tracing disabled")
		return NewNoOpProvider(), nil
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName())),
		resource.WithProcess(), resource.WithOS(), resource.WithHost(),
	)
	if err != nil {
		log.Warnf("Failed to create OTel resource: %v. Using default.", err)
		res = resource.Default()
	}

	exporter, err := createExporter(ctx, log)
	if err != nil {
		return nil, err
	}

	sdkTP := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	return &OtelTracerProvider{provider: sdkTP, sdkProvider: sdkTP}, nil
}

// createExporter picks the OTLP gRPC or HTTP exporter from the environment.
func createExporter(ctx context.Context, log stage0log.Logger) (sdktrace.SpanExporter, error) {
	protocol := strings.ToLower(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"))
	if protocol == "" {
		protocol = "grpc"
	}
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	headers := parseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	timeout := parseTimeout(os.Getenv("OTEL_EXPORTER_OTLP_TIMEOUT"), defaultTimeout)
	gzipOn := strings.EqualFold(os.Getenv("OTEL_EXPORTER_OTLP_COMPRESSION"), "gzip")
	insecure := isInsecure(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"), os.Getenv("OTEL_EXPORTER_OTLP_TRACES_INSECURE"))

	switch protocol {
	case "grpc":
		if endpoint == "" {
			endpoint = defaultGRPCEndpoint
		}
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithHeaders(headers),
			otlptracegrpc.WithTimeout(timeout),
		}
		if insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		} else {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
		}
		if gzipOn {
			opts = append(opts, otlptracegrpc.WithCompressor(gzip.Name))
		}
		log.Debugf("Configuring OTLP gRPC exporter (endpoint: %s, insecure: %t)", endpoint, insecure)
		return otlptracegrpc.New(ctx, opts...)

	case "http", "http/protobuf":
		if endpoint == "" {
			endpoint = defaultHTTPEndpoint
		}
		urlPath := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
		if urlPath == "" {
			urlPath = "/v1/traces"
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithURLPath(urlPath),
			otlptracehttp.WithHeaders(headers),
			otlptracehttp.WithTimeout(timeout),
		}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if gzipOn {
			opts = append(opts, otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
		}
		log.Debugf("Configuring OTLP HTTP exporter (endpoint: %s%s, insecure: %t)", endpoint, urlPath, insecure)
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}
}

// GetTracer returns a tracer from the SDK or no-op provider.
func (p *OtelTracerProvider) GetTracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.provider == nil {
		return trace.NewNoopTracerProvider().Tracer(name, opts...)
	}
	return p.provider.Tracer(name, opts...)
}

// Shutdown flushes buffered spans. The SDK provider shuts down its batcher
// and exporter itself.
func (p *OtelTracerProvider) Shutdown(ctx context.Context) error {
	if p.sdkProvider == nil {
		return nil
	}
	return p.sdkProvider.Shutdown(ctx)
}

// IsEffectivelyNoOp reports whether spans are discarded.
func (p *OtelTracerProvider) IsEffectivelyNoOp() bool {
	return p.sdkProvider == nil
}

func serviceName() string {
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	return defaultServiceName
}

// parseHeaders converts "k1=v1,k2=v2" into a map.
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}
	for _, pair := range strings.Split(headerStr, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		if key := strings.TrimSpace(kv[0]); key != "" {
			headers[key] = strings.TrimSpace(kv[1])
		}
	}
	return headers
}

// parseTimeout accepts integer milliseconds (the OTLP convention) or a Go
// duration string.
func parseTimeout(timeoutStr string, fallback time.Duration) time.Duration {
	if timeoutStr == "" {
		return fallback
	}
	if ms, err := strconv.ParseInt(timeoutStr, 10, 64); err == nil {
		if ms < 0 {
			return fallback
		}
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(timeoutStr); err == nil && d >= 0 {
		return d
	}
	return fallback
}

func isInsecure(flags ...string) bool {
	for _, flag := range flags {
		if strings.EqualFold(strings.TrimSpace(flag), "true") {
			return true
		}
	}
	return false
}
