//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry wires OpenTelemetry tracing and metrics for suite runs.
// It exports one tracer plus the run-level instruments, and a Start function
// that installs OTLP providers resolved from options and environment.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// grpcDial is a package-level variable to allow test injection of a custom
// dialer. In production, this points to grpc.Dial.
var grpcDial = grpc.Dial

// Telemetry service constants.
const (
	ServiceName      = "trpc-dialogtest-go"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go"
	InstrumentName   = "trpc.dialogtest.go"
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporters.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporters.
	ProtocolHTTP string = "http"
)

// Span and metric attribute keys.
const (
	KeySuiteName      = "dialogtest.suite.name"
	KeySuiteType      = "dialogtest.suite.type"
	KeyTestName       = "dialogtest.test.name"
	KeyTestStatus     = "dialogtest.test.status"
	KeyTestExecIndex  = "dialogtest.test.exec_index"
	KeyTurnIndex      = "dialogtest.turn.index"
	KeyConversationID = "dialogtest.conversation.id"
)

// Tracer and Meter come from the global providers, so instrumentation points
// work before Start and bind to the real providers afterwards.
var (
	Tracer = otel.Tracer(InstrumentName)
	Meter  = otel.Meter(InstrumentName)

	// TestCount counts finished tests, partitioned by KeyTestStatus.
	TestCount metric.Int64Counter
	// TurnDuration measures one backend round trip in seconds.
	TurnDuration metric.Float64Histogram
)

func init() {
	var err error
	if TestCount, err = Meter.Int64Counter(
		"dialogtest.test.count",
		metric.WithDescription("Total number of finished tests"),
		metric.WithUnit("1"),
	); err != nil {
		otel.Handle(err)
	}
	if TurnDuration, err = Meter.Float64Histogram(
		"dialogtest.turn.duration",
		metric.WithDescription("Duration of one dialog turn round trip"),
		metric.WithUnit("s"),
	); err != nil {
		otel.Handle(err)
	}
}

// Start builds OTLP trace and metric providers and installs them as the
// process-global providers. The environment variables described below can be
// used for endpoint configuration.
// OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_TRACES_ENDPOINT,
// OTEL_EXPORTER_OTLP_METRICS_ENDPOINT (default: "localhost:4317" for gRPC,
// "localhost:4318" for HTTP).
// The returned clean function flushes and shuts both providers down.
func Start(ctx context.Context, opts ...Option) (clean func(context.Context) error, err error) {
	options := &options{
		serviceName:      ServiceName,
		serviceVersion:   ServiceVersion,
		serviceNamespace: ServiceNamespace,
		protocol:         ProtocolGRPC,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.tracesEndpoint == "" {
		options.tracesEndpoint = tracesEndpoint(options.protocol)
	}
	if options.metricsEndpoint == "" {
		options.metricsEndpoint = metricsEndpoint(options.protocol)
	}

	res, err := buildResource(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var tracerProvider *sdktrace.TracerProvider
	switch options.protocol {
	case ProtocolHTTP:
		tracerProvider, err = newHTTPTracerProvider(ctx, res, options.tracesEndpoint)
	default:
		tracerProvider, err = newGRPCTracerProvider(ctx, res, options.tracesEndpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	var meterProvider *sdkmetric.MeterProvider
	switch options.protocol {
	case ProtocolHTTP:
		meterProvider, err = newHTTPMeterProvider(ctx, res, options.metricsEndpoint)
	default:
		meterProvider, err = newGRPCMeterProvider(ctx, res, options.metricsEndpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)

	return func(ctx context.Context) error {
		var result *multierror.Error
		result = multierror.Append(result, tracerProvider.Shutdown(ctx))
		result = multierror.Append(result, meterProvider.Shutdown(ctx))
		return result.ErrorOrNil()
	}, nil
}

// SpanError records err on span and marks the span status failed.
func SpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func tracesEndpoint(protocol string) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return genericEndpoint(protocol)
}

func metricsEndpoint(protocol string) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return genericEndpoint(protocol)
}

func genericEndpoint(protocol string) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	switch protocol {
	case ProtocolHTTP:
		// HTTP endpoint base URL, the exporter adds /v1/{traces,metrics}.
		return "localhost:4318"
	default:
		// gRPC endpoint (host:port).
		return "localhost:4317"
	}
}

func newGRPCTracerProvider(ctx context.Context, res *resource.Resource, endpoint string) (*sdktrace.TracerProvider, error) {
	conn, err := newGRPCConn(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create traces connection: %w", err)
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create traces exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	), nil
}

func newHTTPTracerProvider(ctx context.Context, res *resource.Resource, endpoint string) (*sdktrace.TracerProvider, error) {
	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP traces exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	), nil
}

func newGRPCMeterProvider(ctx context.Context, res *resource.Resource, endpoint string) (*sdkmetric.MeterProvider, error) {
	conn, err := newGRPCConn(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics connection: %w", err)
	}
	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	), nil
}

func newHTTPMeterProvider(ctx context.Context, res *resource.Resource, endpoint string) (*sdkmetric.MeterProvider, error) {
	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	), nil
}

// newGRPCConn creates a new gRPC connection to the OpenTelemetry Collector.
func newGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	// Note the use of insecure transport here. TLS is recommended in
	// production.
	conn, err := grpcDial(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}

// Option is a function that configures telemetry options.
type Option func(*options)

// options holds the configuration options for Start.
type options struct {
	tracesEndpoint     string
	metricsEndpoint    string
	serviceName        string
	serviceVersion     string
	serviceNamespace   string
	protocol           string
	resourceAttributes []attribute.KeyValue
}

// WithEndpoint sets the endpoint (host and port) both exporters connect to.
// The provided endpoint should resemble "example.com:4317" (no scheme or
// path). Environment variables are consulted only when this option is not
// passed.
func WithEndpoint(endpoint string) Option {
	return func(opts *options) {
		opts.tracesEndpoint = endpoint
		opts.metricsEndpoint = endpoint
	}
}

// WithProtocol sets the protocol used for OTLP export.
// Supported protocols are "grpc" (default) and "http".
func WithProtocol(protocol string) Option {
	return func(opts *options) {
		opts.protocol = protocol
	}
}

// WithServiceName overrides the service.name resource attribute.
func WithServiceName(serviceName string) Option {
	return func(opts *options) {
		opts.serviceName = serviceName
	}
}

// WithServiceNamespace overrides the service.namespace resource attribute.
func WithServiceNamespace(serviceNamespace string) Option {
	return func(opts *options) {
		opts.serviceNamespace = serviceNamespace
	}
}

// WithServiceVersion overrides the service.version resource attribute.
func WithServiceVersion(serviceVersion string) Option {
	return func(opts *options) {
		opts.serviceVersion = serviceVersion
	}
}

// WithResourceAttributes appends custom resource attributes.
func WithResourceAttributes(attrs ...attribute.KeyValue) Option {
	return func(opts *options) {
		opts.resourceAttributes = append(opts.resourceAttributes, attrs...)
	}
}

func buildResource(ctx context.Context, options *options) (*resource.Resource, error) {
	resourceOpts := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceNamespace(options.serviceNamespace),
			semconv.ServiceName(options.serviceName),
			semconv.ServiceVersion(options.serviceVersion),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	}
	if len(options.resourceAttributes) > 0 {
		resourceOpts = append(resourceOpts, resource.WithAttributes(options.resourceAttributes...))
	}
	return resource.New(ctx, resourceOpts...)
}
