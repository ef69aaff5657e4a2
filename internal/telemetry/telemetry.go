// Package telemetry traces completion requests with OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cchalm/roomchat/internal/ai"
	"github.com/cchalm/roomchat/internal/chat"
)

const (
	serviceName = "roomchat"
	tracerName  = "github.com/cchalm/roomchat/internal/telemetry"
)

// TelemetryConfig holds the configuration for telemetry
type TelemetryConfig struct {
	Enabled        bool
	Endpoint       string // OTLP/HTTP endpoint, host:port. Empty uses the exporter's default
	ServiceVersion string
}

// Provider manages the telemetry system
type Provider struct {
	tracerProvider *sdktrace.TracerProvider // nil when disabled
	tracer         trace.Tracer
}

// NewProvider creates a new telemetry provider. When telemetry is disabled the provider hands out a no-op tracer
func NewProvider(ctx context.Context, config TelemetryConfig) (*Provider, error) {
	if !config.Enabled {
		log.Printf("Telemetry disabled")
		return &Provider{tracer: noop.NewTracerProvider().Tracer(tracerName)}, nil
	}

	opts := []otlptracehttp.Option{}
	if config.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(config.Endpoint), otlptracehttp.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	log.Printf("Telemetry enabled, exporting traces to %s", endpointOrDefault(config.Endpoint))

	return NewProviderWithTracerProvider(tp), nil
}

// NewProviderWithTracerProvider wraps an existing SDK tracer provider
func NewProviderWithTracerProvider(tp *sdktrace.TracerProvider) *Provider {
	return &Provider{
		tracerProvider: tp,
		tracer:         tp.Tracer(tracerName),
	}
}

// Shutdown flushes pending spans and shuts down the telemetry provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	log.Printf("Shutting down telemetry provider")
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	return nil
}

// TraceCompleter wraps next so that every completion is recorded as a span
func (p *Provider) TraceCompleter(next ai.Completer) ai.Completer {
	return &tracingCompleter{next: next, tracer: p.tracer}
}

type tracingCompleter struct {
	next   ai.Completer
	tracer trace.Tracer
}

func (tc *tracingCompleter) Complete(ctx context.Context, turns []chat.Turn) (string, error) {
	turnID := NewTurnID()
	ctx, span := tc.tracer.Start(ctx, "completion", trace.WithAttributes(
		attribute.String("conversation.id", ai.ConversationIDFromContext(ctx)),
		attribute.String("turn.id", turnID),
		attribute.Int("turn.count", len(turns)),
		attribute.Int("prompt.chars", promptChars(turns)),
	))
	defer span.End()

	reply, err := tc.next.Complete(ctx, turns)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	span.SetAttributes(attribute.Int("reply.chars", utf8.RuneCountInString(reply)))
	return reply, nil
}

func promptChars(turns []chat.Turn) int {
	n := 0
	for _, turn := range turns {
		n += utf8.RuneCountInString(turn.Content())
	}
	return n
}

func endpointOrDefault(endpoint string) string {
	if endpoint == "" {
		return "the default OTLP endpoint"
	}
	return endpoint
}

// NewTurnID generates a new turn UUID
func NewTurnID() string {
	return uuid.New().String()
}
