package progress

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "starter/navigation"

// OTelConfig configures the OpenTelemetry indicator.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "starter/navigation").
	TracerName string

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider
}

// OTelOption configures the OpenTelemetry indicator.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// OpenTelemetry returns an indicator that opens one span per navigation.
//
// The span starts on the first attempt; later attempts (guard redirects)
// are recorded as span events. Done ends the span with the outcome.
// Configure the global provider in main() before serving:
//
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) Indicator {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &otelIndicator{tracer: tp.Tracer(config.TracerName)}
}

type otelIndicator struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
	opts  Options
}

func (o *otelIndicator) Configure(opts Options) {
	o.mu.Lock()
	o.opts = opts
	o.mu.Unlock()
}

func (o *otelIndicator) Start(ctx context.Context, ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if span, ok := o.spans[ev.ID]; ok {
		span.AddEvent("redirect", trace.WithAttributes(
			attribute.String("navigation.path", ev.Path),
			attribute.Int("navigation.attempt", ev.Attempt),
		))
		return
	}

	_, span := o.tracer.Start(ctx, "navigate "+ev.Path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithTimestamp(ev.StartedAt),
		trace.WithAttributes(
			attribute.String("navigation.id", ev.ID),
			attribute.String("navigation.path", ev.Path),
			attribute.Bool("progress.show_spinner", o.opts.ShowSpinner),
		),
	)
	if o.spans == nil {
		o.spans = make(map[string]trace.Span)
	}
	o.spans[ev.ID] = span
}

func (o *otelIndicator) Done(_ context.Context, ev Event) {
	o.mu.Lock()
	span, ok := o.spans[ev.ID]
	delete(o.spans, ev.ID)
	o.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(
		attribute.String("navigation.final_path", ev.Path),
		attribute.String("navigation.route", ev.Route),
		attribute.String("navigation.outcome", ev.Outcome),
		attribute.Int("navigation.attempts", ev.Attempt+1),
	)
	if ev.Outcome == "committed" {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, ev.Outcome)
	}
	span.End(trace.WithTimestamp(time.Now()))
}
