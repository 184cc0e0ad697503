package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instruments bundles the tracer and OTel meters used by a session. They
// come from the global providers, so they are noop until Init enables them.
type Instruments struct {
	tracer   trace.Tracer
	sessions metric.Int64Counter
	frames   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewInstruments creates the session instruments.
func NewInstruments() (*Instruments, error) {
	meter := otel.Meter(InstrumentationName)
	i := &Instruments{tracer: Tracer()}

	var err error
	i.sessions, err = meter.Int64Counter("cubesnap.session.total",
		metric.WithDescription("Snapshot sessions by outcome"),
		metric.WithUnit("{session}"))
	if err != nil {
		return nil, err
	}

	i.frames, err = meter.Int64Counter("cubesnap.frame.total",
		metric.WithDescription("Inbound frames read before the snapshot"),
		metric.WithUnit("{frame}"))
	if err != nil {
		return nil, err
	}

	i.duration, err = meter.Float64Histogram("cubesnap.session.duration",
		metric.WithDescription("Snapshot session duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return i, nil
}

// Tracer returns the session tracer.
func (i *Instruments) Tracer() trace.Tracer { return i.tracer }

// RecordSession records one finished session.
func (i *Instruments) RecordSession(ctx context.Context, outcome string, frames int, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	i.sessions.Add(ctx, 1, attrs)
	i.frames.Add(ctx, int64(frames), attrs)
	i.duration.Record(ctx, d.Seconds(), attrs)
}
