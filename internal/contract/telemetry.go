package contract

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/smartfin/internal/ir"
)

const instrumentationName = "smartfin.contract"

// telemetry holds the tracer and instruments for controller operations.
type telemetry struct {
	tracer trace.Tracer

	opLatency   metric.Float64Histogram
	opTotal     metric.Int64Counter
	opFailures  metric.Int64Counter
	settlements metric.Int64Histogram

	// metricsErr disables metric recording when an instrument could not
	// be created.
	metricsErr error
}

var (
	globalTelemetryOnce sync.Once
	globalTelemetryInst *telemetry
)

// globalTelemetry uses the process-wide otel providers. Instruments from
// the global providers follow a provider installed later.
func globalTelemetry() *telemetry {
	globalTelemetryOnce.Do(func() {
		globalTelemetryInst = newTelemetry(otel.GetTracerProvider(), otel.GetMeterProvider())
	})
	return globalTelemetryInst
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	t := &telemetry{tracer: tp.Tracer(instrumentationName)}

	var errs [4]error
	t.opLatency, errs[0] = meter.Float64Histogram(
		"contract_operation_duration_seconds",
		metric.WithDescription("Duration of contract evaluation events"),
		metric.WithUnit("s"),
	)
	t.opTotal, errs[1] = meter.Int64Counter(
		"contract_operations_total",
		metric.WithDescription("Total contract evaluation events by operation and outcome"),
	)
	t.opFailures, errs[2] = meter.Int64Counter(
		"contract_operation_failures_total",
		metric.WithDescription("Aborted contract evaluation events by error code"),
	)
	t.settlements, errs[3] = meter.Int64Histogram(
		"contract_settlement_delta",
		metric.WithDescription("Net settlement owed to the holder per event"),
	)
	t.metricsErr = errors.Join(errs[:]...)
	return t
}

// startOpSpan creates a span for one evaluation event.
func (t *telemetry) startOpSpan(ctx context.Context, contractID, op string, at int64) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "Controller."+op,
		trace.WithAttributes(
			attribute.String("contract.id", contractID),
			attribute.String("contract.op", op),
			attribute.Int64("contract.time", at),
		),
	)
}

// endOpSpan records the event result on its span.
func endOpSpan(span trace.Span, delta int64, outcome string, err error) {
	span.SetAttributes(
		attribute.Int64("contract.delta", delta),
		attribute.String("contract.outcome", outcome),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
}

// recordOpMetrics records metrics for one evaluation event.
func (t *telemetry) recordOpMetrics(ctx context.Context, op string, duration time.Duration, delta int64, outcome string, settled bool) {
	if t.metricsErr != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	)
	t.opLatency.Record(ctx, duration.Seconds(), attrs)
	t.opTotal.Add(ctx, 1, attrs)
	if outcome != ir.OutcomeOK {
		t.opFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("code", outcome)))
	}
	if settled {
		t.settlements.Record(ctx, delta, metric.WithAttributes(attribute.String("op", op)))
	}
}
