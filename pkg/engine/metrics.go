// pkg/engine/metrics.go
package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/opd-ai/go-racer/pkg/logging"
)

// instruments are the session's OpenTelemetry counters. They report to the
// global meter provider, which is a no-op until one is installed.
type instruments struct {
	ticks       metric.Int64Counter
	checkpoints metric.Int64Counter
	laps        metric.Int64Counter
	collisions  metric.Int64Counter
	boosts      metric.Int64Counter
	lapTime     metric.Float64Histogram
}

func newInstruments(meterName string, log *logging.Logger) *instruments {
	if meterName == "" {
		inst, _ := buildInstruments(noop.NewMeterProvider().Meter(""))
		return inst
	}
	inst, err := buildInstruments(otel.Meter(meterName))
	if err != nil {
		log.Warn(context.Background(), "metrics disabled", "error", err.Error())
		inst, _ = buildInstruments(noop.NewMeterProvider().Meter(""))
	}
	return inst
}

func buildInstruments(m metric.Meter) (*instruments, error) {
	var (
		inst instruments
		err  error
	)
	inst.ticks, err = m.Int64Counter(
		"racer.session.ticks",
		metric.WithDescription("Total simulation ticks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	inst.checkpoints, err = m.Int64Counter(
		"racer.checkpoints.collected",
		metric.WithDescription("Total checkpoints collected in order"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating checkpoint counter: %w", err)
	}
	inst.laps, err = m.Int64Counter(
		"racer.laps.completed",
		metric.WithDescription("Total laps completed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lap counter: %w", err)
	}
	inst.collisions, err = m.Int64Counter(
		"racer.collisions",
		metric.WithDescription("Total collisions by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating collision counter: %w", err)
	}
	inst.boosts, err = m.Int64Counter(
		"racer.boosts.activated",
		metric.WithDescription("Total boosts that finished warming up"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating boost counter: %w", err)
	}
	inst.lapTime, err = m.Float64Histogram(
		"racer.lap.duration",
		metric.WithDescription("Lap times"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lap time histogram: %w", err)
	}
	return &inst, nil
}

func (i *instruments) recordCollision(ctx context.Context, kind string) {
	i.collisions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (i *instruments) recordLap(ctx context.Context, seconds float64) {
	i.laps.Add(ctx, 1)
	i.lapTime.Record(ctx, seconds)
}
