package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Swind/go-periodic-task/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	invocationDurationSeconds *prom.HistogramVec
	failureTotal              *prom.CounterVec
	droppedTicksTotal         *prom.CounterVec
	stateTransitionsTotal     *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "periodic"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "invocation_duration_seconds",
		Help:      "Routine invocation duration in seconds.",
		Buckets:   buckets,
	}, []string{"task"})
	failureVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "invocation_failures_total",
		Help:      "Total number of failed routine invocations.",
	}, []string{"task", "panicked"})
	droppedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_ticks_total",
		Help:      "Total number of ticks skipped while catch-up was disabled.",
	}, []string{"task"})
	stateVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "state_transitions_total",
		Help:      "Total number of lifecycle transitions by target state.",
	}, []string{"task", "state"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if failureVec, err = registerCollector(reg, failureVec); err != nil {
		return nil, err
	}
	if droppedVec, err = registerCollector(reg, droppedVec); err != nil {
		return nil, err
	}
	if stateVec, err = registerCollector(reg, stateVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		invocationDurationSeconds: durationVec,
		failureTotal:              failureVec,
		droppedTicksTotal:         droppedVec,
		stateTransitionsTotal:     stateVec,
	}, nil
}

// RecordInvocation records routine execution duration.
func (m *MetricsExporter) RecordInvocation(taskName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.invocationDurationSeconds.WithLabelValues(normalizeLabel(taskName, "unknown")).Observe(duration.Seconds())
}

// RecordFailure records a failed invocation.
func (m *MetricsExporter) RecordFailure(taskName string, panicked bool) {
	if m == nil {
		return
	}
	m.failureTotal.WithLabelValues(normalizeLabel(taskName, "unknown"), strconv.FormatBool(panicked)).Inc()
}

// RecordDroppedTicks records skipped ticks.
func (m *MetricsExporter) RecordDroppedTicks(taskName string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedTicksTotal.WithLabelValues(normalizeLabel(taskName, "unknown")).Add(float64(n))
}

// RecordStateChange records lifecycle transitions.
func (m *MetricsExporter) RecordStateChange(taskName string, state core.State) {
	if m == nil {
		return
	}
	m.stateTransitionsTotal.WithLabelValues(normalizeLabel(taskName, "unknown"), state.String()).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
