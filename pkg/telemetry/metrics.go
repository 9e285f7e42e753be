// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mbrtn/switchyard/pkg/errors"
)

// RouterMetrics tracks routing decisions and forwarding outcomes for
// production monitoring. A nil *RouterMetrics is safe to use.
type RouterMetrics struct {
	// requestCounter counts processed requests by outcome and agent.
	requestCounter metric.Int64Counter

	// forwardErrorCounter counts forwarding failures by error code.
	forwardErrorCounter metric.Int64Counter

	// pollAttemptsHistogram records poll attempts spent per forward.
	pollAttemptsHistogram metric.Int64Histogram

	// registrySizeGauge tracks the number of registered agents.
	registrySizeGauge metric.Int64Gauge

	// confidenceHistogram records the confidence of routing decisions.
	confidenceHistogram metric.Float64Histogram
}

// NewRouterMetrics creates a router metrics tracker with OTel meters.
func NewRouterMetrics() (*RouterMetrics, error) {
	meter := otel.Meter("switchyard/router")

	requestCounter, err := meter.Int64Counter(
		"switchyard.requests.total",
		metric.WithDescription("Processed routing requests by outcome and selected agent"),
	)
	if err != nil {
		return nil, err
	}

	forwardErrorCounter, err := meter.Int64Counter(
		"switchyard.forward.errors",
		metric.WithDescription("Forwarding failures by error code"),
	)
	if err != nil {
		return nil, err
	}

	pollAttemptsHistogram, err := meter.Int64Histogram(
		"switchyard.forward.poll_attempts",
		metric.WithDescription("Poll attempts spent per forwarded task"),
	)
	if err != nil {
		return nil, err
	}

	registrySizeGauge, err := meter.Int64Gauge(
		"switchyard.registry.size",
		metric.WithDescription("Number of registered agents"),
	)
	if err != nil {
		return nil, err
	}

	confidenceHistogram, err := meter.Float64Histogram(
		"switchyard.route.confidence",
		metric.WithDescription("Confidence of routing decisions"),
	)
	if err != nil {
		return nil, err
	}

	return &RouterMetrics{
		requestCounter:        requestCounter,
		forwardErrorCounter:   forwardErrorCounter,
		pollAttemptsHistogram: pollAttemptsHistogram,
		registrySizeGauge:     registrySizeGauge,
		confidenceHistogram:   confidenceHistogram,
	}, nil
}

// RecordRequest counts one processed request.
func (m *RouterMetrics) RecordRequest(ctx context.Context, agentID, outcome string) {
	if m == nil {
		return
	}
	m.requestCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("agent", agentID),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordConfidence records the confidence of one routing decision.
func (m *RouterMetrics) RecordConfidence(ctx context.Context, agentID string, confidence float64, fallback bool) {
	if m == nil {
		return
	}
	m.confidenceHistogram.Record(ctx, confidence,
		metric.WithAttributes(
			attribute.String("agent", agentID),
			attribute.Bool("fallback", fallback),
		),
	)
}

// RecordForwardError counts one forwarding failure by error code.
func (m *RouterMetrics) RecordForwardError(ctx context.Context, endpoint string, err error) {
	if m == nil || err == nil {
		return
	}
	m.forwardErrorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("endpoint", endpoint),
			attribute.String("error.code", string(errors.CodeOf(err))),
		),
	)
}

// RecordPollAttempts records how many poll attempts a forward consumed.
func (m *RouterMetrics) RecordPollAttempts(ctx context.Context, attempts int) {
	if m == nil {
		return
	}
	m.pollAttemptsHistogram.Record(ctx, int64(attempts))
}

// RecordRegistrySize records the current number of registered agents.
func (m *RouterMetrics) RecordRegistrySize(ctx context.Context, size int) {
	if m == nil {
		return
	}
	m.registrySizeGauge.Record(ctx, int64(size))
}
