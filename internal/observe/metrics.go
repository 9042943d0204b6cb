// Package observe provides observability primitives for turnabout:
// OpenTelemetry metrics for the exchange engine, tracing helpers, a
// trace-aware logger, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported
// for Prometheus scraping via [Setup]. [DefaultMetrics] returns a
// package-level instance bound to the global provider; tests should use
// [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all turnabout metrics.
const meterName = "github.com/MrWong99/turnabout"

// Metrics holds all OpenTelemetry instruments for the application. The
// underlying OTel types are safe for concurrent use.
type Metrics struct {
	// ExchangesOpened counts sessions opened. Attribute "mode" is
	// "specific" or "random".
	ExchangesOpened metric.Int64Counter

	// ExchangesReleased counts sessions finalised by the receiver.
	ExchangesReleased metric.Int64Counter

	// FragmentsSubmitted counts accepted answer fragments by "kind".
	FragmentsSubmitted metric.Int64Counter

	// RequestsRejected counts rejected requests by "op" and "reason".
	RequestsRejected metric.Int64Counter

	// DeliveryFailures counts effects that could not reach their recipient,
	// by "effect".
	DeliveryFailures metric.Int64Counter

	// PersistenceFailures counts transitions dropped because the state could
	// not be written, by "op".
	PersistenceFailures metric.Int64Counter

	// LedgerResets counts completion ledger resets.
	LedgerResets metric.Int64Counter

	// ExchangeDuration tracks the time from opening a session to its release.
	ExchangeDuration metric.Float64Histogram

	// ActiveExchanges is 1 while a session is open and 0 otherwise.
	ActiveExchanges metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time by "method"
	// and "path".
	HTTPRequestDuration metric.Float64Histogram
}

// exchangeBuckets are histogram boundaries in seconds. Answers arrive after
// minutes to days, not milliseconds.
var exchangeBuckets = []float64{
	60, 300, 900, 3600, 4 * 3600, 12 * 3600, 24 * 3600, 3 * 24 * 3600, 7 * 24 * 3600,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ExchangesOpened, err = m.Int64Counter("turnabout.exchanges.opened",
		metric.WithDescription("Question sessions opened, by selection mode."),
	); err != nil {
		return nil, err
	}
	if met.ExchangesReleased, err = m.Int64Counter("turnabout.exchanges.released",
		metric.WithDescription("Question sessions released to the asker."),
	); err != nil {
		return nil, err
	}
	if met.FragmentsSubmitted, err = m.Int64Counter("turnabout.fragments.submitted",
		metric.WithDescription("Answer fragments accepted, by kind."),
	); err != nil {
		return nil, err
	}
	if met.RequestsRejected, err = m.Int64Counter("turnabout.requests.rejected",
		metric.WithDescription("Requests rejected by the exchange engine, by operation and reason."),
	); err != nil {
		return nil, err
	}
	if met.DeliveryFailures, err = m.Int64Counter("turnabout.deliveries.failed",
		metric.WithDescription("Outbound effects that could not be delivered, by effect kind."),
	); err != nil {
		return nil, err
	}
	if met.PersistenceFailures, err = m.Int64Counter("turnabout.persistence.failures",
		metric.WithDescription("Transitions dropped because the state could not be persisted."),
	); err != nil {
		return nil, err
	}
	if met.LedgerResets, err = m.Int64Counter("turnabout.ledger.resets",
		metric.WithDescription("Completion ledger resets."),
	); err != nil {
		return nil, err
	}
	if met.ExchangeDuration, err = m.Float64Histogram("turnabout.exchange.duration",
		metric.WithDescription("Time from opening a question session to releasing its answers."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(exchangeBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveExchanges, err = m.Int64UpDownCounter("turnabout.exchange.active",
		metric.WithDescription("Number of open question sessions (0 or 1)."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("turnabout.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails, which does not happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordExchangeOpened counts an opened session and marks it active.
func (m *Metrics) RecordExchangeOpened(ctx context.Context, mode string) {
	m.ExchangesOpened.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	m.ActiveExchanges.Add(ctx, 1)
}

// RecordExchangeReleased counts a released session, records how long it was
// open and marks it inactive. A zero elapsed skips the histogram.
func (m *Metrics) RecordExchangeReleased(ctx context.Context, elapsed time.Duration) {
	m.ExchangesReleased.Add(ctx, 1)
	m.ActiveExchanges.Add(ctx, -1)
	if elapsed > 0 {
		m.ExchangeDuration.Record(ctx, elapsed.Seconds())
	}
}

// RecordFragment counts an accepted fragment.
func (m *Metrics) RecordFragment(ctx context.Context, kind string) {
	m.FragmentsSubmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordRejection counts a rejected request.
func (m *Metrics) RecordRejection(ctx context.Context, op, reason string) {
	m.RequestsRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("reason", reason),
	))
}

// RecordDeliveryFailure counts an undeliverable effect.
func (m *Metrics) RecordDeliveryFailure(ctx context.Context, effect string) {
	m.DeliveryFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("effect", effect)))
}

// RecordPersistenceFailure counts a transition lost to a store error.
func (m *Metrics) RecordPersistenceFailure(ctx context.Context, op string) {
	m.PersistenceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RecordLedgerReset counts a ledger reset.
func (m *Metrics) RecordLedgerReset(ctx context.Context) {
	m.LedgerResets.Add(ctx, 1)
}
