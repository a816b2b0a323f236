package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

const namespace = "creditgateway"

// Metrics holds every collector the service exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Business Metrics
	CampaignsSubmitted  *prometheus.CounterVec
	CampaignsCancelled  prometheus.Counter
	CreditsDeducted     *prometheus.CounterVec
	CreditsRefunded     *prometheus.CounterVec
	AllocationFailures  *prometheus.CounterVec
	Settlements         *prometheus.CounterVec
	WebhooksReceived    *prometheus.CounterVec
	DispatchOutcomes    *prometheus.CounterVec
	AutoChargeRequested prometheus.Counter

	// Database Metrics
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBQueryDuration    *prometheus.HistogramVec
	DBQueriesTotal     *prometheus.CounterVec
	DBConnectionErrors prometheus.Counter

	// Validation Metrics
	ValidationErrors   *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
		HTTPResponseSizeBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   []float64{100, 1000, 10_000, 100_000, 1_000_000},
			},
			[]string{"method", "path", "status_code"},
		),

		CampaignsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "campaigns_submitted_total",
				Help:      "Total number of accepted campaigns",
			},
			[]string{"strategy", "channel"},
		),
		CampaignsCancelled: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "campaigns_cancelled_total",
				Help:      "Total number of cancelled campaigns",
			},
		),
		CreditsDeducted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credits_deducted_total",
				Help:      "Credits deducted from pools",
			},
			[]string{"channel"},
		),
		CreditsRefunded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credits_refunded_total",
				Help:      "Credits returned through recharge pools",
			},
			[]string{"reason"},
		),
		AllocationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "allocation_failures_total",
				Help:      "Capacity and allocation failures",
			},
			[]string{"channel", "reason"},
		),
		Settlements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settlements_total",
				Help:      "Settlement attempts by outcome",
			},
			[]string{"outcome"},
		),
		WebhooksReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhooks_received_total",
				Help:      "Delivery webhooks by outcome",
			},
			[]string{"outcome"},
		),
		DispatchOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_outcomes_total",
				Help:      "Gateway dispatch attempts by outcome",
			},
			[]string{"outcome"},
		),
		AutoChargeRequested: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auto_charge_requested_total",
				Help:      "Auto-charge requests published",
			},
		),

		DBConnectionsInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_in_use",
				Help:      "Number of database connections currently in use",
			},
		),
		DBConnectionsIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_idle",
				Help:      "Number of idle database connections",
			},
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation", "table"},
		),
		DBQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table", "status"},
		),
		DBConnectionErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_connection_errors_total",
				Help:      "Total number of database connection errors",
			},
		),

		ValidationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_errors_total",
				Help:      "Total number of validation errors",
			},
			[]string{"field", "tag"},
		),
		ValidationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Duration of validation operations in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"endpoint"},
		),
	}
}

func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration.Seconds())
	m.HTTPResponseSizeBytes.WithLabelValues(method, path, statusCode).Observe(float64(responseSize))
}

func (m *Metrics) RecordCampaignSubmitted(strategy, channel string) {
	if m == nil {
		return
	}
	m.CampaignsSubmitted.WithLabelValues(strategy, channel).Inc()
}

func (m *Metrics) RecordCampaignCancelled() {
	if m == nil {
		return
	}
	m.CampaignsCancelled.Inc()
}

func (m *Metrics) RecordCreditsDeducted(channel string, credits decimal.Decimal) {
	if m == nil {
		return
	}
	m.CreditsDeducted.WithLabelValues(channel).Add(credits.InexactFloat64())
}

func (m *Metrics) RecordCreditsRefunded(reason string, credits decimal.Decimal) {
	if m == nil {
		return
	}
	m.CreditsRefunded.WithLabelValues(reason).Add(credits.InexactFloat64())
}

func (m *Metrics) RecordAllocationFailure(channel, reason string) {
	if m == nil {
		return
	}
	m.AllocationFailures.WithLabelValues(channel, reason).Inc()
}

func (m *Metrics) RecordSettlement(outcome string) {
	if m == nil {
		return
	}
	m.Settlements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordWebhook(outcome string) {
	if m == nil {
		return
	}
	m.WebhooksReceived.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordDispatch(outcome string) {
	if m == nil {
		return
	}
	m.DispatchOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordAutoChargeRequested() {
	if m == nil {
		return
	}
	m.AutoChargeRequested.Inc()
}

func (m *Metrics) RecordDBQuery(operation, table, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func (m *Metrics) RecordDBConnectionError() {
	if m == nil {
		return
	}
	m.DBConnectionErrors.Inc()
}

func (m *Metrics) RecordValidationError(field, tag string) {
	if m == nil {
		return
	}
	m.ValidationErrors.WithLabelValues(field, tag).Inc()
}

func (m *Metrics) RecordValidationDuration(endpoint string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ValidationDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
