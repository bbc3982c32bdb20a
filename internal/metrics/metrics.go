package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	FeedEvents        *prometheus.CounterVec
	Refetches         *prometheus.CounterVec
	Mutations         *prometheus.CounterVec
	AutosaveFlushes   *prometheus.CounterVec
	AuditEntries      *prometheus.CounterVec
	MessagingRequests *prometheus.CounterVec
	MessagingLatency  *prometheus.HistogramVec
	WebhookEvents     *prometheus.CounterVec
	Errors            *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			FeedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_events_total",
				Help:      "Total change-feed events received by table and kind.",
			}, []string{"table", "kind"}),
			Refetches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_refetches_total",
				Help:      "Total full refetches per table by outcome.",
			}, []string{"table", "outcome"}),
			Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Total optimistic mutations by entity and outcome.",
			}, []string{"entity", "outcome"}),
			AutosaveFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autosave_flushes_total",
				Help:      "Total autosave flushes by outcome.",
			}, []string{"outcome"}),
			AuditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_entries_total",
				Help:      "Total audit trail entries written by change type.",
			}, []string{"change_type"}),
			MessagingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messaging_requests_total",
				Help:      "Total messaging service requests by endpoint and status.",
			}, []string{"endpoint", "status"}),
			MessagingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "messaging_request_duration_seconds",
				Help:      "Latency distribution for messaging service requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint", "status"}),
			WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Total inbound messaging webhook events by type.",
			}, []string{"type"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.FeedEvents,
			metricsInstance.Refetches,
			metricsInstance.Mutations,
			metricsInstance.AutosaveFlushes,
			metricsInstance.AuditEntries,
			metricsInstance.MessagingRequests,
			metricsInstance.MessagingLatency,
			metricsInstance.WebhookEvents,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
