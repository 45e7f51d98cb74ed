package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aescanero/diun2homer/pkg/domain"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	notificationsReceived *prometheus.CounterVec
	notificationsRejected *prometheus.CounterVec
	storageErrors         *prometheus.CounterVec
	messagesServed        prometheus.Counter
	notificationsPruned   prometheus.Counter
	storedNotifications   prometheus.Gauge
	storageHealthy        prometheus.Gauge
	httpRequestDuration   *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector registered on reg.
// A nil reg uses the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		notificationsReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diun2homer_notifications_received_total",
				Help: "Total number of Diun notifications stored",
			},
			[]string{"status"},
		),
		notificationsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diun2homer_notifications_rejected_total",
				Help: "Total number of Diun notifications rejected",
			},
			[]string{"reason"},
		),
		storageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diun2homer_storage_errors_total",
				Help: "Total number of storage operation failures",
			},
			[]string{"operation"},
		),
		messagesServed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "diun2homer_messages_served_total",
				Help: "Total number of Homer messages served",
			},
		),
		notificationsPruned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "diun2homer_notifications_pruned_total",
				Help: "Total number of notifications removed by retention",
			},
		),
		storedNotifications: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "diun2homer_stored_notifications",
				Help: "Number of notifications currently stored",
			},
		),
		storageHealthy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "diun2homer_storage_healthy",
				Help: "Whether the storage backend is reachable (1) or not (0)",
			},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "diun2homer_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "route", "code"},
		),
	}
}

// RecordNotificationReceived counts a stored notification by status.
// Unknown statuses share the "other" series.
func (c *Collector) RecordNotificationReceived(status string) {
	c.notificationsReceived.WithLabelValues(domain.StatusLabel(status)).Inc()
}

// RecordNotificationRejected counts a rejected notification
func (c *Collector) RecordNotificationRejected(reason string) {
	c.notificationsRejected.WithLabelValues(reason).Inc()
}

// RecordStorageError counts a failed storage operation
func (c *Collector) RecordStorageError(operation string) {
	c.storageErrors.WithLabelValues(operation).Inc()
}

// RecordMessagesServed adds to the served Homer messages counter
func (c *Collector) RecordMessagesServed(count int) {
	if count > 0 {
		c.messagesServed.Add(float64(count))
	}
}

// RecordPruned adds to the retention counter
func (c *Collector) RecordPruned(count int) {
	if count > 0 {
		c.notificationsPruned.Add(float64(count))
	}
}

// SetStoredNotifications sets the stored notifications gauge
func (c *Collector) SetStoredNotifications(count int) {
	c.storedNotifications.Set(float64(count))
}

// SetStorageHealthy sets the storage health gauge
func (c *Collector) SetStorageHealthy(healthy bool) {
	if healthy {
		c.storageHealthy.Set(1)
		return
	}
	c.storageHealthy.Set(0)
}

// ObserveHTTPRequest records the duration of an HTTP request
func (c *Collector) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	c.httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(duration.Seconds())
}
