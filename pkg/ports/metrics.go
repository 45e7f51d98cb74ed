package ports

import "time"

// MetricsCollector records service metrics.
type MetricsCollector interface {
	RecordNotificationReceived(status string)
	RecordNotificationRejected(reason string)
	RecordStorageError(operation string)
	RecordMessagesServed(count int)
	RecordPruned(count int)
	SetStoredNotifications(count int)
	SetStorageHealthy(healthy bool)
	ObserveHTTPRequest(method, route string, code int, duration time.Duration)
}

// NopMetrics discards everything. Useful in tests and tools.
type NopMetrics struct{}

func (NopMetrics) RecordNotificationReceived(string) {}
func (NopMetrics) RecordNotificationRejected(string) {}
func (NopMetrics) RecordStorageError(string) {}
func (NopMetrics) RecordMessagesServed(int) {}
func (NopMetrics) RecordPruned(int) {}
func (NopMetrics) SetStoredNotifications(int) {}
func (NopMetrics) SetStorageHealthy(bool) {}
func (NopMetrics) ObserveHTTPRequest(string, string, int, time.Duration) {}
