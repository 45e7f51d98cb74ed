// Package workers implements the background loops that run next to the API.
//
// The health monitor periodically pings the notification store, records
// storage gauges and notifies listeners (such as the gRPC health service)
// of the current status.
//
// The janitor applies the retention policy: it drops notifications older
// than the maximum age and trims the store to the maximum event count.
package workers
