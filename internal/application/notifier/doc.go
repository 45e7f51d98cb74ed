// Package notifier implements the application service that sits between the
// HTTP API and the storage and event adapters.
//
// The manager:
//   - Validates Diun payloads and persists them as notifications
//   - Publishes a notification.received event for live subscribers
//   - Renders stored notifications as Homer messages, newest first
//   - Reports storage health
package notifier
