// Package http provides the HTTP API implementation.
//
// The HTTP server exposes endpoints for:
//   - Receiving Diun webhook notifications (GET and POST /diun)
//   - Serving Homer messages (/homer, /homer/latest, /homer/ws)
//   - Listing raw notifications (/api/v1/notifications)
//   - Health checks
//   - Prometheus metrics
package http
