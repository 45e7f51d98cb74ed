// Package ports defines the interfaces the application layer depends on.
// Adapters under pkg/adapters implement them.
package ports
