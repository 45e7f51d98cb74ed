// Package storage provides notification storage implementations.
//
// Implementations:
//   - sqlite: pure Go SQLite, the default, compatible with the events table
//     written by earlier releases
//   - redis: Redis hash + sorted set, for shared or ephemeral deployments
//   - memory: In-memory for testing
//
// storagetest holds the behaviour every implementation must satisfy.
package storage
