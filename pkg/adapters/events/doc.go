// Package events provides event bus implementations.
//
// Implementations:
//   - redis: Redis Streams, one consumer group per instance so every replica
//     sees every event
//   - memory: In-process fan-out
package events
