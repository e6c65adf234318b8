// Package session provides Store implementations for persisting gateway
// conversation history.
//
// Available stores:
//   - [MemoryStore] keeps sessions in memory (useful for testing).
//   - [FileStore] persists sessions as JSON files on disk.
//   - [RedisStore] persists sessions in Redis with an optional TTL.
package session
