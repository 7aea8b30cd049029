// Package store persists conversations for the engine.
//
// The Adapter interface is a minimal JSON key-value contract with two
// implementations: MemoryAdapter for tests and ephemeral sessions, and
// FileAdapter for durable one-file-per-key storage. Conversations wraps
// an Adapter with the typed conversation records the engine reads and
// writes at phase boundaries.
package store
