// Package registry holds the in-memory session-to-topic mapping.
//
// The mapping is rebuilt from authoritative sources on every process start
// (see the relay's reconciler) and is intentionally not persisted. Both
// directions are indexed for O(1) lookup.
package registry
