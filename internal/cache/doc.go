// Package cache defines the disk-backed store holding the two feed artifacts:
// the last fetched body and its validator token. The store exposes read/write
// primitives with safe semantics (temp file + rename) and surfaces file info
// (size, modtime) so higher layers can report cache state without touching
// filesystem logic. The feed fetcher depends on this package to survive
// process restarts and to serve stale data when the upstream is unreachable.
package cache
