// Package server hosts the Fiber HTTP query surface for compatibility
// evaluations. It wires request middleware (request IDs, panic recovery,
// structured completion logs) around the fetch → evaluate → assemble
// pipeline and exposes a diagnostics route reporting cache state. The
// pipeline itself lives in feed/compat; this package only adapts it to
// HTTP so the row schema stays identical to the CLI one-shot output.
package server
