// Package feed implements conditional retrieval of the SOFA macOS data feed.
// A single Fetch performs exactly one upstream GET, carrying the cached ETag
// as an If-None-Match precondition, and resolves to one of four sources:
// fresh network body, unchanged cached body (304), stale cached body after an
// upstream failure, or nothing at all. Staleness fallback is the retry
// strategy; the next invocation simply tries again.
package feed
