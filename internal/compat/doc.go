// Package compat evaluates whether an installed macOS version is the newest
// one a hardware model supports, according to the SOFA data feed. Evaluation
// is a pure function of (feed body, model identifier) with no retained state;
// every failure mode resolves to a well-formed result row so the output
// schema stays stable regardless of upstream availability.
//
// Version comparison is exact string equality on version identifiers, not
// semantic comparison. This mirrors the upstream feed contract on purpose:
// SupportedOS[0] is published as the newest compatible version, so equality
// against OSVersions[0].OSVersion is the intended check.
package compat
