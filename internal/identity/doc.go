// Package identity composes collection-run output into tiered, entropy-
// weighted identifiers. Each tier selects a subset of signal modules, ordered
// from most cross-engine-stable to most browser-specific, and hashes a
// canonical serialization of their readings into a fixed-width identifier.
package identity
