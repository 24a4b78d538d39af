// Package signal defines the static registry of fingerprint signal modules
// and the collection runner that invokes probe capabilities concurrently
// under per-module deadlines.
package signal
