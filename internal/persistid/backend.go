package persistid

import (
	"context"
	"errors"
)

// ErrAbsent is returned by Backend.Read when the backend holds no value.
var ErrAbsent = errors.New("identifier absent")

// Backend is one redundant storage channel for the visitor identifier.
// Implementations must treat Read and Write as best effort; the manager
// converts every failure into an absent vote rather than aborting.
type Backend interface {
	// Name identifies the backend in logs and respawn reports.
	Name() string
	// Available reports whether the channel can be used at all. Unavailable
	// backends are skipped by both resolution and respawn.
	Available() bool
	// Read returns the stored identifier, or ErrAbsent when none is stored.
	Read(ctx context.Context) (string, error)
	// Write stores the identifier, replacing any previous value.
	Write(ctx context.Context, value string) error
}
