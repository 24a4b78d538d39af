// Package persistid resolves and maintains the persistent visitor identifier
// across redundant storage backends. Resolution is a majority vote over the
// values the backends hold; respawn writes the winning value back so that
// clearing any single backend never loses the identifier.
package persistid
