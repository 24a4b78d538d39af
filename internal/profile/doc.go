// Package profile persists visit profiles, household aggregates, and
// identity-token mappings in SQLite, and provides the indexed candidate
// retrieval used by the matchers.
package profile
