// Package match implements the probabilistic same-device matcher and the
// weaker household-level cross-device matcher. Both score an incoming visit
// against stored profiles using fixed weight tables that sum to 1.0, with
// fuzzy tolerances for drifting numeric signals.
package match
