package profile

import (
	"context"
	"fmt"
	"strings"
)

// CandidateQuery names the exact-match keys available for indexed retrieval.
type CandidateQuery struct {
	DeviceID      *string
	IPSubnet      *string
	FingerprintID *string
	Limit         int
}

const defaultCandidateLimit = 500

// Candidates retrieves stored profiles worth scoring against an incoming
// visit. One indexed lookup unions matches on device id, ip subnet, and
// fingerprint id (whichever keys are present). When no key is present or the
// indexed lookup is empty, a capped window of the most-recently-active row
// per distinct visitor preserves recall for novel signal combinations.
func (s *Store) Candidates(ctx context.Context, q CandidateQuery) ([]*Profile, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	var clauses []string
	var args []any
	if q.DeviceID != nil && *q.DeviceID != "" {
		clauses = append(clauses, "device_id = ?")
		args = append(args, *q.DeviceID)
	}
	if q.IPSubnet != nil && *q.IPSubnet != "" {
		clauses = append(clauses, "ip_subnet = ?")
		args = append(args, *q.IPSubnet)
	}
	if q.FingerprintID != nil && *q.FingerprintID != "" {
		clauses = append(clauses, "fingerprint_id = ?")
		args = append(args, *q.FingerprintID)
	}

	if len(clauses) > 0 {
		query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` +
			strings.Join(clauses, " OR ") + ` ORDER BY last_active DESC LIMIT ?`
		args = append(args, limit)
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("indexed candidate lookup: %w", err)
		}
		defer rows.Close()
		profiles, err := collectProfiles(rows)
		if err != nil {
			return nil, err
		}
		if len(profiles) > 0 {
			return profiles, nil
		}
	}

	return s.fallbackCandidates(ctx, limit)
}

// fallbackCandidates returns the latest row per visitor, most recently
// active first, capped to bound the scan.
func (s *Store) fallbackCandidates(ctx context.Context, limit int) ([]*Profile, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+profileColumns+` FROM profiles
         WHERE id IN (SELECT MAX(id) FROM profiles GROUP BY visitor_id)
         ORDER BY last_active DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fallback candidate scan: %w", err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// HouseholdMembers returns the latest profile row of every visitor in a
// household, most recently active first.
func (s *Store) HouseholdMembers(ctx context.Context, householdID string, limit int) ([]*Profile, error) {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+profileColumns+` FROM profiles
         WHERE household_id = ?
           AND id IN (SELECT MAX(id) FROM profiles WHERE household_id = ? GROUP BY visitor_id)
         ORDER BY last_active DESC LIMIT ?`,
		householdID, householdID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("household members: %w", err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}
