package profile

import (
	"context"
	"fmt"
	"time"
)

// PruneCounts reports how many rows each maintenance step removed.
type PruneCounts struct {
	DuplicateRows int64
	ExpiredRows   int64
	IdleTokens    int64
}

// PruneDuplicates removes all but the most-recently-inserted row per visitor
// among rows older than the retention window. Running it twice in a row
// removes nothing the second time.
func (s *Store) PruneDuplicates(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM profiles
         WHERE created_at < ?
           AND id NOT IN (
               SELECT MAX(id) FROM profiles WHERE created_at < ? GROUP BY visitor_id
           )`,
		cutoff, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("prune duplicate rows: %w", err)
	}
	return res.RowsAffected()
}

// PruneExpired hard-deletes rows older than the long-term retention window.
func (s *Store) PruneExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune expired rows: %w", err)
	}
	return res.RowsAffected()
}

// PruneIdleTokens removes identity tokens not refreshed within the idle window.
func (s *Store) PruneIdleTokens(ctx context.Context, idle time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-idle).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM identity_tokens WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune idle tokens: %w", err)
	}
	return res.RowsAffected()
}

// PruneAll runs every maintenance step with the given windows.
func (s *Store) PruneAll(ctx context.Context, duplicateWindow, expiry, tokenIdle time.Duration) (PruneCounts, error) {
	var counts PruneCounts
	var err error
	if counts.DuplicateRows, err = s.PruneDuplicates(ctx, duplicateWindow); err != nil {
		return counts, err
	}
	if counts.ExpiredRows, err = s.PruneExpired(ctx, expiry); err != nil {
		return counts, err
	}
	if counts.IdleTokens, err = s.PruneIdleTokens(ctx, tokenIdle); err != nil {
		return counts, err
	}
	return counts, nil
}

// Stats aggregates row counts for diagnostics.
func (s *Store) Stats(ctx context.Context) (HealthSummary, error) {
	var health HealthSummary
	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(1) FROM profiles`, &health.Profiles},
		{`SELECT COUNT(DISTINCT visitor_id) FROM profiles`, &health.Visitors},
		{`SELECT COUNT(1) FROM households`, &health.Households},
		{`SELECT COUNT(1) FROM identity_tokens`, &health.Tokens},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return health, fmt.Errorf("store stats: %w", err)
		}
	}
	return health, nil
}

// CheckHealth verifies the database file is reachable and structurally sound.
func (s *Store) CheckHealth(ctx context.Context) error {
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		return fmt.Errorf("ping profile database: %w", err)
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if integrity != "ok" {
		return fmt.Errorf("integrity check reported %q", integrity)
	}
	return nil
}
