package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertHousehold creates the household on its first sighting and refreshes
// last-seen and the device count on every subsequent profile write touching
// it. The device count is recomputed from distinct visitors, never
// incremented blindly.
func (s *Store) UpsertHousehold(ctx context.Context, householdID string) (*Household, error) {
	if householdID == "" {
		return nil, errors.New("household id is empty")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var deviceCount int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(DISTINCT visitor_id) FROM profiles WHERE household_id = ?`,
		householdID,
	).Scan(&deviceCount)
	if err != nil {
		return nil, fmt.Errorf("count household devices: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO households (id, first_seen, last_seen, device_count)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET last_seen = excluded.last_seen,
                                       device_count = excluded.device_count`,
		householdID, now, now, deviceCount,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert household: %w", err)
	}

	return s.Household(ctx, householdID)
}

// Household fetches one household aggregate.
func (s *Store) Household(ctx context.Context, householdID string) (*Household, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, first_seen, last_seen, device_count FROM households WHERE id = ?`,
		householdID,
	)

	var (
		id           string
		firstSeenRaw string
		lastSeenRaw  string
		deviceCount  int
	)
	if err := row.Scan(&id, &firstSeenRaw, &lastSeenRaw, &deviceCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get household: %w", err)
	}

	h := &Household{ID: id, DeviceCount: deviceCount}
	if t, err := time.Parse(time.RFC3339Nano, firstSeenRaw); err == nil {
		h.FirstSeen = t
	}
	if t, err := time.Parse(time.RFC3339Nano, lastSeenRaw); err == nil {
		h.LastSeen = t
	}
	return h, nil
}
