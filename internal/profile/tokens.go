package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PutToken stores or refreshes an identity token mapping. The token is a
// server-held persistence channel independent of client storage.
func (s *Store) PutToken(ctx context.Context, token, visitorID string) error {
	if token == "" || visitorID == "" {
		return errors.New("token and visitor id are required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO identity_tokens (token, visitor_id, updated_at)
         VALUES (?, ?, ?)
         ON CONFLICT(token) DO UPDATE SET visitor_id = excluded.visitor_id,
                                          updated_at = excluded.updated_at`,
		token, visitorID, now,
	)
	if err != nil {
		return fmt.Errorf("put token: %w", err)
	}
	return nil
}

// TokenVisitor resolves a token to its visitor id and refreshes the token's
// idle clock. Returns empty when the token is unknown.
func (s *Store) TokenVisitor(ctx context.Context, token string) (string, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT visitor_id FROM identity_tokens WHERE token = ?`,
		token,
	)
	var visitorID string
	if err := row.Scan(&visitorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("token lookup: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, `UPDATE identity_tokens SET updated_at = ? WHERE token = ?`, now, token); err != nil {
		return "", fmt.Errorf("touch token: %w", err)
	}
	return visitorID, nil
}
