package store

import (
	"context"
	"database/sql"
	"errors"

	"redditminer/internal/reddit"
)

// LoadToken restores the cached token record for a client, or nil if
// none has been saved
func (s *Store) LoadToken(ctx context.Context, clientID string) (*reddit.CachedToken, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT access_token, expires_in, expires_at FROM token_cache WHERE client_id = ?
	`, clientID)

	var tok reddit.CachedToken
	err := row.Scan(&tok.AccessToken, &tok.ExpiresIn, &tok.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// SaveToken upserts the cached token record for a client
func (s *Store) SaveToken(ctx context.Context, clientID string, tok *reddit.CachedToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_cache (client_id, access_token, expires_in, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			access_token = excluded.access_token,
			expires_in = excluded.expires_in,
			expires_at = excluded.expires_at
	`, clientID, tok.AccessToken, tok.ExpiresIn, tok.ExpiresAt)
	return err
}
