package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"redditminer/internal/models"
)

// SeedSubreddits inserts any of the named subreddits that are not yet
// configured, with default fetch settings. Existing rows are untouched
func (s *Store) SeedSubreddits(ctx context.Context, names []string) error {
	for _, name := range names {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO subreddits (id, name, display_name)
			VALUES (?, ?, ?)
			ON CONFLICT(name) DO NOTHING
		`, uuid.NewString(), name, name)
		if err != nil {
			return err
		}
	}
	return nil
}

// ActiveSubreddits returns all subreddits enabled for fetching
func (s *Store) ActiveSubreddits(ctx context.Context) ([]models.Subreddit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, display_name, is_active, fetch_frequency, posts_limit, last_fetched_at
		FROM subreddits
		WHERE is_active = 1
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subreddit
	for rows.Next() {
		var sub models.Subreddit
		var displayName sql.NullString
		var lastFetched sql.NullTime

		if err := rows.Scan(&sub.ID, &sub.Name, &displayName, &sub.IsActive,
			&sub.FetchFrequency, &sub.PostsLimit, &lastFetched); err != nil {
			return nil, err
		}
		sub.DisplayName = displayName.String
		if lastFetched.Valid {
			t := lastFetched.Time
			sub.LastFetchedAt = &t
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// TouchSubredditFetched records that a subreddit was just fetched
func (s *Store) TouchSubredditFetched(ctx context.Context, subredditID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE subreddits SET last_fetched_at = ? WHERE id = ?
	`, time.Now().UTC(), subredditID)
	return err
}
