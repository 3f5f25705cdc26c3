package store

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a Store with a SQLite backend at dbPath
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subreddits (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		display_name TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		fetch_frequency TEXT NOT NULL DEFAULT 'daily',
		posts_limit INTEGER NOT NULL DEFAULT 100,
		last_fetched_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		subreddit_id TEXT NOT NULL REFERENCES subreddits(id),
		reddit_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		content TEXT,
		author TEXT,
		url TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		num_comments INTEGER NOT NULL DEFAULT 0,
		top_comments TEXT,
		reddit_created_at DATETIME,
		process_status TEXT NOT NULL DEFAULT 'pending',
		processed_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pain_points (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL REFERENCES posts(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		user_need TEXT,
		current_solution TEXT,
		ideal_solution TEXT,
		mentioned_competitors TEXT,
		quotes TEXT,
		target_personas TEXT,
		actionable_insights TEXT,
		industry_code TEXT,
		type_code TEXT,
		confidence REAL NOT NULL DEFAULT 0,
		total_score REAL NOT NULL DEFAULT 0,
		score_urgency INTEGER NOT NULL DEFAULT 0,
		score_frequency INTEGER NOT NULL DEFAULT 0,
		score_market_size INTEGER NOT NULL DEFAULT 0,
		score_monetization INTEGER NOT NULL DEFAULT 0,
		score_barrier_to_entry INTEGER NOT NULL DEFAULT 0,
		dimension_reasons TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pain_point_tags (
		pain_point_id TEXT NOT NULL REFERENCES pain_points(id),
		tag_id TEXT NOT NULL REFERENCES tags(id),
		PRIMARY KEY (pain_point_id, tag_id)
	);

	CREATE TABLE IF NOT EXISTS token_cache (
		client_id TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		expires_in INTEGER NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(process_status);
	CREATE INDEX IF NOT EXISTS idx_posts_score ON posts(score);
	CREATE INDEX IF NOT EXISTS idx_pain_points_post ON pain_points(post_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
