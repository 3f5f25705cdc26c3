package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"redditminer/internal/models"
)

// PostExists checks whether a post with this Reddit ID is already stored
func (s *Store) PostExists(ctx context.Context, redditID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE reddit_id = ?)`, redditID).Scan(&exists)
	return exists, err
}

// InsertPost stores a newly fetched post in pending state and returns its ID
func (s *Store) InsertPost(ctx context.Context, p *models.Post) (string, error) {
	id := uuid.NewString()
	commentsJSON, err := json.Marshal(p.TopComments)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO posts (id, subreddit_id, reddit_id, title, content, author,
			url, score, num_comments, top_comments, reddit_created_at,
			process_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, p.SubredditID, p.RedditID, p.Title, p.Content, nullable(p.Author),
		p.URL, p.Score, p.NumComments, string(commentsJSON), p.CreatedAt,
		string(models.StatusPending), time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdatePost refreshes engagement metrics and content of a known post
func (s *Store) UpdatePost(ctx context.Context, redditID string, score, numComments int, content string, topComments []string) error {
	commentsJSON, err := json.Marshal(topComments)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE posts
		SET score = ?, num_comments = ?, content = ?, top_comments = ?
		WHERE reddit_id = ?
	`, score, numComments, content, string(commentsJSON), redditID)
	return err
}

// PendingPosts returns up to limit posts awaiting analysis, highest
// engagement first, oldest first among equals
func (s *Store) PendingPosts(ctx context.Context, limit int) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.subreddit_id, p.reddit_id, p.title, p.content, p.author,
			p.url, p.score, p.num_comments, p.top_comments, p.reddit_created_at,
			p.process_status, p.processed_at, p.created_at,
			COALESCE(s.name, '') AS subreddit_name
		FROM posts p
		LEFT JOIN subreddits s ON p.subreddit_id = s.id
		WHERE p.process_status = ?
		ORDER BY p.score DESC, p.reddit_created_at ASC
		LIMIT ?
	`, string(models.StatusPending), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// SetPostStatus advances a post's processing state and stamps the time
func (s *Store) SetPostStatus(ctx context.Context, postID string, status models.ProcessStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE posts SET process_status = ?, processed_at = ? WHERE id = ?
	`, string(status), time.Now().UTC(), postID)
	return err
}

// PostStatus reads back a post's current processing state
func (s *Store) PostStatus(ctx context.Context, postID string) (models.ProcessStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT process_status FROM posts WHERE id = ?`, postID).Scan(&status)
	return models.ProcessStatus(status), err
}

func scanPost(rows *sql.Rows) (models.Post, error) {
	var p models.Post
	var content, author, commentsJSON sql.NullString
	var processedAt sql.NullTime
	var status string

	err := rows.Scan(&p.ID, &p.SubredditID, &p.RedditID, &p.Title, &content, &author,
		&p.URL, &p.Score, &p.NumComments, &commentsJSON, &p.CreatedAt,
		&status, &processedAt, &p.StoredAt, &p.SubredditName)
	if err != nil {
		return p, err
	}

	p.Content = content.String
	p.Author = author.String
	p.Status = models.ProcessStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		p.ProcessedAt = &t
	}
	if commentsJSON.Valid && commentsJSON.String != "" {
		json.Unmarshal([]byte(commentsJSON.String), &p.TopComments)
	}
	return p, nil
}

// nullable maps an empty string to SQL NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
