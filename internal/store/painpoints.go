package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"redditminer/internal/models"
)

// InsertPainPoint persists one pain-point extraction and returns its ID
func (s *Store) InsertPainPoint(ctx context.Context, p *models.PainPoint) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	reasons, err := json.Marshal(map[string]models.Score{
		"urgency":          p.Scores.Urgency,
		"frequency":        p.Scores.Frequency,
		"market_size":      p.Scores.MarketSize,
		"monetization":     p.Scores.Monetization,
		"barrier_to_entry": p.Scores.BarrierToEntry,
	})
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pain_points (
			id, post_id, title, description, user_need, current_solution,
			ideal_solution, mentioned_competitors, quotes, target_personas,
			actionable_insights, industry_code, type_code, confidence,
			total_score, score_urgency, score_frequency, score_market_size,
			score_monetization, score_barrier_to_entry, dimension_reasons,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, p.PostID, p.Title, p.Description, nullable(p.UserNeed), nullable(p.CurrentSolution),
		nullable(p.IdealSolution), jsonList(p.Competitors), jsonList(p.Quotes), jsonList(p.TargetPersonas),
		jsonList(p.Insights), p.IndustryCode, p.TypeCode, p.Confidence,
		p.TotalScore, p.Scores.Urgency.Score, p.Scores.Frequency.Score, p.Scores.MarketSize.Score,
		p.Scores.Monetization.Score, p.Scores.BarrierToEntry.Score, string(reasons),
		now)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetOrCreateTag returns the ID of the named tag, creating it if new
// and bumping its usage count if not
func (s *Store) GetOrCreateTag(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	if err == nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE tags SET usage_count = usage_count + 1 WHERE id = ?`, id)
		return id, err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id = uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, usage_count, created_at) VALUES (?, ?, 1, ?)
	`, id, name, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

// LinkPainPointTag associates a tag with a pain point, idempotently
func (s *Store) LinkPainPointTag(ctx context.Context, painPointID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO pain_point_tags (pain_point_id, tag_id) VALUES (?, ?)
	`, painPointID, tagID)
	return err
}

// PainPointByPost fetches the pain point stored for a post, if any
func (s *Store) PainPointByPost(ctx context.Context, postID string) (*models.PainPoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, post_id, title, description, industry_code, type_code,
			confidence, total_score,
			score_urgency, score_frequency, score_market_size,
			score_monetization, score_barrier_to_entry, created_at
		FROM pain_points WHERE post_id = ?
	`, postID)

	var p models.PainPoint
	err := row.Scan(&p.ID, &p.PostID, &p.Title, &p.Description, &p.IndustryCode, &p.TypeCode,
		&p.Confidence, &p.TotalScore,
		&p.Scores.Urgency.Score, &p.Scores.Frequency.Score, &p.Scores.MarketSize.Score,
		&p.Scores.Monetization.Score, &p.Scores.BarrierToEntry.Score, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// jsonList serializes a string list, mapping empty lists to NULL
func jsonList(items []string) any {
	if len(items) == 0 {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return string(data)
}
