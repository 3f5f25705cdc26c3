package models

import "time"

// ProcessStatus tracks a post through the analysis pipeline
type ProcessStatus string

const (
	StatusPending     ProcessStatus = "pending"
	StatusProcessing  ProcessStatus = "processing"
	StatusCompleted   ProcessStatus = "completed"
	StatusNoPainPoint ProcessStatus = "no_pain_point"
	StatusFailed      ProcessStatus = "failed"
)

// Subreddit is a configured source community
type Subreddit struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	DisplayName    string     `json:"display_name"`
	IsActive       bool       `json:"is_active"`
	FetchFrequency string     `json:"fetch_frequency"` // "hourly", "daily", "weekly"
	PostsLimit     int        `json:"posts_limit"`
	LastFetchedAt  *time.Time `json:"last_fetched_at,omitempty"`
}

// Post is a normalized Reddit post as stored and analyzed
type Post struct {
	ID            string        `json:"id"`
	SubredditID   string        `json:"subreddit_id"`
	SubredditName string        `json:"subreddit_name"`
	RedditID      string        `json:"reddit_id"`
	Title         string        `json:"title"`
	Content       string        `json:"content"`
	Author        string        `json:"author,omitempty"` // empty if deleted/removed
	URL           string        `json:"url"`
	Score         int           `json:"score"`
	NumComments   int           `json:"num_comments"`
	TopComments   []string      `json:"top_comments,omitempty"`
	CreatedAt     time.Time     `json:"reddit_created_at"`
	Status        ProcessStatus `json:"process_status"`
	ProcessedAt   *time.Time    `json:"processed_at,omitempty"`
	StoredAt      time.Time     `json:"created_at"`
}

// PainPoint is a persisted pain-point extraction linked to a post
type PainPoint struct {
	ID              string    `json:"id"`
	PostID          string    `json:"post_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	UserNeed        string    `json:"user_need,omitempty"`
	CurrentSolution string    `json:"current_solution,omitempty"`
	IdealSolution   string    `json:"ideal_solution,omitempty"`
	Competitors     []string  `json:"mentioned_competitors,omitempty"`
	Quotes          []string  `json:"quotes,omitempty"`
	TargetPersonas  []string  `json:"target_personas,omitempty"`
	Insights        []string  `json:"actionable_insights,omitempty"`
	IndustryCode    string    `json:"industry_code"`
	TypeCode        string    `json:"type_code"`
	Confidence      float64   `json:"confidence"`
	TotalScore      float64   `json:"total_score"`
	Scores          Scores    `json:"scores"`
	CreatedAt       time.Time `json:"created_at"`
}

// FetchStats summarizes one run of the fetch job
type FetchStats struct {
	Total   int `json:"total"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// BatchStats summarizes one run of the analysis job
type BatchStats struct {
	Total        int `json:"total"`
	PainPoints   int `json:"pain_points"`
	NoPainPoints int `json:"no_pain_points"`
	Failed       int `json:"failed"`
}
