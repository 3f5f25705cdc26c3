package reddit

import (
	"context"
	"fmt"
	"log/slog"

	"redditminer/internal/models"
)

// FetcherStore is the storage surface the fetch job needs
type FetcherStore interface {
	ActiveSubreddits(ctx context.Context) ([]models.Subreddit, error)
	PostExists(ctx context.Context, redditID string) (bool, error)
	InsertPost(ctx context.Context, post *models.Post) (string, error)
	UpdatePost(ctx context.Context, redditID string, score, numComments int, content string, topComments []string) error
	TouchSubredditFetched(ctx context.Context, subredditID string) error
}

// Fetcher runs the fetch job: pull ranked listings for every active
// subreddit and upsert normalized posts into storage
type Fetcher struct {
	client *Client
	store  FetcherStore
	logger *slog.Logger
}

// NewFetcher creates a fetcher over the given client and store
func NewFetcher(client *Client, store FetcherStore, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, store: store, logger: logger}
}

// Run fetches all active subreddits. One subreddit's failure is counted
// and the rest continue; token unavailability stops the run early
func (f *Fetcher) Run(ctx context.Context) (models.FetchStats, error) {
	f.logger.Info("starting fetch run")

	var stats models.FetchStats

	if !f.client.IsAvailable() {
		f.logger.Warn("reddit client unavailable (token cooldown), skipping fetch run")
		return stats, nil
	}

	subreddits, err := f.store.ActiveSubreddits(ctx)
	if err != nil {
		return stats, fmt.Errorf("list active subreddits: %w", err)
	}
	f.logger.Info("found active subreddits", "count", len(subreddits))

	for _, sub := range subreddits {
		if !f.client.IsAvailable() {
			f.logger.Warn("reddit client became unavailable, stopping fetch run")
			break
		}
		subStats, err := f.FetchSubreddit(ctx, sub)
		if err != nil {
			f.logger.Error("subreddit fetch failed", "subreddit", sub.Name, "error", err)
			stats.Errors++
			continue
		}
		stats.Total += subStats.Total
		stats.New += subStats.New
		stats.Updated += subStats.Updated
		stats.Skipped += subStats.Skipped
	}

	f.logger.Info("fetch run complete",
		"total", stats.Total, "new", stats.New, "updated", stats.Updated,
		"skipped", stats.Skipped, "errors", stats.Errors)
	return stats, nil
}

// FetchSubreddit pulls one subreddit's top listing and stores the posts
func (f *Fetcher) FetchSubreddit(ctx context.Context, sub models.Subreddit) (models.FetchStats, error) {
	f.logger.Info("fetching subreddit",
		"subreddit", sub.Name, "limit", sub.PostsLimit, "frequency", sub.FetchFrequency)

	opts := ListOptions{
		Window:        windowForFrequency(sub.FetchFrequency),
		PageSize:      sub.PostsLimit,
		MaxPages:      1,
		FetchComments: true,
	}

	posts, err := f.client.ListTop(ctx, sub.Name, opts)
	if err != nil {
		return models.FetchStats{}, err
	}

	stats := models.FetchStats{Total: len(posts)}
	for _, post := range posts {
		switch f.storePost(ctx, post, sub.ID) {
		case storeNew:
			stats.New++
		case storeUpdated:
			stats.Updated++
		default:
			stats.Skipped++
		}
	}

	if err := f.store.TouchSubredditFetched(ctx, sub.ID); err != nil {
		f.logger.Warn("failed to update subreddit fetch time", "subreddit", sub.Name, "error", err)
	}

	f.logger.Info("subreddit fetch complete",
		"subreddit", sub.Name, "new", stats.New, "updated", stats.Updated, "skipped", stats.Skipped)
	return stats, nil
}

type storeResult int

const (
	storeSkipped storeResult = iota
	storeNew
	storeUpdated
)

// storePost inserts an unseen post as pending, or refreshes engagement
// metrics on one we already hold. Store failures count as skipped
func (f *Fetcher) storePost(ctx context.Context, post Post, subredditID string) storeResult {
	exists, err := f.store.PostExists(ctx, post.RedditID)
	if err != nil {
		f.logger.Warn("post existence check failed", "reddit_id", post.RedditID, "error", err)
		return storeSkipped
	}

	content := CleanText(post.Content)
	comments := cleanComments(post.TopComments)

	if exists {
		if err := f.store.UpdatePost(ctx, post.RedditID, post.Score, post.NumComments, content, comments); err != nil {
			f.logger.Warn("post update failed", "reddit_id", post.RedditID, "error", err)
			return storeSkipped
		}
		return storeUpdated
	}

	stored := &models.Post{
		SubredditID:   subredditID,
		SubredditName: post.Subreddit,
		RedditID:      post.RedditID,
		Title:         CleanText(post.Title),
		Content:       content,
		Author:        post.Author,
		URL:           post.URL,
		Score:         post.Score,
		NumComments:   post.NumComments,
		TopComments:   comments,
		CreatedAt:     post.CreatedAt,
		Status:        models.StatusPending,
	}
	if _, err := f.store.InsertPost(ctx, stored); err != nil {
		f.logger.Warn("post insert failed", "reddit_id", post.RedditID, "error", err)
		return storeSkipped
	}
	return storeNew
}

// windowForFrequency maps a subreddit's fetch cadence to the listing window
func windowForFrequency(frequency string) TimeWindow {
	switch frequency {
	case "hourly":
		return WindowHour
	case "weekly":
		return WindowWeek
	default:
		return WindowDay
	}
}
