package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditminer/internal/models"
)

// fetcherFakeStore is an in-memory FetcherStore
type fetcherFakeStore struct {
	subreddits []models.Subreddit
	posts      map[string]*models.Post
	updated    []string
	touched    []string
	subsErr    error
}

func newFetcherFakeStore(subs ...models.Subreddit) *fetcherFakeStore {
	return &fetcherFakeStore{subreddits: subs, posts: map[string]*models.Post{}}
}

func (s *fetcherFakeStore) ActiveSubreddits(context.Context) ([]models.Subreddit, error) {
	return s.subreddits, s.subsErr
}

func (s *fetcherFakeStore) PostExists(_ context.Context, redditID string) (bool, error) {
	_, ok := s.posts[redditID]
	return ok, nil
}

func (s *fetcherFakeStore) InsertPost(_ context.Context, post *models.Post) (string, error) {
	s.posts[post.RedditID] = post
	return "id-" + post.RedditID, nil
}

func (s *fetcherFakeStore) UpdatePost(_ context.Context, redditID string, score, numComments int, content string, topComments []string) error {
	p, ok := s.posts[redditID]
	if !ok {
		return errors.New("unknown post")
	}
	p.Score = score
	p.NumComments = numComments
	p.Content = content
	p.TopComments = topComments
	s.updated = append(s.updated, redditID)
	return nil
}

func (s *fetcherFakeStore) TouchSubredditFetched(_ context.Context, subredditID string) error {
	s.touched = append(s.touched, subredditID)
	return nil
}

func testSubreddit(name string) models.Subreddit {
	return models.Subreddit{
		ID:             "sub-" + name,
		Name:           name,
		IsActive:       true,
		FetchFrequency: "daily",
		PostsLimit:     25,
	}
}

func TestFetcherRunStoresNewPosts(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sort") == "top" {
			// Comment endpoint; no comments for this test
			fmt.Fprint(w, `[{"kind": "Listing", "data": {"children": []}},
				{"kind": "Listing", "data": {"children": []}}]`)
			return
		}
		fmt.Fprint(w, listingJSON("", postData("aaa", 10), postData("bbb", 20)))
	})

	store := newFetcherFakeStore(testSubreddit("devops"))
	f := NewFetcher(client, store, testLogger())

	stats, err := f.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.FetchStats{Total: 2, New: 2}, stats)
	assert.Equal(t, []string{"sub-devops"}, store.touched)

	stored := store.posts["aaa"]
	require.NotNil(t, stored)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, "sub-devops", stored.SubredditID)
	assert.Equal(t, "title aaa", stored.Title)
}

func TestFetcherRunUpdatesKnownPosts(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sort") == "top" {
			fmt.Fprint(w, `[{"kind": "Listing", "data": {"children": []}},
				{"kind": "Listing", "data": {"children": []}}]`)
			return
		}
		fmt.Fprint(w, listingJSON("", postData("aaa", 99)))
	})

	store := newFetcherFakeStore(testSubreddit("devops"))
	store.posts["aaa"] = &models.Post{RedditID: "aaa", Score: 10}

	f := NewFetcher(client, store, testLogger())
	stats, err := f.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.FetchStats{Total: 1, Updated: 1}, stats)
	assert.Equal(t, 99, store.posts["aaa"].Score)
}

func TestFetcherRunCountsSubredditErrors(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/r/broken/top" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.URL.Query().Get("sort") == "top" {
			fmt.Fprint(w, `[{"kind": "Listing", "data": {"children": []}},
				{"kind": "Listing", "data": {"children": []}}]`)
			return
		}
		fmt.Fprint(w, listingJSON("", postData("aaa", 10)))
	})

	store := newFetcherFakeStore(testSubreddit("broken"), testSubreddit("devops"))
	f := NewFetcher(client, store, testLogger())

	stats, err := f.Run(context.Background())
	require.NoError(t, err, "one subreddit failing never fails the run")
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.New)
}

func TestFetcherRunSkipsWhenUnavailable(t *testing.T) {
	// A token manager in cooldown makes the whole run a no-op
	tm := NewTokenManager("id", "secret", "agent", nil, testLogger())
	tm.tokenURL = "http://127.0.0.1:0"
	tm.recordFailure()

	client := NewClient(tm, "agent", testLogger())
	store := newFetcherFakeStore(testSubreddit("devops"))
	f := NewFetcher(client, store, testLogger())

	stats, err := f.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.FetchStats{}, stats)
	assert.Empty(t, store.touched)
}

func TestFetcherCleansContentAndComments(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sort") == "top" {
			fmt.Fprint(w, `[{"kind": "Listing", "data": {"children": []}},
				{"kind": "Listing", "data": {"children": [
					{"kind": "t1", "data": {"body": "**agreed**", "score": 3, "replies": ""}},
					{"kind": "t1", "data": {"body": "https://example.com/link-only", "score": 1, "replies": ""}}
				]}}]`)
			return
		}
		post := postData("aaa", 10)
		post["selftext"] = "some **bold** text"
		fmt.Fprint(w, listingJSON("", post))
	})

	store := newFetcherFakeStore(testSubreddit("devops"))
	f := NewFetcher(client, store, testLogger())

	_, err := f.Run(context.Background())
	require.NoError(t, err)

	stored := store.posts["aaa"]
	require.NotNil(t, stored)
	assert.Equal(t, "some bold text", stored.Content)
	assert.Equal(t, []string{"agreed"}, stored.TopComments, "link-only comment cleans to empty and is dropped")
}

func TestWindowForFrequency(t *testing.T) {
	assert.Equal(t, WindowHour, windowForFrequency("hourly"))
	assert.Equal(t, WindowDay, windowForFrequency("daily"))
	assert.Equal(t, WindowWeek, windowForFrequency("weekly"))
	assert.Equal(t, WindowDay, windowForFrequency("anything else"))
}
