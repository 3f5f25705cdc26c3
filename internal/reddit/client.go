package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL = "https://oauth.reddit.com"

	requestTimeout = 30 * time.Second

	// Reddit caps listing pages at 100 items
	maxPageSize = 100

	kindPost    = "t3"
	kindComment = "t1"
)

// TimeWindow filters "top" listings by age
type TimeWindow string

const (
	WindowHour  TimeWindow = "hour"
	WindowDay   TimeWindow = "day"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
	WindowYear  TimeWindow = "year"
	WindowAll   TimeWindow = "all"
)

// ListOptions controls listing pagination and comment harvesting
type ListOptions struct {
	Window        TimeWindow // only used by top listings
	PageSize      int        // per page, capped at 100
	MaxPages      int
	FetchComments bool
	CommentLimit  int // top comments kept per post
}

func (o *ListOptions) defaults() {
	if o.PageSize <= 0 || o.PageSize > maxPageSize {
		o.PageSize = maxPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 1
	}
	if o.CommentLimit <= 0 {
		o.CommentLimit = 10
	}
	if o.Window == "" {
		o.Window = WindowDay
	}
}

// Client issues authenticated requests against the Reddit data API
type Client struct {
	tokens     *TokenManager
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates an API client on top of the given token manager
func NewClient(tokens *TokenManager, userAgent string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultAPIBaseURL,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// IsAvailable reports whether the client can currently authenticate
func (c *Client) IsAvailable() bool {
	return c.tokens.IsAvailable()
}

// thing is Reddit's typed envelope: a kind discriminator plus payload
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// listing is the paged collection payload of a listing response
type listing struct {
	After    string  `json:"after"`
	Children []thing `json:"children"`
}

// rawPost is the API's native post representation, trimmed to the
// fields the worker uses
type rawPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	IsSelf      bool    `json:"is_self"`
	Subreddit   string  `json:"subreddit"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
}

// Post is a harvested post plus its ranked top comments
type Post struct {
	RedditID    string
	Title       string
	Content     string // self text; empty for link posts and removed bodies
	Author      string // empty if deleted/removed
	URL         string
	Score       int
	NumComments int
	CreatedAt   time.Time
	Subreddit   string
	TopComments []string
}

func newPost(raw rawPost, comments []string) Post {
	content := ""
	if raw.IsSelf && raw.Selftext != "" && !isTombstone(raw.Selftext) {
		content = raw.Selftext
	}
	author := raw.Author
	if isTombstone(author) {
		author = ""
	}
	fullURL := ""
	if raw.Permalink != "" {
		fullURL = "https://www.reddit.com" + raw.Permalink
	}
	return Post{
		RedditID:    raw.ID,
		Title:       raw.Title,
		Content:     content,
		Author:      author,
		URL:         fullURL,
		Score:       raw.Score,
		NumComments: raw.NumComments,
		CreatedAt:   time.Unix(int64(raw.CreatedUTC), 0).UTC(),
		Subreddit:   raw.Subreddit,
		TopComments: comments,
	}
}

func isTombstone(s string) bool {
	return s == "[deleted]" || s == "[removed]"
}

// request performs an authenticated API call. On a 401 with retries
// remaining it forces exactly one token refresh and tries again; every
// other HTTP failure propagates to the caller
func (c *Client) request(ctx context.Context, method, endpoint string, params url.Values, retries int) (json.RawMessage, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoToken, err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("raw_json", "1")

	reqURL := c.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && retries > 0 {
		c.logger.Warn("access token rejected, refreshing", "endpoint", endpoint)
		c.tokens.Invalidate()
		io.Copy(io.Discard, resp.Body)
		return c.request(ctx, method, endpoint, params, retries-1)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("reddit API %s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return json.RawMessage(body), nil
}

// ListTop pages through a subreddit's top listing for the configured window
func (c *Client) ListTop(ctx context.Context, subreddit string, opts ListOptions) ([]Post, error) {
	opts.defaults()
	extra := url.Values{"t": {string(opts.Window)}}
	return c.listPosts(ctx, subreddit, "top", extra, opts)
}

// ListNew pages through a subreddit's new listing
func (c *Client) ListNew(ctx context.Context, subreddit string, opts ListOptions) ([]Post, error) {
	opts.defaults()
	return c.listPosts(ctx, subreddit, "new", nil, opts)
}

// ListHot pages through a subreddit's hot listing
func (c *Client) ListHot(ctx context.Context, subreddit string, opts ListOptions) ([]Post, error) {
	opts.defaults()
	return c.listPosts(ctx, subreddit, "hot", nil, opts)
}

// listPosts walks a listing using the server-supplied cursor, stopping
// on an empty page, a missing cursor, or page budget exhaustion
func (c *Client) listPosts(ctx context.Context, subreddit, sort string, extra url.Values, opts ListOptions) ([]Post, error) {
	var posts []Post
	after := ""

	for page := 0; page < opts.MaxPages; page++ {
		c.logger.Info("fetching listing page",
			"subreddit", subreddit, "sort", sort, "page", page+1, "max_pages", opts.MaxPages)

		params := url.Values{"limit": {strconv.Itoa(opts.PageSize)}}
		for k, vs := range extra {
			params[k] = vs
		}
		if after != "" {
			params.Set("after", after)
		}

		raw, err := c.request(ctx, http.MethodGet, "/r/"+subreddit+"/"+sort, params, 1)
		if err != nil {
			return nil, err
		}

		var envelope thing
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decode listing: %w", err)
		}
		var data listing
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, fmt.Errorf("decode listing data: %w", err)
		}

		if len(data.Children) == 0 {
			break
		}

		for _, child := range data.Children {
			if child.Kind != kindPost {
				continue
			}
			var rp rawPost
			if err := json.Unmarshal(child.Data, &rp); err != nil {
				c.logger.Warn("skipping malformed post", "subreddit", subreddit, "error", err)
				continue
			}
			var comments []string
			if opts.FetchComments && rp.ID != "" {
				comments = c.FetchCommentTree(ctx, subreddit, rp.ID, opts.CommentLimit, true)
			}
			posts = append(posts, newPost(rp, comments))
		}

		after = data.After
		if after == "" {
			break
		}
	}

	c.logger.Info("listing complete", "subreddit", subreddit, "sort", sort, "posts", len(posts))
	return posts, nil
}

// FetchCommentTree retrieves a post's comment listing and flattens it
// into ranked texts. Comment retrieval is best-effort: any failure
// yields an empty list instead of propagating
func (c *Client) FetchCommentTree(ctx context.Context, subreddit, postID string, limit int, includeReplies bool) []string {
	params := url.Values{
		"limit": {"100"}, // over-fetch so ranking has enough to pick from
		"sort":  {"top"},
	}

	raw, err := c.request(ctx, http.MethodGet, "/r/"+subreddit+"/comments/"+postID, params, 1)
	if err != nil {
		c.logger.Debug("comment fetch failed", "post_id", postID, "error", err)
		return nil
	}

	// The response is a two-element array: post detail, then the comment tree
	var pair []thing
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) < 2 {
		c.logger.Debug("unexpected comment response shape", "post_id", postID)
		return nil
	}

	var tree listing
	if err := json.Unmarshal(pair[1].Data, &tree); err != nil {
		c.logger.Debug("decode comment tree failed", "post_id", postID, "error", err)
		return nil
	}

	var all []rankedComment
	for _, child := range tree.Children {
		if child.Kind != kindComment {
			continue
		}
		var node commentNode
		if err := json.Unmarshal(child.Data, &node); err != nil {
			continue
		}
		all = append(all, flattenComments(node, includeReplies, 0)...)
	}

	return rankComments(all, limit)
}
