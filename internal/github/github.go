package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/kevinmichaelchen/star-vault/internal/models"
)

const (
	// DefaultTimeout bounds every HTTP request.
	DefaultTimeout = 30 * time.Second

	perPage       = 100
	starMediaType = "application/vnd.github.star+json"
)

// Client is a thin wrapper around the GitHub REST API.
type Client struct {
	gh      *gh.Client
	limiter *RateLimiter
}

// NewClient returns a client authenticated with token. An empty token gives
// an anonymous client with the much smaller public quota.
func NewClient(ctx context.Context, token string) *Client {
	httpClient := &http.Client{Timeout: DefaultTimeout}
	if token != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		httpClient.Timeout = DefaultTimeout
	}
	return &Client{
		gh:      gh.NewClient(httpClient),
		limiter: NewRateLimiter(),
	}
}

// Entry is one item of a directory listing.
type Entry struct {
	Name string
	Path string
	// Type is "file", "dir", "symlink" or "submodule".
	Type string
	Size int
}

// ListStarredPage returns one page of the user's stars, newest first. The
// star media type is requested so each item carries starred_at. Items keep
// the response bytes as their Raw payload.
func (c *Client) ListStarredPage(ctx context.Context, user string, page int) ([]models.StarredItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := fmt.Sprintf("users/%s/starred?sort=created&direction=desc&per_page=%d&page=%d",
		url.PathEscape(user), perPage, page)
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("list starred: %w", err)
	}
	req.Header.Set("Accept", starMediaType)

	var raws []json.RawMessage
	resp, err := c.gh.Do(ctx, req, &raws)
	c.observe(resp)
	if err != nil {
		return nil, c.wrapError(err, "list starred")
	}

	items := make([]models.StarredItem, 0, len(raws))
	for i, raw := range raws {
		item, err := models.ParseItem(raw)
		if err != nil {
			return nil, fmt.Errorf("page %d item %d: %w", page, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// GetFile returns the decoded content of the file at path.
func (c *Client) GetFile(ctx context.Context, owner, repo, path string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	file, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
	c.observe(resp)
	if err != nil {
		return "", c.wrapError(err, "get contents")
	}
	if file == nil {
		return "", ErrNotAFile
	}

	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	return content, nil
}

// ListDir lists the directory at path; "" is the repository root.
func (c *Client) ListDir(ctx context.Context, owner, repo, path string) ([]Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	_, dir, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
	c.observe(resp)
	if err != nil {
		return nil, c.wrapError(err, "list contents")
	}

	entries := make([]Entry, 0, len(dir))
	for _, d := range dir {
		entries = append(entries, Entry{
			Name: d.GetName(),
			Path: d.GetPath(),
			Type: d.GetType(),
			Size: d.GetSize(),
		})
	}
	return entries, nil
}

// RateLimiter exposes the shared limiter, mostly for status output.
func (c *Client) RateLimiter() *RateLimiter {
	return c.limiter
}

// --- internal ---

func (c *Client) observe(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.limiter.UpdateFromResponse(resp.Response)
}

// wrapError converts go-github errors to APIError and RateLimitError.
func (c *Client) wrapError(err error, operation string) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitError{
			ResetAt:   rateErr.Rate.Reset.Time,
			Remaining: rateErr.Rate.Remaining,
			Limit:     rateErr.Rate.Limit,
		}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		resetAt := time.Now()
		if abuseErr.RetryAfter != nil {
			resetAt = resetAt.Add(*abuseErr.RetryAfter)
		}
		return &RateLimitError{ResetAt: resetAt}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		apiErr := &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
		}
		if ghErr.Response.Request != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		return fmt.Errorf("%s: %w", operation, apiErr)
	}

	return fmt.Errorf("%s: %w", operation, err)
}
