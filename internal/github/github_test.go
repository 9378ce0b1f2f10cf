package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(context.Background(), "test-token")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	c.gh.BaseURL = base
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_ListStarredPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat/starred", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Accept"), "star+json")
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "created", r.URL.Query().Get("sort"))

		w.Header().Set(HeaderRateRemaining, "4321")
		w.Header().Set(HeaderRateLimit, "5000")
		w.Header().Set(HeaderRateReset, strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{
				"starred_at": "2024-02-03T04:05:06Z",
				"repo": map[string]any{
					"full_name":        "acme/widgets",
					"description":      "Widgets",
					"stargazers_count": 10,
					"forks_count":      2,
					"language":         "Go",
					"html_url":         "https://github.com/acme/widgets",
					"topics":           []string{"go"},
				},
			},
		})
	})

	c := newTestClient(t, mux)
	items, err := c.ListStarredPage(context.Background(), "octocat", 2)
	require.NoError(t, err)

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "acme/widgets", item.FullName)
	assert.Equal(t, 10, item.Stars)
	assert.Equal(t, []string{"go"}, item.Topics)
	assert.Equal(t, 2024, item.StarredAt.Year())
	assert.Contains(t, string(item.Raw), `"starred_at"`)
	assert.Equal(t, 4321, c.RateLimiter().Remaining())
}

func TestClient_ListStarredPageKeepsRawPayload(t *testing.T) {
	const body = `[{"starred_at":"2024-02-03T04:05:06Z","repo":{"full_name":"acme/widgets","description":null,"language":null,"license":null,"custom_property":"x","mirror_url":null,"stargazers_count":0}}]`

	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat/starred", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})

	c := newTestClient(t, mux)
	items, err := c.ListStarredPage(context.Background(), "octocat", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var want []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &want))
	assert.JSONEq(t, string(want[0]), string(items[0].Raw))

	raw := string(items[0].Raw)
	assert.Contains(t, raw, `"description":null`)
	assert.Contains(t, raw, `"license":null`)
	assert.Contains(t, raw, `"custom_property":"x"`)
	assert.Empty(t, items[0].Description)
}

func TestClient_GetFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/contents/README.rst", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"type":     "file",
			"name":     "README.rst",
			"path":     "README.rst",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte("Title\n=====\n")),
		})
	})
	mux.HandleFunc("/repos/acme/widgets/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	})

	c := newTestClient(t, mux)

	content, err := c.GetFile(context.Background(), "acme", "widgets", "README.rst")
	require.NoError(t, err)
	assert.Equal(t, "Title\n=====\n", content)

	_, err = c.GetFile(context.Background(), "acme", "widgets", "README.md")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsRateLimited(err))
}

func TestClient_ListDir(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/contents/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"type": "dir", "name": "docs", "path": "docs"},
			{"type": "file", "name": "GUIDE.rst", "path": "GUIDE.rst", "size": 120},
		})
	})

	c := newTestClient(t, mux)
	entries, err := c.ListDir(context.Background(), "acme", "widgets", "")
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Name: "docs", Path: "docs", Type: "dir"},
		{Name: "GUIDE.rst", Path: "GUIDE.rst", Type: "file", Size: 120},
	}, entries)
}

func TestClient_RateLimitedResponse(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat/starred", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderRateRemaining, "0")
		w.Header().Set(HeaderRateLimit, "5000")
		w.Header().Set(HeaderRateReset, strconv.FormatInt(reset.Unix(), 10))
		writeJSON(t, w, http.StatusForbidden, map[string]any{"message": "API rate limit exceeded"})
	})

	c := newTestClient(t, mux)
	_, err := c.ListStarredPage(context.Background(), "octocat", 1)

	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.True(t, rateErr.ResetAt.Equal(reset))
}

func TestRateLimiter_UpdateFromResponse(t *testing.T) {
	r := NewRateLimiter()
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set(HeaderRateRemaining, "12")
	resp.Header.Set(HeaderRateLimit, "60")
	resp.Header.Set(HeaderRateReset, "1700000000")

	r.UpdateFromResponse(resp)
	r.UpdateFromResponse(nil)

	assert.Equal(t, 12, r.Remaining())
	assert.Equal(t, 60, r.Limit())
	assert.Equal(t, int64(1700000000), r.ResetTime().Unix())
}

func TestRateLimiter_WaitPassesWithQuotaLeft(t *testing.T) {
	r := NewRateLimiter()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, r.Wait(ctx))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{StatusCode: http.StatusNotFound}))
	assert.False(t, IsNotFound(&APIError{StatusCode: http.StatusInternalServerError}))
	assert.False(t, IsNotFound(ErrNotAFile))
	assert.True(t, IsUnauthorized(&APIError{StatusCode: http.StatusUnauthorized}))
}
