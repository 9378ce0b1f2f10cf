package github

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/star-vault/internal/models"
)

// fakeLister serves fixed pages and records which ones were requested.
type fakeLister struct {
	pages     [][]string
	failOn    int
	requested []int
}

func (f *fakeLister) ListStarredPage(_ context.Context, _ string, page int) ([]models.StarredItem, error) {
	f.requested = append(f.requested, page)
	if page == f.failOn {
		return nil, errors.New("502 bad gateway")
	}
	if page > len(f.pages) {
		return nil, nil
	}
	items := make([]models.StarredItem, 0, len(f.pages[page-1]))
	for i, name := range f.pages[page-1] {
		items = append(items, models.StarredItem{
			FullName:  name,
			StarredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Duration(page*100+i) * time.Hour),
		})
	}
	return items, nil
}

func names(items []models.StarredItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.FullName)
	}
	return out
}

func TestIncrementalStrategy_StopsAtWatermark(t *testing.T) {
	lister := &fakeLister{pages: [][]string{
		{"foo/bar", "acme/widgets", "old/one"},
		{"older/two"},
	}}

	res, err := IncrementalStrategy{}.Fetch(context.Background(), lister, "octocat", "acme/widgets")
	require.NoError(t, err)

	assert.Equal(t, []string{"foo/bar"}, names(res.Items))
	require.NotNil(t, res.Watermark)
	assert.Equal(t, "foo/bar", res.Watermark.FullName)
	assert.Equal(t, []int{1}, lister.requested, "page 2 must not be fetched")
}

func TestIncrementalStrategy_WatermarkOnLaterPage(t *testing.T) {
	lister := &fakeLister{pages: [][]string{
		{"a/1", "a/2"},
		{"b/1", "seen/before", "b/3"},
		{"c/1"},
	}}

	res, err := IncrementalStrategy{}.Fetch(context.Background(), lister, "octocat", "seen/before")
	require.NoError(t, err)

	assert.Equal(t, []string{"a/1", "a/2", "b/1"}, names(res.Items))
	assert.Equal(t, "a/1", res.Watermark.FullName)
	assert.Equal(t, []int{1, 2}, lister.requested)
	assert.Equal(t, 2, res.Pages)
}

func TestIncrementalStrategy_WatermarkIsNewestStar(t *testing.T) {
	lister := &fakeLister{pages: [][]string{{"same/top", "x/y"}}}

	res, err := IncrementalStrategy{}.Fetch(context.Background(), lister, "octocat", "same/top")
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	require.NotNil(t, res.Watermark, "watermark is captured before filtering")
	assert.Equal(t, "same/top", res.Watermark.FullName)
}

func TestIncrementalStrategy_NoWatermarkWalksToEmptyPage(t *testing.T) {
	lister := &fakeLister{pages: [][]string{{"a/1", "a/2"}, {"b/1"}}}

	res, err := IncrementalStrategy{}.Fetch(context.Background(), lister, "octocat", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"a/1", "a/2", "b/1"}, names(res.Items))
	assert.Equal(t, []int{1, 2, 3}, lister.requested)
}

func TestIncrementalStrategy_UnknownWatermarkWalksEverything(t *testing.T) {
	lister := &fakeLister{pages: [][]string{{"a/1"}, {"b/1"}}}

	res, err := IncrementalStrategy{}.Fetch(context.Background(), lister, "octocat", "gone/repo")
	require.NoError(t, err)

	assert.Equal(t, []string{"a/1", "b/1"}, names(res.Items))
	assert.Equal(t, []int{1, 2, 3}, lister.requested)
}

func TestForwardStrategy_IgnoresWatermark(t *testing.T) {
	lister := &fakeLister{pages: [][]string{{"foo/bar", "acme/widgets", "old/one"}}}

	res, err := ForwardStrategy{}.Fetch(context.Background(), lister, "octocat", "acme/widgets")
	require.NoError(t, err)

	assert.Equal(t, []string{"foo/bar", "acme/widgets", "old/one"}, names(res.Items))
}

func TestWalk_EmptyFirstPage(t *testing.T) {
	res, err := IncrementalStrategy{}.Fetch(context.Background(), &fakeLister{}, "octocat", "")
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	assert.Nil(t, res.Watermark)
}

func TestWalk_ErrorAbortsWithoutResult(t *testing.T) {
	lister := &fakeLister{pages: [][]string{{"a/1"}, {"b/1"}}, failOn: 2}

	res, err := IncrementalStrategy{}.Fetch(context.Background(), lister, "octocat", "")

	assert.Nil(t, res)
	assert.ErrorContains(t, err, "fetching starred page 2")
}
