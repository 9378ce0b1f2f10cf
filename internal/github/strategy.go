package github

import (
	"context"
	"fmt"

	"github.com/kevinmichaelchen/star-vault/internal/logger"
	"github.com/kevinmichaelchen/star-vault/internal/models"
)

// PageLister returns one page of a user's stars, newest first. An empty page
// means there are no more.
type PageLister interface {
	ListStarredPage(ctx context.Context, user string, page int) ([]models.StarredItem, error)
}

// WalkResult is what a Strategy hands to the pipeline.
type WalkResult struct {
	// Items are the stars newer than the watermark, newest first.
	Items []models.StarredItem
	// Watermark is the newest star on page 1, or nil if page 1 was empty.
	Watermark *models.Watermark
	// Pages is the number of pages requested.
	Pages int
}

// Strategy determines how far back the star list is walked.
type Strategy interface {
	// Fetch walks pages from page 1. watermark is the full name of the newest
	// star seen by the previous run, or "" if there was none.
	Fetch(ctx context.Context, lister PageLister, user, watermark string) (*WalkResult, error)
}

// ForwardStrategy walks every page regardless of any watermark.
type ForwardStrategy struct{}

func (ForwardStrategy) Fetch(ctx context.Context, lister PageLister, user, _ string) (*WalkResult, error) {
	return walk(ctx, lister, user, "")
}

// IncrementalStrategy stops at the first star matching the watermark. Stars
// before it on the same page are kept; it and everything older are not, and
// no later page is requested.
//
// Falls back to a full walk when there is no watermark.
type IncrementalStrategy struct{}

func (IncrementalStrategy) Fetch(ctx context.Context, lister PageLister, user, watermark string) (*WalkResult, error) {
	if watermark == "" {
		logger.Info("No watermark, fetching all stars")
	}
	return walk(ctx, lister, user, watermark)
}

func walk(ctx context.Context, lister PageLister, user, watermark string) (*WalkResult, error) {
	res := &WalkResult{}

	for page := 1; ; page++ {
		items, err := lister.ListStarredPage(ctx, user, page)
		if err != nil {
			return nil, fmt.Errorf("fetching starred page %d: %w", page, err)
		}
		res.Pages = page

		if len(items) == 0 {
			break
		}

		// The new watermark is taken before any filtering.
		if page == 1 {
			res.Watermark = &models.Watermark{
				FullName:  items[0].FullName,
				StarredAt: items[0].StarredAt,
			}
		}

		if cut := indexOf(items, watermark); cut >= 0 {
			res.Items = append(res.Items, items[:cut]...)
			logger.Info("Reached watermark %s on page %d", watermark, page)
			break
		}

		res.Items = append(res.Items, items...)
		logger.Info("Fetched page %d (%d stars so far)", page, len(res.Items))
	}

	return res, nil
}

func indexOf(items []models.StarredItem, fullName string) int {
	if fullName == "" {
		return -1
	}
	for i, item := range items {
		if item.FullName == fullName {
			return i
		}
	}
	return -1
}
