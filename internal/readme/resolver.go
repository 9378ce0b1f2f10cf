// Package readme finds a repository's README among the usual names and
// formats and converts non-Markdown ones.
package readme

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kevinmichaelchen/star-vault/internal/github"
	"github.com/kevinmichaelchen/star-vault/internal/logger"
	"github.com/kevinmichaelchen/star-vault/internal/models"
)

// ContentsAPI is the part of the GitHub client the resolver needs.
type ContentsAPI interface {
	GetFile(ctx context.Context, owner, repo, path string) (string, error)
	ListDir(ctx context.Context, owner, repo, path string) ([]github.Entry, error)
}

type Resolver struct {
	api       ContentsAPI
	converter *Converter
}

// NewResolver returns a resolver. converter may be nil, in which case
// non-Markdown READMEs are returned unconverted.
func NewResolver(api ContentsAPI, converter *Converter) *Resolver {
	return &Resolver{api: api, converter: converter}
}

// Resolve returns the README of fullName, or nil if the repository has
// none. Lookup failures other than rate limiting are logged and the next
// candidate is tried; only rate limiting and context cancellation are
// returned as errors.
func (r *Resolver) Resolve(ctx context.Context, fullName string) (*models.ReadmeResult, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid repository name %q", fullName)
	}

	for _, candidate := range Candidates {
		content, found, err := r.fetch(ctx, owner, repo, candidate)
		if err != nil {
			return nil, err
		}
		if found {
			return r.finish(ctx, fullName, candidate, content), nil
		}
	}

	name, err := r.searchRoot(ctx, owner, repo)
	if err != nil || name == "" {
		return nil, err
	}
	logger.Debug("%s: using %s from root listing", fullName, name)

	content, found, err := r.fetch(ctx, owner, repo, name)
	if err != nil || !found {
		return nil, err
	}
	return r.finish(ctx, fullName, name, content), nil
}

// fetch tries one path. A miss is (_, false, nil).
func (r *Resolver) fetch(ctx context.Context, owner, repo, path string) (string, bool, error) {
	content, err := r.api.GetFile(ctx, owner, repo, path)
	switch {
	case err == nil:
		return content, true, nil
	case ctx.Err() != nil:
		return "", false, ctx.Err()
	case github.IsRateLimited(err):
		return "", false, err
	case github.IsNotFound(err):
		return "", false, nil
	default:
		logger.Warn("fetching %s/%s/%s: %v", owner, repo, path, err)
		return "", false, nil
	}
}

func (r *Resolver) searchRoot(ctx context.Context, owner, repo string) (string, error) {
	entries, err := r.api.ListDir(ctx, owner, repo, "")
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return "", ctx.Err()
	case github.IsRateLimited(err):
		return "", err
	case github.IsNotFound(err):
		return "", nil
	default:
		logger.Warn("listing %s/%s: %v", owner, repo, err)
		return "", nil
	}

	var files []string
	for _, e := range entries {
		if e.Type == "file" {
			files = append(files, e.Name)
		}
	}
	return pickFromListing(files), nil
}

func (r *Resolver) finish(ctx context.Context, fullName, path, content string) *models.ReadmeResult {
	res := &models.ReadmeResult{
		Content: content,
		Format:  Classify(path),
		Path:    path,
	}
	logger.Debug("%s: found %s (%s)", fullName, path, humanize.Bytes(uint64(len(content))))

	if !NeedsConversion(res.Format) || r.converter == nil {
		return res
	}
	if converted, ok := r.converter.Convert(ctx, content, res.Format); ok {
		res.Content = converted
		res.Converted = true
	}
	return res
}
