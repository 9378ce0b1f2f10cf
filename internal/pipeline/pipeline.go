package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kevinmichaelchen/star-vault/internal/config"
	"github.com/kevinmichaelchen/star-vault/internal/github"
	"github.com/kevinmichaelchen/star-vault/internal/llm"
	"github.com/kevinmichaelchen/star-vault/internal/logger"
	"github.com/kevinmichaelchen/star-vault/internal/models"
	"github.com/kevinmichaelchen/star-vault/internal/readme"
	"github.com/kevinmichaelchen/star-vault/internal/store"
	"github.com/kevinmichaelchen/star-vault/internal/worker"
)

// ReadmeFetcher finds a repository's README. A nil result means it has none.
type ReadmeFetcher interface {
	Resolve(ctx context.Context, fullName string) (*models.ReadmeResult, error)
}

// Summarizer produces the optional AI summary section.
type Summarizer interface {
	Summarize(ctx context.Context, item models.StarredItem, readme *models.ReadmeResult) (*models.SummaryResult, error)
}

type Runner struct {
	Lister     github.PageLister
	Readmes    ReadmeFetcher
	Summarizer Summarizer // nil disables summaries
	Layout     *store.Layout
	Watermarks *store.WatermarkStore
	Registry   *store.Registry
	Out        io.Writer
	// Quota, when set, is reported after each run.
	Quota *github.RateLimiter
}

// New wires a Runner against the GitHub API and the directories in cfg.
func New(ctx context.Context, cfg *config.Config, summarize bool) (*Runner, error) {
	registry, err := store.OpenRegistry(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	gh := github.NewClient(ctx, cfg.GitHubToken)
	r := &Runner{
		Lister:     gh,
		Readmes:    readme.NewResolver(gh, readme.NewConverter(cfg.Pandoc)),
		Layout:     store.NewLayout(cfg.JSONDir, cfg.MarkdownDir),
		Watermarks: store.NewWatermarkStore(cfg.OutputDir),
		Registry:   registry,
		Out:        logger.Writer(),
		Quota:      gh.RateLimiter(),
	}

	if summarize {
		if cfg.LLMAPIKey == "" {
			logger.Warn("--summarize needs an LLM API key (LLM_API_KEY); continuing without summaries")
		} else {
			r.Summarizer = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
		}
	}
	return r, nil
}

type DownloadOptions struct {
	User string
	// Full walks every page instead of stopping at the watermark.
	Full       bool
	SkipReadme bool
	// AdvanceOnFailure moves the watermark even when some stars failed.
	AdvanceOnFailure bool
	Pool             worker.Options
}

type DownloadResult struct {
	Walk             *github.WalkResult
	Report           *worker.Report
	WatermarkWritten bool
}

// Download fetches the stars newer than the watermark and writes their
// artifacts. Only failures before the pool starts are returned as errors;
// per-star failures end up in the report.
func (r *Runner) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, error) {
	start := time.Now()

	watermark, err := r.Watermarks.Read()
	if err != nil {
		return nil, err
	}

	var strategy github.Strategy = github.IncrementalStrategy{}
	if opts.Full {
		strategy = github.ForwardStrategy{}
		logger.Info("Fetching all stars of %s (full walk)", opts.User)
	} else if watermark != "" {
		logger.Info("Fetching stars of %s newer than %s", opts.User, watermark)
	}

	walk, err := strategy.Fetch(ctx, r.Lister, opts.User, watermark)
	if err != nil {
		if github.IsUnauthorized(err) {
			return nil, fmt.Errorf("%w (check the GitHub token)", err)
		}
		return nil, err
	}

	items := dedup(walk.Items)
	logger.Info("Found %s new stars across %d page(s)", humanize.Comma(int64(len(items))), walk.Pages)

	progress := worker.NewProgress(r.Out, len(items))
	report := worker.Run(ctx, items, fullName,
		func(ctx context.Context, item models.StarredItem) error {
			return r.processStar(ctx, item, opts.SkipReadme)
		},
		opts.Pool, progress)

	res := &DownloadResult{Walk: walk, Report: report}

	switch {
	case walk.Watermark == nil:
		logger.Debug("no stars, watermark unchanged")
	case report.Failed > 0 && !opts.AdvanceOnFailure:
		logger.Warn("%d star(s) failed; watermark left at %q so they are retried next run", report.Failed, watermark)
	default:
		if err := r.Watermarks.Write(walk.Watermark.FullName); err != nil {
			return res, err
		}
		res.WatermarkWritten = true
		logger.Debug("watermark set to %s in %s", walk.Watermark.FullName, r.Watermarks.Path())
	}

	r.printSummary(progress, report, start)
	return res, nil
}

// processStar writes one star's artifacts. The JSON snapshot is always
// refreshed; an existing Markdown document is left alone.
func (r *Runner) processStar(ctx context.Context, item models.StarredItem, skipReadme bool) error {
	if _, err := r.Layout.WriteJSON(item); err != nil {
		return err
	}
	if r.Layout.MarkdownExists(item) {
		logger.Debug("%s: markdown exists, skipping", item.FullName)
		return r.registerExisting(item)
	}

	var rd *models.ReadmeResult
	if !skipReadme {
		var err error
		if rd, err = r.Readmes.Resolve(ctx, item.FullName); err != nil {
			return err
		}
	}

	doc := store.Document{
		Item:      item,
		StarredAt: item.StarredAt,
		Readme:    rd,
		Summary:   r.summarize(ctx, item, rd),
	}
	if _, err := r.Layout.WriteMarkdown(item, store.Render(doc)); err != nil {
		return err
	}

	if rd != nil {
		return r.Registry.Add(item.FullName)
	}
	return nil
}

// registerExisting records an existing document's README in the registry.
// A previous attempt may have written the document and failed before the
// registry entry was appended.
func (r *Runner) registerExisting(item models.StarredItem) error {
	if r.Registry.Contains(item.FullName) {
		return nil
	}
	has, err := r.Layout.HasReadme(item)
	if err != nil || !has {
		return err
	}
	return r.Registry.Add(item.FullName)
}

func (r *Runner) summarize(ctx context.Context, item models.StarredItem, rd *models.ReadmeResult) *models.SummaryResult {
	if r.Summarizer == nil {
		return nil
	}
	s, err := r.Summarizer.Summarize(ctx, item, rd)
	if err != nil {
		logger.Warn("summary for %s: %v", item.FullName, err)
		return nil
	}
	return s
}

type ReadmeOptions struct {
	// Force refetches READMEs already in the registry.
	Force bool
	Pool  worker.Options
}

// DownloadReadmes fetches READMEs for every star already saved as JSON.
// Documents that exist get a README section appended; missing ones are
// written in full.
func (r *Runner) DownloadReadmes(ctx context.Context, opts ReadmeOptions) (*worker.Report, error) {
	start := time.Now()

	saved, err := r.Layout.ScanJSON()
	if err != nil {
		return nil, err
	}

	var items []models.StarredItem
	skipped := 0
	for _, item := range dedup(saved) {
		if !opts.Force && r.Registry.Contains(item.FullName) {
			skipped++
			continue
		}
		items = append(items, item)
	}
	logger.Info("%s saved stars, %s need a README (%s skipped, %s in registry)",
		humanize.Comma(int64(len(saved))), humanize.Comma(int64(len(items))),
		humanize.Comma(int64(skipped)), humanize.Comma(int64(r.Registry.Len())))

	progress := worker.NewProgress(r.Out, len(items))
	report := worker.Run(ctx, items, fullName, r.processReadme, opts.Pool, progress)

	r.printSummary(progress, report, start)
	return report, nil
}

func (r *Runner) processReadme(ctx context.Context, item models.StarredItem) error {
	rd, err := r.Readmes.Resolve(ctx, item.FullName)
	if err != nil {
		return err
	}
	if rd == nil {
		logger.Info("%s: no README found", item.FullName)
		return nil
	}

	if r.Layout.MarkdownExists(item) {
		appended, err := r.Layout.AppendReadme(item, rd)
		if err != nil {
			return err
		}
		if !appended {
			logger.Debug("%s: document already has a README section", item.FullName)
		}
	} else {
		doc := store.Document{Item: item, StarredAt: item.StarredAt, Readme: rd}
		if _, err := r.Layout.WriteMarkdown(item, store.Render(doc)); err != nil {
			return err
		}
	}
	return r.Registry.Add(item.FullName)
}

func (r *Runner) printSummary(progress *worker.Progress, report *worker.Report, start time.Time) {
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	fmt.Fprintf(out, "%s in %s\n", progress.Summary(), time.Since(start).Round(time.Millisecond))
	for _, f := range report.Failures() {
		fmt.Fprintf(out, "  FAILED: %s (%d attempt(s)): %v\n", f.Name, f.Attempts, f.Err)
	}
	if r.Quota != nil && !r.Quota.ResetTime().IsZero() {
		logger.Debug("GitHub quota: %d of %d requests left, resets %s",
			r.Quota.Remaining(), r.Quota.Limit(), humanize.Time(r.Quota.ResetTime()))
	}
}

func fullName(item models.StarredItem) string {
	return item.FullName
}

// dedup keeps the first occurrence of each full name.
func dedup(items []models.StarredItem) []models.StarredItem {
	seen := make(map[string]bool, len(items))
	out := make([]models.StarredItem, 0, len(items))
	for _, item := range items {
		if seen[item.FullName] {
			continue
		}
		seen[item.FullName] = true
		out = append(out, item)
	}
	return out
}
