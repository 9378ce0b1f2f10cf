// Package worker runs a side-effecting function over a batch of items with a
// fixed number of concurrent workers and per-item retries.
//
// Items are dispatched in slice order; completion order is not defined. A
// failing item never stops the batch: after its retries run out it is
// recorded as exhausted and the workers move on.
package worker

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers    = 16
	DefaultRetryCount = 5
	DefaultRetryDelay = time.Second
)

type Options struct {
	Workers int
	// RetryCount is the total number of attempts per item.
	RetryCount int
	RetryDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		Workers:    DefaultWorkers,
		RetryCount: DefaultRetryCount,
		RetryDelay: DefaultRetryDelay,
	}
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.RetryCount <= 0 {
		o.RetryCount = DefaultRetryCount
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	return o
}

type Status int

const (
	StatusSucceeded Status = iota
	StatusExhausted
)

func (s Status) String() string {
	if s == StatusSucceeded {
		return "succeeded"
	}
	return "exhausted"
}

// Outcome is the final state of one item.
type Outcome struct {
	Name     string
	Status   Status
	Attempts int
	Err      error
}

type Report struct {
	Total     int
	Completed int
	Succeeded int
	Failed    int
	// Outcomes is indexed like the input items.
	Outcomes []Outcome
}

// Failures returns the exhausted outcomes in input order.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusExhausted {
			out = append(out, o)
		}
	}
	return out
}

// Run applies fn to every item using opts.Workers goroutines and returns
// once all of them have finished. name is used only for progress output.
// progress may be nil.
func Run[T any](
	ctx context.Context,
	items []T,
	name func(T) string,
	fn func(context.Context, T) error,
	opts Options,
	progress *Progress,
) *Report {
	opts = opts.withDefaults()
	if progress == nil {
		progress = NewProgress(nil, len(items))
	}
	policy := RetryPolicy{Attempts: opts.RetryCount, Delay: opts.RetryDelay}

	outcomes := make([]Outcome, len(items))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, item := range items {
		g.Go(func() error {
			label := name(item)
			attempts, err := policy.Do(gCtx,
				func(ctx context.Context) error { return fn(ctx, item) },
				func(attempt int, err error) { progress.Retry(label, attempt, policy.Attempts, err) },
			)

			o := Outcome{Name: label, Status: StatusSucceeded, Attempts: attempts, Err: err}
			if err != nil {
				o.Status = StatusExhausted
			}
			outcomes[i] = o
			progress.Record(o)
			return nil // item failures never cancel siblings
		})
	}
	_ = g.Wait()

	report := &Report{Total: len(items), Outcomes: outcomes}
	for _, o := range outcomes {
		report.Completed++
		if o.Status == StatusSucceeded {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	return report
}
