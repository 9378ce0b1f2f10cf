package worker

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
)

// Progress counts finished items and prints one line per event. Counters
// and writes share one mutex.
type Progress struct {
	mu        sync.Mutex
	out       io.Writer
	total     int
	completed int
	succeeded int
	failed    int
}

func NewProgress(out io.Writer, total int) *Progress {
	if out == nil {
		out = io.Discard
	}
	return &Progress{out: out, total: total}
}

// Record counts a finished item and prints the running totals.
func (p *Progress) Record(o Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	if o.Status == StatusSucceeded {
		p.succeeded++
	} else {
		p.failed++
	}

	prefix := fmt.Sprintf("  [%d/%d %5.1f%%]", p.completed, p.total, p.percent())
	if o.Status == StatusSucceeded {
		fmt.Fprintf(p.out, "%s %s %s\n", prefix, okMark, o.Name)
		return
	}
	fmt.Fprintf(p.out, "%s %s %s failed after %d attempt(s): %v\n", prefix, failMark, o.Name, o.Attempts, o.Err)
}

// Retry prints a line for a failed attempt that will be tried again.
func (p *Progress) Retry(name string, attempt, attempts int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "  retry %d/%d for %s: %v\n", attempt, attempts-1, name, err)
}

// Counts returns completed, succeeded and failed totals.
func (p *Progress) Counts() (completed, succeeded, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed, p.succeeded, p.failed
}

// Summary is a one-line description of the totals so far.
func (p *Progress) Summary() string {
	completed, succeeded, failed := p.Counts()
	return fmt.Sprintf("%s of %s done: %s succeeded, %s failed",
		humanize.Comma(int64(completed)), humanize.Comma(int64(p.total)),
		humanize.Comma(int64(succeeded)), humanize.Comma(int64(failed)))
}

func (p *Progress) percent() float64 {
	if p.total == 0 {
		return 100
	}
	return float64(p.completed) * 100 / float64(p.total)
}
