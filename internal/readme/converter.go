package readme

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kevinmichaelchen/star-vault/internal/logger"
	"github.com/kevinmichaelchen/star-vault/internal/models"
)

const (
	DefaultConverter = "pandoc"

	defaultConvertTimeout = time.Minute
)

type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	output, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return output, fmt.Errorf("%s timed out", name)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return output, fmt.Errorf("%s: %s", name, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return output, err
	}
	return output, nil
}

// pandoc reader names per source format. Plain text is read as Markdown.
var readers = map[string]string{
	models.FormatOrg:  "org",
	models.FormatRST:  "rst",
	models.FormatText: "markdown",
}

// Converter turns non-Markdown READMEs into GitHub-flavored Markdown with an
// external tool. It never fails: on any problem the caller keeps the
// original text.
type Converter struct {
	binary  string
	timeout time.Duration
	runner  commandRunner

	missingOnce sync.Once
}

func NewConverter(binary string) *Converter {
	if binary == "" {
		binary = DefaultConverter
	}
	return &Converter{
		binary:  binary,
		timeout: defaultConvertTimeout,
		runner:  execRunner{},
	}
}

// Convert returns the Markdown rendering of content and true, or content
// unchanged and false if the format is unknown or the tool failed.
func (c *Converter) Convert(ctx context.Context, content, format string) (string, bool) {
	reader, ok := readers[format]
	if !ok {
		return content, false
	}

	tmp, err := os.CreateTemp("", "readme-*."+format)
	if err != nil {
		logger.Warn("creating temp file for %s README: %v", format, err)
		return content, false
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = tmp.WriteString(content)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		logger.Warn("writing temp file for %s README: %v", format, err)
		return content, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.runner.Run(ctx, c.binary, "-f", reader, "-t", "gfm", "--wrap=none", tmp.Name())
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			c.missingOnce.Do(func() {
				logger.Warn("%s not found, keeping non-Markdown READMEs as-is", c.binary)
			})
		} else {
			logger.Warn("converting %s README: %v", format, err)
		}
		return content, false
	}
	if strings.TrimSpace(string(out)) == "" {
		return content, false
	}
	return string(out), true
}
