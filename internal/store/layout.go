// Package store writes the per-star artifacts and the small state files that
// make runs incremental.
//
// Artifacts are partitioned by the date the repository was starred:
//
//	<base>/<YYYY>/<MM>/<YYYYMMDD>.<owner>.<repo>.<ext>
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kevinmichaelchen/star-vault/internal/logger"
	"github.com/kevinmichaelchen/star-vault/internal/models"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

type Layout struct {
	JSONDir     string
	MarkdownDir string

	now func() time.Time
}

func NewLayout(jsonDir, markdownDir string) *Layout {
	return &Layout{JSONDir: jsonDir, MarkdownDir: markdownDir, now: time.Now}
}

// PartitionPath builds the date-partitioned path for owner/repo under base.
func PartitionPath(base string, date time.Time, owner, repo, ext string) string {
	date = date.UTC()
	name := fmt.Sprintf("%s.%s.%s.%s", date.Format("20060102"), owner, repo, ext)
	return filepath.Join(base, date.Format("2006"), date.Format("01"), name)
}

// StarDate is the date an item is partitioned under: its star time, else
// the partition it was loaded from, else the current time.
func (l *Layout) StarDate(item models.StarredItem) time.Time {
	switch {
	case !item.StarredAt.IsZero():
		return item.StarredAt.UTC()
	case !item.SavedOn.IsZero():
		return item.SavedOn.UTC()
	default:
		return l.now().UTC()
	}
}

func (l *Layout) JSONPath(item models.StarredItem) string {
	return PartitionPath(l.JSONDir, l.StarDate(item), item.Owner(), item.Repo(), "json")
}

func (l *Layout) MarkdownPath(item models.StarredItem) string {
	return PartitionPath(l.MarkdownDir, l.StarDate(item), item.Owner(), item.Repo(), "md")
}

// WriteJSON (re)writes the item's raw payload, pretty-printed. Existing
// files are always replaced.
func (l *Layout) WriteJSON(item models.StarredItem) (string, error) {
	path := l.JSONPath(item)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return "", fmt.Errorf("creating json dir: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, item.Raw, "", "  "); err != nil {
		return "", fmt.Errorf("formatting %s: %w", item.FullName, err)
	}
	buf.WriteByte('\n')

	if err := os.WriteFile(path, buf.Bytes(), filePerm); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func (l *Layout) MarkdownExists(item models.StarredItem) bool {
	_, err := os.Stat(l.MarkdownPath(item))
	return err == nil
}

// HasReadme reports whether the item's Markdown document has a README
// section. A missing document has none.
func (l *Layout) HasReadme(item models.StarredItem) (bool, error) {
	data, err := os.ReadFile(l.MarkdownPath(item))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", l.MarkdownPath(item), err)
	}
	return HasReadmeSection(string(data)), nil
}

// WriteMarkdown creates the item's Markdown document. It never overwrites:
// if the file already exists it returns false and leaves it untouched.
func (l *Layout) WriteMarkdown(item models.StarredItem, doc string) (bool, error) {
	path := l.MarkdownPath(item)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return false, fmt.Errorf("creating markdown dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", path, err)
	}

	_, err = f.WriteString(doc)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Leave no half-written document behind, or the next run would skip it.
		_ = os.Remove(path)
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// AppendReadme adds a README section to an existing document. It returns
// false without writing when the document already has one.
func (l *Layout) AppendReadme(item models.StarredItem, readme *models.ReadmeResult) (bool, error) {
	path := l.MarkdownPath(item)
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if HasReadmeSection(string(data)) {
		return false, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", path, err)
	}

	section := RenderReadmeSection(readme)
	if !bytes.HasSuffix(data, []byte("\n")) {
		section = "\n" + section
	}
	_, err = f.WriteString("\n" + section)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return false, fmt.Errorf("appending to %s: %w", path, err)
	}
	return true, nil
}

// partitionDate reads the YYYYMMDD prefix of an artifact file name. It
// returns the zero time if the name has none.
func partitionDate(path string) time.Time {
	name := filepath.Base(path)
	if len(name) < 8 {
		return time.Time{}
	}
	date, err := time.Parse("20060102", name[:8])
	if err != nil {
		return time.Time{}
	}
	return date
}

// ScanJSON loads every JSON artifact under the JSON directory in path order.
// Files that do not parse are logged and skipped.
func (l *Layout) ScanJSON() ([]models.StarredItem, error) {
	var items []models.StarredItem

	err := filepath.WalkDir(l.JSONDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == l.JSONDir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping %s: %v", path, err)
			return nil
		}
		item, err := models.ParseItem(data)
		if err != nil {
			logger.Warn("skipping %s: %v", path, err)
			return nil
		}
		if item.StarredAt.IsZero() {
			item.SavedOn = partitionDate(path)
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", l.JSONDir, err)
	}
	return items, nil
}
