package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kevinmichaelchen/star-vault/internal/models"
)

const readmeHeading = "## README"

// Document is everything that goes into one Markdown file.
type Document struct {
	Item      models.StarredItem
	StarredAt time.Time
	Readme    *models.ReadmeResult
	Summary   *models.SummaryResult
}

// Render produces the Markdown document for a star.
func Render(doc Document) string {
	item := doc.Item
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", item.FullName)
	if item.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", item.Description)
	}

	fmt.Fprintf(&b, "- **Stars:** %s\n", humanize.Comma(int64(item.Stars)))
	fmt.Fprintf(&b, "- **Forks:** %s\n", humanize.Comma(int64(item.Forks)))
	fmt.Fprintf(&b, "- **Language:** %s\n", orDefault(item.Language, "Unknown"))
	fmt.Fprintf(&b, "- **Created:** %s\n", formatDate(item.CreatedAt))
	fmt.Fprintf(&b, "- **Updated:** %s\n", formatDate(item.UpdatedAt))
	fmt.Fprintf(&b, "- **Starred:** %s\n\n", formatDate(doc.StarredAt))

	if item.HTMLURL != "" {
		fmt.Fprintf(&b, "[View on GitHub](%s)\n\n", item.HTMLURL)
	}

	if s := doc.Summary; s != nil && s.Summary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", strings.TrimSpace(s.Summary))
		if len(s.Categories) > 0 {
			fmt.Fprintf(&b, "*Categories: %s*\n\n", strings.Join(s.Categories, ", "))
		}
	}

	b.WriteString("## Topics\n\n")
	if len(item.Topics) == 0 {
		b.WriteString("_No topics_\n\n")
	}
	for i, topic := range item.Topics {
		fmt.Fprintf(&b, "- %s\n", topic)
		if i == len(item.Topics)-1 {
			b.WriteString("\n")
		}
	}

	if doc.Readme != nil {
		b.WriteString(RenderReadmeSection(doc.Readme))
	} else {
		fmt.Fprintf(&b, "## Description\n\n%s\n", orDefault(item.Description, "No description provided."))
	}

	return b.String()
}

// RenderReadmeSection renders the "## README" section, with a note when the
// README was not written in Markdown.
func RenderReadmeSection(r *models.ReadmeResult) string {
	var b strings.Builder
	b.WriteString(readmeHeading + "\n\n")

	if r.NeedsNote() {
		if r.Converted {
			fmt.Fprintf(&b, "> Note: converted to Markdown from %s.\n\n", r.Format)
		} else {
			fmt.Fprintf(&b, "> Note: original format is %s; shown unconverted.\n\n", r.Format)
		}
	}

	b.WriteString(strings.TrimRight(r.Content, "\n"))
	b.WriteString("\n")
	return b.String()
}

// HasReadmeSection reports whether doc already carries a README section.
func HasReadmeSection(doc string) bool {
	for _, line := range strings.Split(doc, "\n") {
		if strings.TrimRight(line, " \r") == readmeHeading {
			return true
		}
	}
	return false
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.UTC().Format("2006-01-02")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
