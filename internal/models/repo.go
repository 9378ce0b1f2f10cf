package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StarredItem is one starred repository, normalized from whichever shape
// the payload arrived in.
type StarredItem struct {
	FullName    string
	Description string
	Language    string
	HTMLURL     string
	Stars       int
	Forks       int
	Topics      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// StarredAt is zero when the payload carried no star timestamp.
	StarredAt time.Time
	// SavedOn is the partition date of the JSON file the item was loaded
	// from. Zero for items fetched from the API.
	SavedOn time.Time

	// Raw is the payload exactly as received; it is what gets persisted.
	Raw json.RawMessage
}

// Owner returns the part of FullName before the slash.
func (s StarredItem) Owner() string {
	owner, _, _ := strings.Cut(s.FullName, "/")
	return owner
}

// Repo returns the part of FullName after the slash.
func (s StarredItem) Repo() string {
	_, repo, _ := strings.Cut(s.FullName, "/")
	return repo
}

// Watermark marks the newest star seen by a previous run.
type Watermark struct {
	FullName  string
	StarredAt time.Time
}

// Readme formats.
const (
	FormatMarkdown = "markdown"
	FormatOrg      = "org"
	FormatRST      = "rst"
	FormatText     = "txt"
)

type ReadmeResult struct {
	Content string
	// Format is FormatMarkdown or the source format the content came from.
	Format string
	// Path is the repository path the README was read from.
	Path string
	// Converted is true when Content is the converter's Markdown output.
	Converted bool
}

// NeedsNote reports whether the README did not start out as Markdown.
func (r *ReadmeResult) NeedsNote() bool {
	return r != nil && r.Format != FormatMarkdown
}

type SummaryResult struct {
	Summary    string   `json:"summary"`
	Categories []string `json:"categories"`
}

var ErrMissingFullName = errors.New("payload has no full_name")

type repoFields struct {
	FullName        string     `json:"full_name"`
	Description     *string    `json:"description"`
	Language        *string    `json:"language"`
	HTMLURL         string     `json:"html_url"`
	StargazersCount int        `json:"stargazers_count"`
	ForksCount      int        `json:"forks_count"`
	Topics          []string   `json:"topics"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// starPayload covers both upstream shapes: the starred envelope with a
// nested "repo" object, and a bare repository object.
type starPayload struct {
	StarredAt *time.Time  `json:"starred_at"`
	Repo      *repoFields `json:"repo"`
	repoFields
}

// ParseItem decodes a star payload into a StarredItem. Raw keeps the input
// bytes untouched.
func ParseItem(data []byte) (StarredItem, error) {
	var p starPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return StarredItem{}, fmt.Errorf("decoding star payload: %w", err)
	}

	fields := p.repoFields
	if p.Repo != nil {
		fields = *p.Repo
	}
	if fields.FullName == "" {
		return StarredItem{}, ErrMissingFullName
	}

	item := StarredItem{
		FullName:    fields.FullName,
		Description: deref(fields.Description),
		Language:    deref(fields.Language),
		HTMLURL:     fields.HTMLURL,
		Stars:       fields.StargazersCount,
		Forks:       fields.ForksCount,
		Topics:      fields.Topics,
		Raw:         append(json.RawMessage(nil), data...),
	}
	if item.Topics == nil {
		item.Topics = []string{}
	}
	if fields.CreatedAt != nil {
		item.CreatedAt = *fields.CreatedAt
	}
	if fields.UpdatedAt != nil {
		item.UpdatedAt = *fields.UpdatedAt
	}
	if p.StarredAt != nil {
		item.StarredAt = *p.StarredAt
	}
	return item, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
