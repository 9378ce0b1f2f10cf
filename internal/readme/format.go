package readme

import (
	"path"
	"strings"

	"github.com/kevinmichaelchen/star-vault/internal/models"
)

// preferred README paths, in lookup order.
var preferred = []string{
	"README.md",
	"README.markdown",
	"readme.md",
	"README.org",
	"README.rst",
	"README.txt",
	"README.rdoc",
	"README.adoc",
	"README",
}

// Candidates is the full lookup order: the preferred names followed by
// their lowercase variants that are not already listed.
var Candidates = withLowercase(preferred)

// docExtensions are the extensions accepted when a root listing has no
// file with "readme" in its name.
var docExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".org":      true,
	".rst":      true,
	".txt":      true,
	".adoc":     true,
	".rdoc":     true,
}

// notReadme are root files that carry a documentation extension but are
// never a project's README. Keys are upper-cased stems.
var notReadme = map[string]bool{
	"AUTHORS":               true,
	"CHANGELOG":             true,
	"CHANGES":               true,
	"CMAKELISTS":            true,
	"CODE_OF_CONDUCT":       true,
	"CODEOWNERS":            true,
	"CONTRIBUTING":          true,
	"CONTRIBUTORS":          true,
	"COPYING":               true,
	"GOVERNANCE":            true,
	"HISTORY":               true,
	"LICENSE":               true,
	"MAINTAINERS":           true,
	"NEWS":                  true,
	"NOTICE":                true,
	"PULL_REQUEST_TEMPLATE": true,
	"RELEASE_NOTES":         true,
	"RELEASES":              true,
	"REQUIREMENTS":          true,
	"ROBOTS":                true,
	"SECURITY":              true,
	"SUPPORT":               true,
}

func withLowercase(names []string) []string {
	seen := make(map[string]bool, len(names)*2)
	out := make([]string, 0, len(names)*2)
	for _, pass := range []func(string) string{identity, strings.ToLower} {
		for _, n := range names {
			n = pass(n)
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

func identity(s string) string { return s }

// Classify returns the README format implied by name's extension. Org, reST,
// plain text and extensionless files need conversion; everything else is
// treated as Markdown.
func Classify(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".org":
		return models.FormatOrg
	case ".rst":
		return models.FormatRST
	case ".txt", "":
		return models.FormatText
	default:
		return models.FormatMarkdown
	}
}

// NeedsConversion reports whether format has to go through the converter.
func NeedsConversion(format string) bool {
	return format != models.FormatMarkdown
}

// pickFromListing chooses a README-like file from a root listing: the first
// file whose name contains "readme", else the first file with a
// documentation extension that is not a well-known non-README file such as
// CHANGELOG.md. It returns "" when nothing fits.
func pickFromListing(names []string) string {
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), "readme") {
			return n
		}
	}
	for _, n := range names {
		ext := path.Ext(n)
		if !docExtensions[strings.ToLower(ext)] {
			continue
		}
		stem := strings.ToUpper(strings.ReplaceAll(strings.TrimSuffix(n, ext), "-", "_"))
		if !notReadme[stem] {
			return n
		}
	}
	return ""
}
