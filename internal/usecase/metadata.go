// File: internal/usecase/metadata.go
package usecase

import (
	"regexp"
	"strings"
)

// Metadata is what ExtractMetadata finds in accumulated output.
type Metadata struct {
	SEOTitle        string
	MetaDescription string
	CleanContent    string
	WordCount       int
}

var (
	// Matches "**SEO_TITLE:** x", "**SEO_TITLE**: x" and "SEO_TITLE: x" on a line of its own.
	markerRe = regexp.MustCompile(`(?i)^\s*(?:\*\*)?\s*(SEO_TITLE|META_DESCRIPTION)\s*(?:\*\*\s*:|:\s*\*\*|:)\s*(.*?)\s*$`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
)

// ExtractMetadata pulls the SEO marker lines out of text. Every marker line
// is removed; when a marker repeats, the first value wins. Missing markers
// come back as empty strings.
func ExtractMetadata(text string) Metadata {
	var md Metadata
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		m := markerRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			kept = append(kept, line)
			continue
		}
		val := strings.TrimSpace(m[2])
		switch strings.ToUpper(m[1]) {
		case "SEO_TITLE":
			if md.SEOTitle == "" {
				md.SEOTitle = val
			}
		case "META_DESCRIPTION":
			if md.MetaDescription == "" {
				md.MetaDescription = val
			}
		}
	}
	md.CleanContent = strings.TrimSpace(strings.Join(kept, "\n"))
	md.WordCount = CountWords(md.CleanContent)
	return md
}

// CountWords strips markup tags and counts whitespace-separated tokens.
func CountWords(s string) int {
	return len(strings.Fields(tagRe.ReplaceAllString(s, " ")))
}

// PlainText strips tags and collapses whitespace.
func PlainText(s string) string {
	return strings.Join(strings.Fields(tagRe.ReplaceAllString(s, " ")), " ")
}

// fallbackDescription is the first limit runes of the plain content.
func fallbackDescription(content string, limit int) string {
	plain := []rune(PlainText(strings.NewReplacer("#", "", "*", "").Replace(content)))
	if len(plain) <= limit {
		return string(plain)
	}
	return strings.TrimSpace(string(plain[:limit]))
}
