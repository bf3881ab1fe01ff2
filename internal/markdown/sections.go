// Package markdown splits an editor buffer into diagrammable sections and
// renders section bodies for preview.
package markdown

import (
	"regexp"
	"strings"
)

// DefaultPrompt is the generation instruction a fresh section starts with.
const DefaultPrompt = "Generate a mermaid diagram from this content"

var (
	headingRe       = regexp.MustCompile(`^#\s+[^#]`)
	headingPrefixRe = regexp.MustCompile(`^#\s+`)
)

// Section is a block of source text under one top-level heading together
// with the diagram state derived from it. Identity is positional.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Diagram string `json:"diagram"`
	Prompt  string `json:"prompt"`
}

// IsHeading reports whether line opens a new section: exactly one '#',
// whitespace, then at least one character other than '#'.
func IsHeading(line string) bool {
	return headingRe.MatchString(line)
}

// Split parses text into ordered sections. Text before the first heading is
// discarded. Every returned section has an empty diagram and the default
// prompt.
func Split(text string) []Section {
	var (
		sections []Section
		title    string
		content  []string
		open     bool
	)

	flush := func() {
		if !open {
			return
		}
		sections = append(sections, Section{
			Title:   title,
			Content: strings.Join(content, "\n"),
			Prompt:  DefaultPrompt,
		})
	}

	for _, line := range strings.Split(text, "\n") {
		if IsHeading(line) {
			flush()
			title = strings.TrimSpace(headingPrefixRe.ReplaceAllString(line, ""))
			content = nil
			open = true
			continue
		}
		if open {
			content = append(content, line)
		}
	}
	flush()

	return sections
}

// Reconcile carries diagram and prompt over from prev into next for every
// section whose position, title and content are unchanged. It returns the
// indexes in next that were carried over.
func Reconcile(prev, next []Section) []int {
	var kept []int
	for i := range next {
		if i >= len(prev) {
			break
		}
		if prev[i].Title != next[i].Title || prev[i].Content != next[i].Content {
			continue
		}
		next[i].Diagram = prev[i].Diagram
		next[i].Prompt = prev[i].Prompt
		kept = append(kept, i)
	}
	return kept
}

// Titles returns the section titles in order.
func Titles(sections []Section) []string {
	titles := make([]string, len(sections))
	for i, s := range sections {
		titles[i] = s.Title
	}
	return titles
}
