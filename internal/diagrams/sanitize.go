// Package diagrams holds the line-level Mermaid heuristics: extracting
// markup from a model reply, stripping inline styles, validating, and
// reducing a diagram to its structural lines.
package diagrams

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNoChanges is returned when an edit produced the diagram it started from.
	ErrNoChanges = errors.New("no changes detected in the diagram, please specify the changes you want")
	// ErrInvalidDiagram is returned when a reply does not look like Mermaid markup.
	ErrInvalidDiagram = errors.New("the generated diagram is not valid, please try a more specific request")
)

// diagramKeywords are the line prefixes that mark markup as a diagram.
var diagramKeywords = []string{
	"graph",
	"flowchart",
	"sequenceDiagram",
	"classDiagram",
	"classDef",
	"erDiagram",
	"pie",
	"gantt",
	"stateDiagram",
	"journey",
	"timeline",
	"mindmap",
}

var (
	mermaidFenceRe = regexp.MustCompile("(?s)```mermaid[ \t]*\\r?\\n?(.*?)(?:```|$)")
	anyFenceRe     = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\\r?\\n(.*?)```")
	inlineStyleRe  = regexp.MustCompile(`\[\s*([^\]]*?)(?:fill:[^,\]]+|stroke:[^,\]]+|stroke-width:[^,\]]+)([^\]]*)\]`)
	emptyCommaRe   = regexp.MustCompile(`\[\s*,\s*\]`)
	emptyBracketRe = regexp.MustCompile(`\[\s*\]`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// Extract returns the Mermaid markup in a model reply: the body of a
// ```mermaid fence, else of the first fenced block, else the trimmed reply.
func Extract(reply string) string {
	if m := mermaidFenceRe.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := anyFenceRe.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(reply)
}

// StripInlineStyles removes fill, stroke and stroke-width attributes written
// inside node label brackets and drops brackets left empty.
func StripInlineStyles(markup string) string {
	for {
		next := inlineStyleRe.ReplaceAllString(markup, "[$1$2]")
		if next == markup {
			break
		}
		markup = next
	}
	markup = emptyCommaRe.ReplaceAllString(markup, "")
	return emptyBracketRe.ReplaceAllString(markup, "")
}

// NormalizeWhitespace collapses every whitespace run to one space and trims.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Equivalent reports whether a and b differ only in whitespace.
func Equivalent(a, b string) bool {
	return NormalizeWhitespace(a) == NormalizeWhitespace(b)
}

// IsValid reports whether some line of markup starts with a diagram keyword.
func IsValid(markup string) bool {
	for _, line := range trimmedLines(markup) {
		for _, kw := range diagramKeywords {
			if strings.HasPrefix(line, kw) {
				return true
			}
		}
	}
	return false
}

// hasStyleDirectives reports whether markup uses classDef, class or style lines.
func hasStyleDirectives(markup string) bool {
	for _, line := range trimmedLines(markup) {
		if strings.HasPrefix(line, "classDef") || strings.HasPrefix(line, "class ") || strings.HasPrefix(line, "style") {
			return true
		}
	}
	return false
}

// hasTypeDeclaration reports whether some line of markup declares a diagram
// type. classDef is a directive, not a declaration.
func hasTypeDeclaration(markup string) bool {
	for _, line := range trimmedLines(markup) {
		for _, kw := range diagramKeywords {
			if kw != "classDef" && strings.HasPrefix(line, kw) {
				return true
			}
		}
	}
	return false
}

// Sanitize turns a raw model reply into accepted markup. prior is the
// diagram being edited, empty for a first generation. styleChange keeps
// inline styles and enables the style recovery steps.
func Sanitize(reply, prior string, styleChange bool) (string, error) {
	markup := Extract(reply)
	if !styleChange {
		markup = StripInlineStyles(markup)
	}

	if prior != "" && Equivalent(prior, markup) {
		return "", ErrNoChanges
	}

	if hasStyleDirectives(markup) && !hasTypeDeclaration(markup) {
		markup = "graph TD\n" + markup
	}

	if !IsValid(markup) && styleChange && prior != "" {
		markup = prior + "\n" + markup
	}

	if !IsValid(markup) {
		return "", ErrInvalidDiagram
	}
	return markup, nil
}

func trimmedLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}
