// Package prompt builds the instructions sent to the completion API when
// generating or editing a Mermaid diagram.
package prompt

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultStyleKeywords is the vocabulary that marks an instruction as a
// color or styling change. English and Spanish color names are included
// because users mix both. Keywords match whole words, so inflections are
// listed explicitly.
var DefaultStyleKeywords = []string{
	"color", "colors", "colored", "colorful", "colour", "colours", "coloured",
	"colores", "colorear", "colorea", "cambiar el color", "cambia el color",
	"style", "styles", "styled", "styling", "restyle", "fill",
	"green", "blue", "red", "yellow", "orange", "purple", "grey", "gray",
	"black", "white", "pink", "violet", "brown", "turquoise",
	"verde", "azul", "rojo", "amarillo", "naranja", "morado", "púrpura",
	"gris", "negro", "blanco", "rosa", "violeta", "marrón", "turquesa",
}

// StyleDetector classifies instructions by case-insensitive whole-word match
// against a keyword list, so "red" does not fire on "required". False
// positives are acceptable; the result only toggles formatting rules.
type StyleDetector struct {
	re *regexp.Regexp
}

// NewStyleDetector returns a detector over keywords, or over
// DefaultStyleKeywords when keywords is empty.
func NewStyleDetector(keywords []string) *StyleDetector {
	if len(keywords) == 0 {
		keywords = DefaultStyleKeywords
	}
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
	}
	if len(quoted) == 0 {
		return &StyleDetector{}
	}
	// Longest first so multi-word phrases win over their first word.
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	re := regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}])`)
	return &StyleDetector{re: re}
}

// IsStyleChange reports whether instruction asks for a color or style change.
func (d *StyleDetector) IsStyleChange(instruction string) bool {
	if d.re == nil {
		return false
	}
	return d.re.MatchString(strings.ToLower(instruction))
}
