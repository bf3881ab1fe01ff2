package diagrams

import (
	"regexp"
	"strings"
)

var (
	nodeLineRe = regexp.MustCompile(`^\s*[A-Za-z0-9_]+(\[[^\]]+\])?`)
	edgeLineRe = regexp.MustCompile(`^\s*[A-Za-z0-9_]+\s*-->\s*[A-Za-z0-9_]+`)
)

// NormalizeForRender applies the syntax rewrites the renderer needs. Style
// directives are kept.
func NormalizeForRender(markup string) string {
	return strings.ReplaceAll(markup, "curve=basis", "curve=linear")
}

// Reduce strips inline styles and, for graphs and flowcharts, keeps only
// declaration, node, edge and style-directive lines. Other diagram types
// are returned with inline styles stripped.
func Reduce(markup string) string {
	cleaned := StripInlineStyles(markup)
	if !strings.Contains(cleaned, "flowchart") && !strings.Contains(cleaned, "graph") {
		return cleaned
	}

	var kept []string
	for _, line := range strings.Split(cleaned, "\n") {
		if keepLine(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func keepLine(line string) bool {
	if strings.Contains(line, "flowchart") || strings.Contains(line, "graph") {
		return true
	}
	if nodeLineRe.MatchString(line) || edgeLineRe.MatchString(line) {
		return true
	}
	t := strings.TrimSpace(line)
	for _, p := range []string{"classDef", "class ", "style ", "linkStyle"} {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}
