package diagrams

import (
	"fmt"
	"strings"
)

// Outline builds a graph TD diagram linking a document node to one node per
// section title, in order.
func Outline(document string, titles []string) string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	rootID := "doc_" + sanitizeID(document)
	b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", rootID, escapeMermaid(document)))

	for i, title := range titles {
		id := fmt.Sprintf("s%d_%s", i, sanitizeID(title))
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, escapeMermaid(title)))
		b.WriteString(fmt.Sprintf("    %s --> %s\n", rootID, id))
	}

	return b.String()
}

// sanitizeID converts a string into a safe mermaid node ID.
func sanitizeID(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		".", "_",
		"-", "_",
		" ", "_",
		"(", "_",
		")", "_",
		"[", "_",
		"]", "_",
		"{", "_",
		"}", "_",
		":", "_",
		"\"", "_",
		"'", "_",
		"#", "_",
	)
	return replacer.Replace(s)
}

// escapeMermaid escapes characters that have special meaning in mermaid labels.
func escapeMermaid(s string) string {
	return strings.NewReplacer(
		"\"", "#quot;",
		"(", "#lpar;",
		")", "#rpar;",
		"[", "#lsqb;",
		"]", "#rsqb;",
		"{", "#lbrace;",
		"}", "#rbrace;",
		"<", "#lt;",
		">", "#gt;",
	).Replace(s)
}
