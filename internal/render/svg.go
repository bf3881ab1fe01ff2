package render

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ViewBoxPadding is the fraction of the larger viewBox side added on every side.
const ViewBoxPadding = 0.15

var (
	rootTagRe   = regexp.MustCompile(`<svg\b[^>]*>`)
	viewBoxRe   = regexp.MustCompile(`\sviewBox="([^"]*)"`)
	errorTextRe = regexp.MustCompile(`<text\b([^>]*\bclass="[^"]*\berror-text\b[^"]*"[^>/]*)(/?)>`)
)

// PostProcess forces a white background and responsive sizing on the root
// svg element, pads its viewBox, centers it under scaling and hides error
// text left by the engine.
func PostProcess(svg string) string {
	loc := rootTagRe.FindStringIndex(svg)
	if loc == nil {
		return svg
	}

	tag := svg[loc[0]:loc[1]]
	tag = setAttr(tag, "style", "background-color: white; width: 100%; height: auto;")
	if m := viewBoxRe.FindStringSubmatch(tag); m != nil {
		if padded, ok := padViewBox(m[1], ViewBoxPadding); ok {
			tag = setAttr(tag, "viewBox", padded)
		}
	}
	tag = setAttr(tag, "preserveAspectRatio", "xMidYMid meet")

	out := svg[:loc[0]] + tag + svg[loc[1]:]
	return errorTextRe.ReplaceAllString(out, `<text$1 visibility="hidden"$2>`)
}

// setAttr replaces attribute name on an opening tag, or adds it after the
// element name.
func setAttr(tag, name, value string) string {
	attr := fmt.Sprintf(` %s="%s"`, name, value)
	re := regexp.MustCompile(`\s` + regexp.QuoteMeta(name) + `="[^"]*"`)
	if re.MatchString(tag) {
		return re.ReplaceAllLiteralString(tag, attr)
	}
	i := strings.IndexAny(tag[1:], " \t\r\n/>") + 1
	return tag[:i] + attr + tag[i:]
}

func padViewBox(s string, fraction float64) (string, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return "", false
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return "", false
		}
		v[i] = n
	}
	pad := math.Max(v[2], v[3]) * fraction
	return strings.Join([]string{
		formatFloat(v[0] - pad),
		formatFloat(v[1] - pad),
		formatFloat(v[2] + 2*pad),
		formatFloat(v[3] + 2*pad),
	}, " "), true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(math.Round(f*1000)/1000, 'f', -1, 64)
}
