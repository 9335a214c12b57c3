// Package render lays out topic documents on fixed-size pages and draws them
// as PDF or PNG.
package render

import (
	"regexp"
	"strings"
)

var (
	fenceLine  = regexp.MustCompile("^\\s*```[A-Za-z0-9_+-]*\\s*$")
	imageLink  = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)
	link       = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	inlineCode = regexp.MustCompile("`([^`\n]*)`")
	heading    = regexp.MustCompile(`^\s{0,3}#{1,6}\s+`)

	// Emphasis markers only count when they are not inside a word, so
	// 2*x + 3*y and some_name stay as written.
	boldStar   = emphasis(`\*\*`, `*`)
	boldUnder  = emphasis(`__`, `_`)
	italicStar = emphasis(`\*`, `*`)
	italicUnd  = emphasis(`_`, `_`)

	identifier = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// emphasis matches marker-delimited text with a word boundary outside each
// marker. Groups: 1 leading boundary, 2 text, 3 trailing boundary.
func emphasis(marker, char string) *regexp.Regexp {
	c := regexp.QuoteMeta(char)
	edge := `[^\pL\pN` + c + `]`
	text := `([^` + c + `\s](?:[^` + c + `\n]*[^` + c + `\s])?)`
	return regexp.MustCompile(`(?m)(^|` + edge + `)` + marker + text + marker + `($|` + edge + `)`)
}

// stripEmphasis removes the markers matched by re. Matches that share a
// boundary character are picked up by the next pass. literal, when set,
// keeps a match whose text it accepts.
func stripEmphasis(s string, re *regexp.Regexp, literal func(string) bool) string {
	for {
		changed := false
		s = re.ReplaceAllStringFunc(s, func(m string) string {
			g := re.FindStringSubmatch(m)
			if g == nil || (literal != nil && literal(g[2])) {
				return m
			}
			changed = true
			return g[1] + g[2] + g[3]
		})
		if !changed {
			return s
		}
	}
}

// isDunder reports whether __text__ reads as a name like __init__ rather
// than bold text.
func isDunder(text string) bool {
	return identifier.MatchString(text)
}

// StripMarkdown removes markdown markup from s: code fences, heading
// markers, bold, italic and inline code markers. Links become "text (url)".
func StripMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if fenceLine.MatchString(line) {
			continue
		}
		out = append(out, heading.ReplaceAllString(line, ""))
	}
	s = strings.Join(out, "\n")

	s = imageLink.ReplaceAllString(s, "$1 ($2)")
	s = link.ReplaceAllString(s, "$1 ($2)")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = stripEmphasis(s, boldStar, nil)
	s = stripEmphasis(s, boldUnder, isDunder)
	s = stripEmphasis(s, italicStar, nil)
	s = stripEmphasis(s, italicUnd, nil)
	return s
}
