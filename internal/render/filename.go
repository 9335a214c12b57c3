package render

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Filename returns "{courseName}_Day{day}_{topic}.{ext}" with spaces in the
// topic title replaced by underscores. Path separators and characters that
// are invalid in common filesystems are dropped.
func Filename(courseName string, day int, topicTitle, ext string) string {
	name := fmt.Sprintf("%s_Day%d_%s", strings.TrimSpace(courseName), day, strings.ReplaceAll(strings.TrimSpace(topicTitle), " ", "_"))
	return sanitizeFilename(name) + "." + strings.TrimPrefix(ext, ".")
}

// OutlineFilename returns "{courseName}_Outline.{ext}" for whole-course
// exports.
func OutlineFilename(courseName, ext string) string {
	return sanitizeFilename(strings.TrimSpace(courseName)+"_Outline") + "." + strings.TrimPrefix(ext, ".")
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
}

// ASCIIFilename folds name to ASCII for the plain filename parameter of a
// Content-Disposition header: accents are removed and anything else outside
// printable ASCII becomes '_'.
func ASCIIFilename(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, folded)
}
