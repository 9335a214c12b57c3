package render

import (
	"regexp"
	"strings"
)

// LineKind is the typographic role of a single line.
type LineKind int

const (
	LineBody LineKind = iota
	LineHeading
	LineSubHeading
)

func (k LineKind) String() string {
	switch k {
	case LineHeading:
		return "heading"
	case LineSubHeading:
		return "subheading"
	default:
		return "body"
	}
}

// BlockKind is the role of a paragraph block.
type BlockKind int

const (
	BlockBody BlockKind = iota
	// BlockSection is a section title drawn on a shaded band.
	BlockSection
	// BlockItem is an enumerated question or resource: a bold first line
	// followed by normal text.
	BlockItem
)

func (k BlockKind) String() string {
	switch k {
	case BlockSection:
		return "section"
	case BlockItem:
		return "item"
	default:
		return "body"
	}
}

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

// IsSectionHeading reports whether line is one of the document section
// titles, ignoring case and a trailing colon.
func IsSectionHeading(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	l = strings.TrimSpace(strings.TrimSuffix(l, ":"))
	return l == "practice questions" || l == "learning resources"
}

// ClassifyLine returns the role of one line: section titles are headings,
// lines ending in ':' are sub-headings, everything else is body text.
func ClassifyLine(line string) LineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case IsSectionHeading(trimmed):
		return LineHeading
	case strings.HasSuffix(trimmed, ":"):
		return LineSubHeading
	default:
		return LineBody
	}
}

// ClassifyBlock returns the role of a paragraph block. Section titles are
// checked first because "Practice Questions" also contains "Question".
func ClassifyBlock(block string) BlockKind {
	block = strings.TrimSpace(block)
	first, _, multiline := strings.Cut(block, "\n")
	if !multiline && IsSectionHeading(first) {
		return BlockSection
	}
	if strings.Contains(first, "Question") || strings.Contains(first, "Resource") {
		return BlockItem
	}
	return BlockBody
}

// SplitBlocks splits text into paragraph blocks on blank lines. Empty blocks
// are dropped.
func SplitBlocks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var blocks []string
	for _, b := range blankLines.Split(text, -1) {
		b = strings.Trim(b, "\n")
		if strings.TrimSpace(b) == "" {
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks
}
