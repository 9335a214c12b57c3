package render

import "strings"

// Wrap breaks text into lines no wider than width as reported by measure.
// Words wider than a whole line are split between runes.
func Wrap(text string, width float64, measure func(string) float64) []string {
	var lines []string
	cur := ""
	for _, word := range strings.Fields(text) {
		if measure(word) > width {
			if cur != "" {
				lines = append(lines, cur)
			}
			pieces := splitWord(word, width, measure)
			lines = append(lines, pieces[:len(pieces)-1]...)
			cur = pieces[len(pieces)-1]
			continue
		}
		if cur == "" {
			cur = word
			continue
		}
		if candidate := cur + " " + word; measure(candidate) <= width {
			cur = candidate
		} else {
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

func splitWord(word string, width float64, measure func(string) float64) []string {
	var out []string
	cur := ""
	for _, r := range word {
		candidate := cur + string(r)
		if cur != "" && measure(candidate) > width {
			out = append(out, cur)
			cur = string(r)
			continue
		}
		cur = candidate
	}
	return append(out, cur)
}
