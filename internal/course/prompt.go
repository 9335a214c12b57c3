package course

import (
	"fmt"
	"strings"
)

const (
	topicsPerModule   = 2
	questionsPerTopic = 3
	resourcesPerTopic = 3
	minTheoryWords    = 400
)

// responseShape documents the object the model must return. It mirrors the
// schema enforced by ParseResponse.
const responseShape = `{
  "modules": [
    {
      "title": "string",
      "description": "string",
      "topics": [
        {
          "title": "string",
          "theory": "string",
          "practiceQuestions": [
            { "question": "string", "answer": "string" }
          ],
          "resources": [
            { "type": "youtube | website | article", "title": "string", "url": "string", "description": "string" }
          ]
        }
      ]
    }
  ]
}`

// BuildPrompt returns the instruction sent to the model for a course with
// one module per day. durationDays below 1 is treated as 1.
func BuildPrompt(title, syllabus string, durationDays int) string {
	if durationDays < 1 {
		durationDays = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert instructional designer. Create a %d-day course titled %q.\n\n", durationDays, title)
	b.WriteString("Syllabus:\n")
	b.WriteString(strings.TrimSpace(syllabus))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Produce exactly %d modules, one per day, in teaching order. For each module provide:\n", durationDays)
	b.WriteString("- a title\n")
	b.WriteString("- a short description (one or two sentences)\n")
	fmt.Fprintf(&b, "- exactly %d topics\n\n", topicsPerModule)

	b.WriteString("For each topic provide:\n")
	b.WriteString("- a title\n")
	fmt.Fprintf(&b, "- a theory explanation of at least %d words, written as plain paragraphs separated by blank lines\n", minTheoryWords)
	fmt.Fprintf(&b, "- exactly %d practice questions, each with a worked answer\n", questionsPerTopic)
	fmt.Fprintf(&b, "- exactly %d learning resources, each with a type of \"youtube\", \"website\" or \"article\", a title, a URL and a one-line description\n\n", resourcesPerTopic)

	b.WriteString("Respond with a single well-formed JSON object and nothing else. It must match this structure:\n")
	b.WriteString(responseShape)
	b.WriteString("\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Do not wrap the JSON in code fences or add commentary before or after it.\n")
	b.WriteString("- Do not use markdown or any special formatting inside string values: no headings, asterisks, backticks or link syntax.\n")
	b.WriteString("- Escape quotes and newlines inside strings so the JSON parses.\n")
	return b.String()
}
