package course

import (
	"fmt"
	"strings"
)

// Section headers of a topic body. The renderer finds section boundaries by
// matching these, so they must not change.
const (
	PracticeQuestionsHeader = "Practice Questions:"
	LearningResourcesHeader = "Learning Resources:"
	NoDescription           = "No description provided"
)

// TopicBody renders the plain-text body of a topic document:
//
//	{module} - {topic}
//	Day {day} - Topic {n}
//
//	{theory}
//
//	Practice Questions:
//
//	Question 1:
//	...
func TopicBody(moduleTitle string, day, topicNumber int, t Topic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", moduleTitle, t.Title)
	fmt.Fprintf(&b, "Day %d - Topic %d\n\n", day, topicNumber)
	b.WriteString(t.Theory)

	b.WriteString("\n\n" + PracticeQuestionsHeader + "\n\n")
	for i, q := range t.PracticeQuestions {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Question %d: \n%s\n\nAnswer: %s", i+1, q.Question, q.Answer)
	}

	b.WriteString("\n\n" + LearningResourcesHeader + "\n\n")
	for i, r := range t.Resources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		desc := r.Description
		if strings.TrimSpace(desc) == "" {
			desc = NoDescription
		}
		fmt.Fprintf(&b, "Resource %d: %s\nType: %s\nURL: %s\nDescription: %s", i+1, r.Title, r.Type, r.URL, desc)
	}
	return b.String()
}
