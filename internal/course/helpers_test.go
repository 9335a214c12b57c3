package course_test

import (
	"encoding/json"
	"fmt"
	"strings"
)

// modelResponse builds a well-formed model answer with the requested shape.
func modelResponse(modules, topics, questions, resources int) string {
	type q struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	type r struct {
		Type        string `json:"type"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description,omitempty"`
	}
	type t struct {
		Title             string `json:"title"`
		Theory            string `json:"theory"`
		PracticeQuestions []q    `json:"practiceQuestions"`
		Resources         []r    `json:"resources"`
	}
	type m struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Topics      []t    `json:"topics"`
	}

	var out struct {
		Modules []m `json:"modules"`
	}
	for i := range modules {
		mod := m{
			Title:       fmt.Sprintf("Module %d", i+1),
			Description: fmt.Sprintf("Day %d overview", i+1),
		}
		for j := range topics {
			top := t{
				Title:             fmt.Sprintf("Topic %d.%d", i+1, j+1),
				Theory:            strings.Repeat(fmt.Sprintf("Theory for topic %d.%d. ", i+1, j+1), 3),
				// Empty, not null: the schema requires arrays.
				PracticeQuestions: []q{},
				Resources:         []r{},
			}
			for k := range questions {
				top.PracticeQuestions = append(top.PracticeQuestions, q{
					Question: fmt.Sprintf("Q%d?", k+1),
					Answer:   fmt.Sprintf("A%d", k+1),
				})
			}
			for k := range resources {
				top.Resources = append(top.Resources, r{
					Type:        "article",
					Title:       fmt.Sprintf("Resource %d", k+1),
					URL:         fmt.Sprintf("https://example.com/%d", k+1),
					Description: "Read this",
				})
			}
			mod.Topics = append(mod.Topics, top)
		}
		out.Modules = append(out.Modules, mod)
	}

	b, err := json.Marshal(out)
	if err != nil {
		panic(err)
	}
	return string(b)
}
