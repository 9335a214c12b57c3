package course

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ParsedModules is the validated model output before normalization. Only
// the fields the model is asked for are read; ids and days come later.
type ParsedModules struct {
	Modules []ParsedModule `json:"modules"`
}

type ParsedModule struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Topics      []ParsedTopic `json:"topics"`
}

type ParsedTopic struct {
	Title             string           `json:"title"`
	Theory            string           `json:"theory"`
	PracticeQuestions []ParsedQuestion `json:"practiceQuestions"`
	Resources         []ParsedResource `json:"resources"`
}

type ParsedQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type ParsedResource struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// responseSchema is the minimum shape a model response must have. Item
// counts beyond "at least one module and one topic" are deliberately loose:
// the prompt asks for fixed counts but the model does not always comply.
const responseSchema = `{
  "type": "object",
  "required": ["modules"],
  "properties": {
    "modules": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["title", "description", "topics"],
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"},
          "topics": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["title", "theory", "practiceQuestions", "resources"],
              "properties": {
                "title": {"type": "string"},
                "theory": {"type": "string"},
                "practiceQuestions": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "properties": {
                      "question": {"type": "string"},
                      "answer": {"type": "string"}
                    }
                  }
                },
                "resources": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "properties": {
                      "type": {"type": "string"},
                      "title": {"type": "string"},
                      "url": {"type": "string"},
                      "description": {"type": "string"}
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var (
	compiledSchema = mustCompileSchema(responseSchema)
	fencePattern   = regexp.MustCompile("```[A-Za-z0-9_+-]*")
)

func mustCompileSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile response schema: %v", err))
	}
	return s
}

// ExtractJSON returns the JSON candidate inside raw: the span from the first
// '{' to the last '}' (or all of raw when there is none), with code fences
// and their language tags removed. It is idempotent.
func ExtractJSON(raw string) string {
	candidate := raw
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		candidate = raw[start : end+1]
	}
	candidate = fencePattern.ReplaceAllString(candidate, "")
	return strings.TrimSpace(candidate)
}

// ParseResponse parses a model answer into modules. Any failure is a
// *ParseError wrapping ErrMalformedResponse; missing required fields are
// never defaulted.
func ParseResponse(raw string) (ParsedModules, error) {
	candidate := ExtractJSON(raw)
	if candidate == "" {
		return ParsedModules{}, &ParseError{Raw: raw, Reason: "response is empty"}
	}

	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return ParsedModules{}, &ParseError{Raw: raw, Reason: fmt.Sprintf("no valid JSON object found: %v", err)}
	}

	result, err := compiledSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return ParsedModules{}, &ParseError{Raw: raw, Reason: fmt.Sprintf("validate: %v", err)}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return ParsedModules{}, &ParseError{Raw: raw, Reason: strings.Join(problems, "; ")}
	}

	var parsed ParsedModules
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return ParsedModules{}, &ParseError{Raw: raw, Reason: fmt.Sprintf("decode modules: %v", err)}
	}
	return parsed, nil
}
