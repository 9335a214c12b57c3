// Package course turns a model's free-text answer into a structured,
// persisted course and the per-topic documents derived from it.
package course

import "time"

// ResourceType tags a learning resource.
type ResourceType string

const (
	ResourceYouTube ResourceType = "youtube"
	ResourceWebsite ResourceType = "website"
	ResourceArticle ResourceType = "article"
)

// Normalize maps any value outside the known set to ResourceWebsite.
func (t ResourceType) Normalize() ResourceType {
	switch t {
	case ResourceYouTube, ResourceWebsite, ResourceArticle:
		return t
	default:
		return ResourceWebsite
	}
}

// Course is one generated course. It is written whole and read back whole.
type Course struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"ownerId,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Syllabus       string          `json:"syllabus"`
	DurationDays   int             `json:"durationDays"`
	Modules        []Module        `json:"modules"`
	TopicDocuments []TopicDocument `json:"topicDocuments"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Module is one day of a course. Day is 1-based and equals position+1.
type Module struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Day         int     `json:"day"`
	Topics      []Topic `json:"topics"`
}

type Topic struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Theory            string     `json:"theory"`
	PracticeQuestions []Question `json:"practiceQuestions"`
	Resources         []Resource `json:"resources"`
}

type Question struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Resource struct {
	ID          string       `json:"id"`
	Type        ResourceType `json:"type"`
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Description string       `json:"description,omitempty"`
}

// TopicDocument is the flattened, export-ready text of one topic. It is
// derived from its (module, topic) pair and never edited in place.
type TopicDocument struct {
	ID            string `json:"id"`
	ModuleID      string `json:"moduleId"`
	ModuleTitle   string `json:"moduleTitle"`
	ModuleDay     int    `json:"moduleDay"`
	TopicTitle    string `json:"topicTitle"`
	PlainTextBody string `json:"plainTextBody"`
	EncodedBody   string `json:"encodedBody"`
}

// Summary is the list view of a stored course.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	DurationDays int       `json:"durationDays"`
	Modules      int       `json:"modules"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summarize returns the list view of c.
func (c *Course) Summarize() Summary {
	return Summary{
		ID:           c.ID,
		Title:        c.Title,
		DurationDays: c.DurationDays,
		Modules:      len(c.Modules),
		CreatedAt:    c.CreatedAt,
	}
}
