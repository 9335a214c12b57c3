package course

import (
	"encoding/base64"
	"time"
)

// CourseMeta is the request data carried onto the generated course.
type CourseMeta struct {
	OwnerID      string
	Title        string
	Description  string
	Syllabus     string
	DurationDays int
}

// Normalizer assigns identifiers and day numbers to parsed modules and
// derives one TopicDocument per (module, topic) pair.
type Normalizer struct {
	IDs IDGenerator
	Now func() time.Time
}

// NewNormalizer creates a Normalizer backed by random UUIDs and wall time.
func NewNormalizer() Normalizer {
	return Normalizer{IDs: UUIDGenerator{}, Now: time.Now}
}

// Normalize builds a Course from parsed. Array order is preserved: module i
// becomes day i+1. Every entity gets a fresh id from n.IDs.
func (n Normalizer) Normalize(parsed ParsedModules, meta CourseMeta) *Course {
	ids := n.IDs
	if ids == nil {
		ids = UUIDGenerator{}
	}
	now := n.Now
	if now == nil {
		now = time.Now
	}

	c := &Course{
		ID:             ids.NextID(),
		OwnerID:        meta.OwnerID,
		Title:          meta.Title,
		Description:    meta.Description,
		Syllabus:       meta.Syllabus,
		DurationDays:   meta.DurationDays,
		Modules:        make([]Module, 0, len(parsed.Modules)),
		TopicDocuments: []TopicDocument{},
		CreatedAt:      now().UTC(),
	}

	for i, pm := range parsed.Modules {
		m := Module{
			ID:          ids.NextID(),
			Title:       pm.Title,
			Description: pm.Description,
			Day:         i + 1,
			Topics:      make([]Topic, 0, len(pm.Topics)),
		}
		for _, pt := range pm.Topics {
			m.Topics = append(m.Topics, normalizeTopic(ids, pt))
		}
		c.Modules = append(c.Modules, m)
	}

	for _, m := range c.Modules {
		for j, t := range m.Topics {
			c.TopicDocuments = append(c.TopicDocuments, NewTopicDocument(ids.NextID(), m, j, t))
		}
	}
	return c
}

func normalizeTopic(ids IDGenerator, pt ParsedTopic) Topic {
	t := Topic{
		ID:                ids.NextID(),
		Title:             pt.Title,
		Theory:            pt.Theory,
		PracticeQuestions: make([]Question, 0, len(pt.PracticeQuestions)),
		Resources:         make([]Resource, 0, len(pt.Resources)),
	}
	for _, q := range pt.PracticeQuestions {
		t.PracticeQuestions = append(t.PracticeQuestions, Question{
			ID:       ids.NextID(),
			Question: q.Question,
			Answer:   q.Answer,
		})
	}
	for _, r := range pt.Resources {
		t.Resources = append(t.Resources, Resource{
			ID:          ids.NextID(),
			Type:        ResourceType(r.Type).Normalize(),
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
	}
	return t
}

// NewTopicDocument derives the document for topic t at position topicIndex
// (0-based) inside module m.
func NewTopicDocument(id string, m Module, topicIndex int, t Topic) TopicDocument {
	body := TopicBody(m.Title, m.Day, topicIndex+1, t)
	return TopicDocument{
		ID:            id,
		ModuleID:      m.ID,
		ModuleTitle:   m.Title,
		ModuleDay:     m.Day,
		TopicTitle:    t.Title,
		PlainTextBody: body,
		EncodedBody:   base64.StdEncoding.EncodeToString([]byte(body)),
	}
}
