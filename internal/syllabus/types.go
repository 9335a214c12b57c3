// Package syllabus loads course presets from YAML files.
package syllabus

// Preset is a ready-made course request loaded from YAML.
type Preset struct {
	ID           string   `yaml:"id" json:"id"`
	Title        string   `yaml:"title" json:"title"`
	Description  string   `yaml:"description" json:"description"`
	Syllabus     string   `yaml:"syllabus" json:"syllabus"`
	DurationDays int      `yaml:"duration_days" json:"durationDays"`
	Tags         []string `yaml:"tags" json:"tags,omitempty"`
}
