package syllabus

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader loads and caches syllabus presets from the filesystem.
//
// A preset is a YAML file with an id. Long syllabi may live next to it in a
// markdown file of the same name ending in ".syllabus.md", which replaces
// the inline syllabus field.
type Loader struct {
	rootDir string
	presets map[string]Preset
	mu      sync.RWMutex
}

// NewLoader creates a loader and reads every preset under rootDir.
// A missing directory yields an empty loader.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		presets: make(map[string]Preset),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading syllabi: %w", err)
	}

	slog.Info("syllabus presets loaded", "path", rootDir, "presets", len(l.presets))
	return l, nil
}

// Get returns a preset by ID.
func (l *Loader) Get(id string) (Preset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.presets[id]
	return p, ok
}

// All returns every preset ordered by ID.
func (l *Loader) All() []Preset {
	l.mu.RLock()
	defer l.mu.RUnlock()
	presets := make([]Preset, 0, len(l.presets))
	for _, p := range l.presets {
		presets = append(presets, p)
	}
	slices.SortFunc(presets, func(a, b Preset) int { return strings.Compare(a.ID, b.ID) })
	return presets
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadPreset(path)
		}
		return nil
	})
}

func (l *Loader) loadPreset(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		slog.Warn("skipping invalid syllabus YAML", "path", path, "error", err)
		return nil
	}
	if p.ID == "" {
		return nil // Not a preset file
	}

	base := strings.TrimSuffix(strings.TrimSuffix(path, ".yaml"), ".yml")
	if md, err := os.ReadFile(base + ".syllabus.md"); err == nil {
		p.Syllabus = string(md)
	}
	p.Syllabus = strings.TrimSpace(p.Syllabus)
	if p.DurationDays < 1 {
		p.DurationDays = 1
	}

	l.mu.Lock()
	if _, dup := l.presets[p.ID]; dup {
		slog.Warn("duplicate syllabus preset id, keeping last", "id", p.ID, "path", path)
	}
	l.presets[p.ID] = p
	l.mu.Unlock()

	return nil
}
