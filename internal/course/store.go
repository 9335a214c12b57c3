package course

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Store persists whole courses keyed by id.
type Store interface {
	Save(ctx context.Context, c *Course) error
	Get(ctx context.Context, id string) (*Course, error)
	// List returns the newest courses of ownerID first. A limit <= 0 means no limit.
	List(ctx context.Context, ownerID string, limit int) ([]Summary, error)
}

// MemoryStore is an in-memory implementation of Store. Courses are stored
// as JSON so callers never share memory with the store.
type MemoryStore struct {
	courses map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory course store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses: make(map[string][]byte),
	}
}

func (s *MemoryStore) Save(_ context.Context, c *Course) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("course id is required")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode course: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = data
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Course, error) {
	s.mu.RLock()
	data, ok := s.courses[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, id)
	}

	var c Course
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode course: %w", err)
	}
	return &c, nil
}

func (s *MemoryStore) List(_ context.Context, ownerID string, limit int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Summary{}
	for _, data := range s.courses {
		var c Course
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode course: %w", err)
		}
		if c.OwnerID != ownerID {
			continue
		}
		out = append(out, c.Summarize())
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
