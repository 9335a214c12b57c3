package course

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator hands out identifiers that are unique within a process.
type IDGenerator interface {
	NextID() string
}

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NextID() string {
	return uuid.NewString()
}

// SequenceGenerator issues "{Prefix}{n}" with n counting from 1. Output is
// deterministic, which makes golden tests reproducible.
type SequenceGenerator struct {
	Prefix string

	mu sync.Mutex
	n  int
}

// NewSequenceGenerator creates a SequenceGenerator with the given prefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{Prefix: prefix}
}

func (g *SequenceGenerator) NextID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%d", g.Prefix, g.n)
}
