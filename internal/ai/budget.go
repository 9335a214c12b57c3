package ai

import (
	"context"
	"fmt"
	"sync"
)

// BudgetChecker checks and records token usage against per-user budgets.
type BudgetChecker interface {
	// Check returns true if the user has budget remaining.
	Check(ctx context.Context, userID string) (bool, error)
	// Record records token usage for a user.
	Record(ctx context.Context, userID string, tokens int) error
	// Usage returns current usage and limit for a user.
	Usage(ctx context.Context, userID string) (used int64, budget int64, err error)
}

// InMemoryBudget is a simple in-memory budget tracker for development and
// single-instance deployments. cache.RedisBudget is the shared variant.
type InMemoryBudget struct {
	mu    sync.RWMutex
	limit int64            // per user; <= 0 is unlimited
	usage map[string]int64 // user -> tokens used
}

// NewInMemoryBudget creates a new in-memory budget tracker. limit applies to
// every user; zero means unlimited.
func NewInMemoryBudget(limit int64) *InMemoryBudget {
	return &InMemoryBudget{
		limit: limit,
		usage: make(map[string]int64),
	}
}

func (b *InMemoryBudget) Check(_ context.Context, userID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.limit <= 0 {
		return true, nil
	}
	return b.usage[userID] < b.limit, nil
}

func (b *InMemoryBudget) Record(_ context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[userID] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, userID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[userID], b.limit, nil
}
