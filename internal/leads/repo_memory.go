package leads

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests
// and local development. It is not intended for production use.

type MemoryRepo struct {
	mu        sync.Mutex
	summaries []Summary
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, s Summary) error {
	if s.CallID == "" {
		return ErrInvalidSummary
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
	return nil
}

func (r *MemoryRepo) ListRecent(ctx context.Context, limit int) ([]Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.summaries) {
		limit = len(r.summaries)
	}
	// newest first
	out := make([]Summary, 0, limit)
	for i := len(r.summaries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.summaries[i])
	}
	return out, nil
}
