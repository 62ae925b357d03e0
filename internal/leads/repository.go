package leads

import (
	"context"
	"errors"
)

// Repository is the persistence contract for delivered lead summaries.
//
// It MUST be append-only: summaries are immutable snapshots, so no
// Update/Delete methods are provided by design. Archiving is best-effort
// from the caller's perspective; the conversation never fails because the
// archive did.

type Repository interface {
	Append(ctx context.Context, s Summary) error
	ListRecent(ctx context.Context, limit int) ([]Summary, error)
}

var ErrInvalidSummary = errors.New("leads: invalid summary")
