package leads

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"leadline-platform/internal/classify"
)

// PostgresRepo stores lead summaries in Postgres (pgx stdlib driver).
//
// Table (append-only; no UPDATE/DELETE path in this code):
//
//	CREATE TABLE lead_summaries (
//	    call_id       TEXT PRIMARY KEY,
//	    caller_name   TEXT NOT NULL,
//	    caller_number TEXT NOT NULL,
//	    address       TEXT NOT NULL,
//	    problem       TEXT NOT NULL,
//	    urgency       TEXT NOT NULL,
//	    flags         JSONB NOT NULL,
//	    transcript    JSONB NOT NULL,
//	    duration_ms   BIGINT NOT NULL,
//	    recording_url TEXT NOT NULL DEFAULT '',
//	    generated_at  TIMESTAMPTZ NOT NULL
//	);

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, s Summary) error {
	if s.CallID == "" {
		return ErrInvalidSummary
	}
	flags, err := json.Marshal(s.Flags)
	if err != nil {
		return fmt.Errorf("leads: marshal flags: %w", err)
	}
	transcript, err := json.Marshal(s.Transcript)
	if err != nil {
		return fmt.Errorf("leads: marshal transcript: %w", err)
	}

	// ON CONFLICT DO NOTHING keeps the append idempotent if the same call
	// id is ever delivered twice upstream.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO lead_summaries
			(call_id, caller_name, caller_number, address, problem, urgency,
			 flags, transcript, duration_ms, recording_url, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (call_id) DO NOTHING`,
		s.CallID, s.CallerName, s.CallerNumber, s.Address, s.Problem,
		string(s.Urgency), flags, transcript, s.DurationMillis,
		s.RecordingURL, s.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("leads: insert summary: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListRecent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT call_id, caller_name, caller_number, address, problem, urgency,
		       flags, transcript, duration_ms, recording_url, generated_at
		FROM lead_summaries
		ORDER BY generated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leads: list recent: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0, limit)
	for rows.Next() {
		var s Summary
		var urgency string
		var flags, transcript []byte
		if err := rows.Scan(
			&s.CallID, &s.CallerName, &s.CallerNumber, &s.Address, &s.Problem,
			&urgency, &flags, &transcript, &s.DurationMillis, &s.RecordingURL,
			&s.GeneratedAt,
		); err != nil {
			return nil, fmt.Errorf("leads: scan summary: %w", err)
		}
		s.Urgency = classify.Urgency(urgency)
		if err := json.Unmarshal(flags, &s.Flags); err != nil {
			return nil, fmt.Errorf("leads: unmarshal flags: %w", err)
		}
		if err := json.Unmarshal(transcript, &s.Transcript); err != nil {
			return nil, fmt.Errorf("leads: unmarshal transcript: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
