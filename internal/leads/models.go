package leads

import (
	"time"

	"leadline-platform/internal/classify"
)

// Summary is the immutable lead snapshot produced once per call at a
// terminal step. It is what the business operator ultimately receives.
//
// Invariants:
// - Produced exactly once per session (the state machine never re-enters a
//   terminal step).
// - Missing fields get the documented placeholder defaults, never "".

type Summary struct {
	CallID       string            `json:"call_id" db:"call_id"`
	CallerName   string            `json:"caller_name" db:"caller_name"`
	CallerNumber string            `json:"caller_number" db:"caller_number"`
	Address      string            `json:"address" db:"address"`
	Problem      string            `json:"problem" db:"problem"`
	Urgency      classify.Urgency  `json:"urgency" db:"urgency"`
	Flags        []string          `json:"flags" db:"flags"`
	Transcript   []TranscriptEntry `json:"transcript" db:"transcript"`

	// DurationMillis is call end minus call start at generation time.
	DurationMillis int64 `json:"duration_ms" db:"duration_ms"`

	RecordingURL string    `json:"recording_url,omitempty" db:"recording_url"`
	GeneratedAt  time.Time `json:"generated_at" db:"generated_at"`
}

// Placeholder defaults for fields the conversation never collected.
const (
	UnknownCallerName   = "Unknown"
	AddressNotProvided  = "Not provided"
	ProblemNotSpecified = "Not specified"
)

type Speaker string

const (
	SpeakerAI     Speaker = "ai"
	SpeakerCaller Speaker = "caller"
)

// TranscriptEntry is one turn of the conversation. Transcripts are
// append-only; entries are never edited after the fact.
type TranscriptEntry struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
