package conversation

import (
	"sync"
	"time"

	"leadline-platform/internal/classify"
	"leadline-platform/internal/leads"
)

// Step identifies which handler interprets the NEXT caller utterance.
//
// The order is fixed and forward-only; a session's step only ever advances
// through this sequence or jumps straight to StepTransfer. It never
// regresses.
type Step string

const (
	StepGreeting              Step = "greeting"
	StepProblemIdentification Step = "problem_identification"
	StepUrgencyAssessment     Step = "urgency_assessment"
	StepLocationGathering     Step = "location_gathering"
	StepContactConfirmation   Step = "contact_confirmation"
	StepSummary               Step = "summary"
	StepTransfer              Step = "transfer"
)

// CollectedData accumulates interview answers. Fields are write-once in the
// normal flow; each handler only sets fields no earlier handler touched.
type CollectedData struct {
	Problem           string
	Urgency           classify.Urgency
	Location          string
	CallerName        string
	EmergencyKeywords []string
	TransferRequested bool
}

// Session is one active phone call. All mutation happens under mu, taken by
// the Service for the duration of one utterance: webhook events for a call
// arrive sequentially, but the HTTP runtime is concurrent, so
// lookup-then-mutate must still be serialized per call id.
type Session struct {
	mu sync.Mutex

	CallID string
	From   string
	To     string

	CurrentStep Step
	Collected   CollectedData
	Transcript  []leads.TranscriptEntry

	StartTime time.Time

	// MetricID is this call's handle in the metrics recorder.
	MetricID string

	LastEventAt time.Time

	// CompletedAt is zero until a terminal step has run; once set, the
	// session is logically dead and only awaits eviction.
	CompletedAt time.Time
}

func (s *Session) terminal() bool { return !s.CompletedAt.IsZero() }

func (s *Session) appendTranscript(speaker leads.Speaker, text string, at time.Time) {
	s.Transcript = append(s.Transcript, leads.TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: at,
	})
}

// Snapshot is a read-only copy of a session's observable state, served to
// the reporting surface.
type Snapshot struct {
	CallID          string                  `json:"call_sid"`
	From            string                  `json:"from"`
	To              string                  `json:"to"`
	CurrentStep     Step                    `json:"current_step"`
	StartTime       time.Time               `json:"start_time"`
	DurationSeconds int                     `json:"duration_seconds"`
	Transcript      []leads.TranscriptEntry `json:"transcript"`
}

// Snapshot copies the session state under its lock.
func (s *Session) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := make([]leads.TranscriptEntry, len(s.Transcript))
	copy(transcript, s.Transcript)

	return Snapshot{
		CallID:          s.CallID,
		From:            s.From,
		To:              s.To,
		CurrentStep:     s.CurrentStep,
		StartTime:       s.StartTime,
		DurationSeconds: int(now.Sub(s.StartTime).Seconds()),
		Transcript:      transcript,
	}
}
