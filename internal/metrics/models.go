package metrics

import "time"

// Call, user, and system metric models for the in-process recorder.
//
// Latency invariant: TotalLatencyMillis is defined if and only if all three
// phase durations have been recorded, and it is exactly their sum. It is
// never derived from wall-clock end minus start.

type Phase string

const (
	PhaseSTT Phase = "stt"
	PhaseNLU Phase = "nlu"
	PhaseTTS Phase = "tts"
)

type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeTransferred Outcome = "transferred"
	OutcomeFailed      Outcome = "failed"
)

// UrgencyLevel is the metrics-facing urgency scale. It is deliberately a
// different vocabulary from the call-level high/medium/low scale: completed
// calls are relabeled one notch up (high becomes emergency, and so on) so
// that reporting distinguishes true emergencies from merely-high calls.
type UrgencyLevel string

const (
	UrgencyLevelLow       UrgencyLevel = "low"
	UrgencyLevelMedium    UrgencyLevel = "medium"
	UrgencyLevelHigh      UrgencyLevel = "high"
	UrgencyLevelEmergency UrgencyLevel = "emergency"
)

type LeadQuality string

const (
	QualityQualified   LeadQuality = "qualified"
	QualityUnqualified LeadQuality = "unqualified"
	QualityVague       LeadQuality = "vague"
)

type RetentionStatus string

const (
	RetentionActive  RetentionStatus = "active"
	RetentionAtRisk  RetentionStatus = "at_risk"
	RetentionChurned RetentionStatus = "churned"
)

// CallMetric is one call's performance and outcome record. Phase fields are
// nil until recorded.
type CallMetric struct {
	CallID string `json:"call_id"`
	UserID string `json:"user_id"`

	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	STTMillis *int64 `json:"stt_ms,omitempty"`
	NLUMillis *int64 `json:"nlu_ms,omitempty"`
	TTSMillis *int64 `json:"tts_ms,omitempty"`

	TotalLatencyMillis *int64 `json:"total_latency_ms,omitempty"`

	Outcome Outcome      `json:"outcome"`
	Urgency UrgencyLevel `json:"urgency"`
	Quality LeadQuality  `json:"quality"`
}

// UserMetric is one business user's aggregate activity record, upserted on
// every call end.
type UserMetric struct {
	UserID string `json:"user_id"`

	SignupDate     time.Time  `json:"signup_date"`
	ActivationDate *time.Time `json:"activation_date,omitempty"`
	LastActiveDate time.Time  `json:"last_active_date"`

	TotalCalls     int `json:"total_calls"`
	QualifiedLeads int `json:"qualified_leads"`

	RetentionStatus RetentionStatus `json:"retention_status"`
}

// SystemMetric is a point-in-time snapshot over the trailing 24 hours.
type SystemMetric struct {
	Timestamp            time.Time `json:"timestamp"`
	ActiveUsers          int       `json:"active_users"`
	CallsLast24h         int       `json:"calls_last_24h"`
	AverageLatencyMillis int64     `json:"average_latency_ms"`
	UptimePercent        float64   `json:"uptime_percent"`
	ErrorRatePercent     float64   `json:"error_rate_percent"`
}

// TimeRange filters by call start time. A zero bound is unbounded.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (tr TimeRange) contains(t time.Time) bool {
	if !tr.From.IsZero() && t.Before(tr.From) {
		return false
	}
	if !tr.To.IsZero() && t.After(tr.To) {
		return false
	}
	return true
}

type PerformanceStats struct {
	AverageLatencyMillis int64 `json:"average_latency_ms"`
	LatencyP95Millis     int64 `json:"latency_p95_ms"`
	LatencyP99Millis     int64 `json:"latency_p99_ms"`
	CallsUnderTarget     int   `json:"calls_under_target"`
	TotalCalls           int   `json:"total_calls"`
	TargetPercentage     int   `json:"target_percentage"`
}

type UserStats struct {
	TotalUsers          int `json:"total_users"`
	ActivatedUsers      int `json:"activated_users"`
	ActivationRate      int `json:"activation_rate"`
	ActiveUsers         int `json:"active_users"`
	RetentionRate       int `json:"retention_rate"`
	RecentSignups       int `json:"recent_signups"`
	ActivatedRecently   int `json:"activated_recently"`
	AverageCallsPerUser int `json:"average_calls_per_user"`
}

type TrendPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	LatencyMillis int64     `json:"latency_ms"`
	Calls         int       `json:"calls"`
	ErrorRate     float64   `json:"error_rate"`
}

type SystemHealth struct {
	Current SystemMetric `json:"current"`
	Trend   []TrendPoint `json:"trend"`
}
