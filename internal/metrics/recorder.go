package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder aggregates per-call, per-user, and system metrics in process
// memory.
//
// Concurrency: a single mutex guards all aggregate structures. Sessions for
// different calls write concurrently; readers get copied snapshots, so
// reporting reads are eventually consistent with in-flight calls.

const (
	// latencyTargetMillis is the end-to-end response target a call should
	// stay under across stt + nlu + tts.
	latencyTargetMillis = 500

	// uptimePercent is a fixed constant until real uptime probing exists.
	uptimePercent = 99.9

	atRiskAfter  = 7 * 24 * time.Hour
	churnedAfter = 30 * 24 * time.Hour

	snapshotRetention = 7 * 24 * time.Hour
)

type Recorder struct {
	mu        sync.Mutex
	calls     []*CallMetric
	byID      map[string]*CallMetric
	users     map[string]*UserMetric
	snapshots []SystemMetric

	clock func() time.Time
	newID func() string
}

func NewRecorder() *Recorder {
	return &Recorder{
		byID:  make(map[string]*CallMetric),
		users: make(map[string]*UserMetric),
		clock: time.Now,
		newID: uuid.NewString,
	}
}

// StartCall registers a new call metric and returns its id. Outcome,
// urgency, and quality hold optimistic defaults until EndCall overwrites
// them.
func (r *Recorder) StartCall(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := &CallMetric{
		CallID:    r.newID(),
		UserID:    userID,
		StartTime: r.clock().UTC(),
		Outcome:   OutcomeCompleted,
		Urgency:   UrgencyLevelLow,
		Quality:   QualityQualified,
	}
	r.calls = append(r.calls, m)
	r.byID[m.CallID] = m
	return m.CallID
}

// RecordPhaseLatency sets the named phase duration and recomputes the total
// once all three phases are present. Unknown call ids are ignored.
func (r *Recorder) RecordPhaseLatency(callID string, phase Phase, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[callID]
	if !ok {
		return
	}
	ms := d.Milliseconds()
	switch phase {
	case PhaseSTT:
		m.STTMillis = &ms
	case PhaseNLU:
		m.NLUMillis = &ms
	case PhaseTTS:
		m.TTSMillis = &ms
	default:
		return
	}
	if m.STTMillis != nil && m.NLUMillis != nil && m.TTSMillis != nil {
		total := *m.STTMillis + *m.NLUMillis + *m.TTSMillis
		m.TotalLatencyMillis = &total
	}
}

// EndCall finalizes a call metric and upserts the owning user's aggregate.
// Calling it again for the same call overwrites the outcome fields, which
// is how a later notification failure downgrades a completed call.
func (r *Recorder) EndCall(callID string, outcome Outcome, urgency UrgencyLevel, quality LeadQuality) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[callID]
	if !ok {
		return
	}
	now := r.clock().UTC()
	m.EndTime = &now
	m.Outcome = outcome
	m.Urgency = urgency
	m.Quality = quality

	r.upsertUserLocked(m.UserID, quality == QualityQualified, now)
}

// upsertUserLocked refreshes a user's aggregate after a call. Retention is
// computed from the gap since the user's PREVIOUS activity, captured before
// lastActiveDate is refreshed to now.
func (r *Recorder) upsertUserLocked(userID string, qualified bool, now time.Time) {
	u, ok := r.users[userID]
	if !ok {
		u = &UserMetric{
			UserID:          userID,
			SignupDate:      now,
			LastActiveDate:  now,
			RetentionStatus: RetentionActive,
		}
		r.users[userID] = u
	}

	sincePrevious := now.Sub(u.LastActiveDate)
	switch {
	case sincePrevious > churnedAfter:
		u.RetentionStatus = RetentionChurned
	case sincePrevious > atRiskAfter:
		u.RetentionStatus = RetentionAtRisk
	default:
		u.RetentionStatus = RetentionActive
	}

	u.TotalCalls++
	if qualified {
		u.QualifiedLeads++
	}
	u.LastActiveDate = now
}

// TrackUserActivation marks the moment a user's forwarded number first
// proved live. The timestamp is set once and never overwritten. Unknown
// users are registered so activation can precede their first finished call.
func (r *Recorder) TrackUserActivation(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC()
	u, ok := r.users[userID]
	if !ok {
		u = &UserMetric{
			UserID:          userID,
			SignupDate:      now,
			LastActiveDate:  now,
			RetentionStatus: RetentionActive,
		}
		r.users[userID] = u
	}
	if u.ActivationDate != nil {
		return
	}
	u.ActivationDate = &now
}

// GetCallMetrics returns copies of call metrics, optionally filtered by
// user and start-time range.
func (r *Recorder) GetCallMetrics(userID string, tr *TimeRange) []CallMetric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.callMetricsLocked(userID, tr)
}

func (r *Recorder) callMetricsLocked(userID string, tr *TimeRange) []CallMetric {
	out := make([]CallMetric, 0, len(r.calls))
	for _, m := range r.calls {
		if userID != "" && m.UserID != userID {
			continue
		}
		if tr != nil && !tr.contains(m.StartTime) {
			continue
		}
		out = append(out, *m)
	}
	return out
}

// RecentCalls returns the n most recently started calls, oldest first.
func (r *Recorder) RecentCalls(n int) []CallMetric {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > len(r.calls) {
		n = len(r.calls)
	}
	out := make([]CallMetric, 0, n)
	for _, m := range r.calls[len(r.calls)-n:] {
		out = append(out, *m)
	}
	return out
}

// GetPerformanceStats aggregates latency statistics over calls whose total
// latency is defined. Percentiles use nearest-rank indexing
// (floor(n*0.95), floor(n*0.99)), not interpolation. An empty call set
// yields zeroed counters.
func (r *Recorder) GetPerformanceStats(tr *TimeRange) PerformanceStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.performanceStatsLocked(tr)
}

func (r *Recorder) performanceStatsLocked(tr *TimeRange) PerformanceStats {
	all := r.callMetricsLocked("", tr)

	latencies := make([]int64, 0, len(all))
	for _, m := range all {
		if m.TotalLatencyMillis != nil {
			latencies = append(latencies, *m.TotalLatencyMillis)
		}
	}
	if len(latencies) == 0 {
		return PerformanceStats{TotalCalls: len(all)}
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum int64
	under := 0
	for _, l := range latencies {
		sum += l
		if l < latencyTargetMillis {
			under++
		}
	}
	// nearest-rank: floor(n*q) is always < n for q < 1.
	n := len(latencies)
	p95 := latencies[int(math.Floor(float64(n)*0.95))]
	p99 := latencies[int(math.Floor(float64(n)*0.99))]

	return PerformanceStats{
		AverageLatencyMillis: int64(math.Round(float64(sum) / float64(n))),
		LatencyP95Millis:     p95,
		LatencyP99Millis:     p99,
		CallsUnderTarget:     under,
		TotalCalls:           len(all),
		TargetPercentage:     roundPercent(under, n),
	}
}

// GetUserStats aggregates user-retention statistics across all users.
func (r *Recorder) GetUserStats() UserStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC()
	recentCutoff := now.Add(-48 * time.Hour)

	var s UserStats
	totalCalls := 0
	for _, u := range r.users {
		s.TotalUsers++
		totalCalls += u.TotalCalls
		if u.ActivationDate != nil {
			s.ActivatedUsers++
		}
		if u.RetentionStatus == RetentionActive {
			s.ActiveUsers++
		}
		if u.SignupDate.After(recentCutoff) {
			s.RecentSignups++
			if u.ActivationDate != nil && !u.ActivationDate.After(recentCutoff) {
				s.ActivatedRecently++
			}
		}
	}
	if s.TotalUsers > 0 {
		s.ActivationRate = roundPercent(s.ActivatedUsers, s.TotalUsers)
		s.RetentionRate = roundPercent(s.ActiveUsers, s.TotalUsers)
		s.AverageCallsPerUser = int(math.Round(float64(totalCalls) / float64(s.TotalUsers)))
	}
	return s
}

// RecordSystemSnapshot appends a point-in-time system metric and prunes
// snapshots older than the retention window.
func (r *Recorder) RecordSystemSnapshot() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordSystemSnapshotLocked()
}

func (r *Recorder) recordSystemSnapshotLocked() {
	now := r.clock().UTC()
	dayAgo := now.Add(-24 * time.Hour)
	tr := &TimeRange{From: dayAgo, To: now}

	recent := r.callMetricsLocked("", tr)
	failed := 0
	for _, m := range recent {
		if m.Outcome == OutcomeFailed {
			failed++
		}
	}
	errorRate := 0.0
	if len(recent) > 0 {
		errorRate = float64(failed) / float64(len(recent)) * 100
	}

	active := 0
	for _, u := range r.users {
		if u.RetentionStatus == RetentionActive {
			active++
		}
	}

	r.snapshots = append(r.snapshots, SystemMetric{
		Timestamp:            now,
		ActiveUsers:          active,
		CallsLast24h:         len(recent),
		AverageLatencyMillis: r.performanceStatsLocked(tr).AverageLatencyMillis,
		UptimePercent:        uptimePercent,
		ErrorRatePercent:     errorRate,
	})

	cutoff := now.Add(-snapshotRetention)
	kept := r.snapshots[:0]
	for _, s := range r.snapshots {
		if s.Timestamp.After(cutoff) {
			kept = append(kept, s)
		}
	}
	r.snapshots = kept
}

// GetSystemHealth returns the latest snapshot plus a trailing trend of up
// to 24 snapshots. If no snapshot exists yet, one is taken first.
func (r *Recorder) GetSystemHealth() SystemHealth {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.snapshots) == 0 {
		r.recordSystemSnapshotLocked()
	}

	latest := r.snapshots[len(r.snapshots)-1]
	start := len(r.snapshots) - 24
	if start < 0 {
		start = 0
	}
	trend := make([]TrendPoint, 0, len(r.snapshots)-start)
	for _, s := range r.snapshots[start:] {
		trend = append(trend, TrendPoint{
			Timestamp:     s.Timestamp,
			LatencyMillis: s.AverageLatencyMillis,
			Calls:         s.CallsLast24h,
			ErrorRate:     s.ErrorRatePercent,
		})
	}
	return SystemHealth{Current: latest, Trend: trend}
}

func roundPercent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
