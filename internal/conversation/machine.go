package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadline-platform/internal/classify"
	"leadline-platform/internal/leads"
	"leadline-platform/internal/metrics"
	"leadline-platform/internal/notify"
	"leadline-platform/pkg/logger"
)

// The conversation state machine. One Service instance drives every call;
// per-call state lives in the Registry's sessions.
//
// Transitions are emitted as (utterance, next step) pairs: a handler's
// return value names the step that will interpret the caller's NEXT
// utterance, so the stored step is never out of phase with the question
// just asked.

// Notifier dispatches a lead notification without blocking the caller.
// onResult is invoked once the delivery outcome is known.
type Notifier interface {
	Deliver(lead leads.Summary, onResult func(notify.DeliveryResult))
}

// MetricsRecorder is the slice of the metrics recorder the conversation
// needs.
type MetricsRecorder interface {
	StartCall(userID string) string
	RecordPhaseLatency(callID string, phase metrics.Phase, d time.Duration)
	EndCall(callID string, outcome metrics.Outcome, urgency metrics.UrgencyLevel, quality metrics.LeadQuality)
	TrackUserActivation(userID string)
}

// BusinessIdentity is the single business this deployment answers for.
type BusinessIdentity struct {
	Name          string // "Mike's Plumbing"
	AssistantName string // spoken in the greeting
	OwnerName     string // spoken when promising callbacks

	// RecordingBaseURL, when set, yields per-call recording links in lead
	// notifications ("<base>/<call_sid>").
	RecordingBaseURL string
}

// ReplyAction tells the transport boundary what to do after speaking.
type ReplyAction string

const (
	// ActionListen: speak, then gather the next utterance.
	ActionListen ReplyAction = "listen"
	// ActionTransfer: speak, then dial the human operator.
	ActionTransfer ReplyAction = "transfer"
	// ActionHangup: speak, then end the call.
	ActionHangup ReplyAction = "hangup"
)

type Reply struct {
	Say    string
	Action ReplyAction
}

type Service struct {
	registry *Registry
	notifier Notifier
	metrics  MetricsRecorder
	archive  leads.Repository
	business BusinessIdentity

	clock func() time.Time
}

func NewService(registry *Registry, notifier Notifier, recorder MetricsRecorder, archive leads.Repository, business BusinessIdentity) *Service {
	return &Service{
		registry: registry,
		notifier: notifier,
		metrics:  recorder,
		archive:  archive,
		business: business,
		clock:    time.Now,
	}
}

// StartCall registers a session for a new inbound call and produces the
// greeting. Duplicate start events for the same call id replay the greeting
// without resetting state.
func (s *Service) StartCall(ctx context.Context, callID, from, to string) (Reply, error) {
	if strings.TrimSpace(callID) == "" {
		return Reply{}, errors.New("conversation: call id required")
	}

	sess := s.registry.Create(callID, from, to)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	greeting := fmt.Sprintf("Hello, this is %s for %s. How can I help you today?",
		s.business.AssistantName, s.business.Name)

	if sess.CurrentStep != StepGreeting {
		return Reply{Say: greeting, Action: ActionListen}, nil
	}

	ttsStart := s.clock()

	if s.metrics != nil {
		userID := userIDFromNumber(to)
		sess.MetricID = s.metrics.StartCall(userID)
		// A ringing webhook is proof the number forwarding works.
		s.metrics.TrackUserActivation(userID)
	}

	sess.appendTranscript(leads.SpeakerAI, greeting, s.clock())
	sess.CurrentStep = StepProblemIdentification
	sess.LastEventAt = s.clock()

	s.recordPhase(sess, metrics.PhaseTTS, s.clock().Sub(ttsStart))

	logger.From(ctx).Info("call started", "call_sid", callID, "from", from, "to", to)
	return Reply{Say: greeting, Action: ActionListen}, nil
}

// HandleSpeech advances the session for one recognized utterance.
// confidence is accepted for future low-confidence rejection but does not
// branch today.
func (s *Service) HandleSpeech(ctx context.Context, callID, text string, confidence float64) (Reply, error) {
	sess, err := s.registry.Get(callID)
	if err != nil {
		return Reply{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	log := logger.From(ctx).With("call_sid", callID, "step", string(sess.CurrentStep))
	log.Debug("speech received", "confidence", confidence)

	now := s.clock()
	sttStart := now
	sess.appendTranscript(leads.SpeakerCaller, text, now)
	sess.LastEventAt = now
	s.recordPhase(sess, metrics.PhaseSTT, s.clock().Sub(sttStart))

	nluStart := s.clock()
	defer func() {
		s.recordPhase(sess, metrics.PhaseNLU, s.clock().Sub(nluStart))
	}()

	// Input after a terminal step never re-enters terminal handling; the
	// lead was already generated and delivered exactly once.
	if sess.terminal() {
		return s.reprompt(sess), nil
	}

	// Transfer intent is an unconditional interrupt: it precedes and
	// overrides the step handler at every step.
	if classify.DetectTransferIntent(text) {
		return s.handleTransfer(ctx, sess), nil
	}

	var reply Reply
	var next Step
	switch sess.CurrentStep {
	case StepProblemIdentification:
		reply, next = s.handleProblem(sess, text)
	case StepUrgencyAssessment:
		reply, next = s.handleUrgency(sess, text)
	case StepLocationGathering:
		reply, next = s.handleLocation(sess, text)
	case StepContactConfirmation:
		reply, next = s.handleContact(sess, text)
	case StepSummary:
		return s.completeCall(ctx, sess), nil
	default:
		return s.reprompt(sess), nil
	}

	sess.appendTranscript(leads.SpeakerAI, reply.Say, s.clock())
	sess.CurrentStep = next
	return reply, nil
}

func (s *Service) handleProblem(sess *Session, text string) (Reply, Step) {
	sess.Collected.Problem = text
	sess.Collected.EmergencyKeywords = classify.DetectEmergencyKeywords(text)

	say := "I can help with that. To understand the urgency, is this something that needs immediate attention today, or can it wait until regular business hours?"
	if len(sess.Collected.EmergencyKeywords) > 0 {
		say = "I understand this sounds urgent. To help prioritize this properly, is there any immediate danger or is water actively flowing where it shouldn't be?"
	}
	return Reply{Say: say, Action: ActionListen}, StepUrgencyAssessment
}

func (s *Service) handleUrgency(sess *Session, text string) (Reply, Step) {
	sess.Collected.Urgency = classify.ClassifyUrgency(text, sess.Collected.EmergencyKeywords)

	say := fmt.Sprintf("Got it. Can you give me your address so I can let %s know where to come?", s.business.OwnerName)
	return Reply{Say: say, Action: ActionListen}, StepLocationGathering
}

func (s *Service) handleLocation(sess *Session, text string) (Reply, Step) {
	sess.Collected.Location = text
	return Reply{Say: "Perfect. And can I get your name please?", Action: ActionListen}, StepContactConfirmation
}

func (s *Service) handleContact(sess *Session, text string) (Reply, Step) {
	sess.Collected.CallerName = text

	say := fmt.Sprintf("Thank you %s. I'm sending all your details to %s right now, and you'll get a call back within %s. Is this number %s the best number to reach you?",
		text, s.business.OwnerName, classify.CallbackSLA(sess.Collected.Urgency), sess.From)
	return Reply{Say: say, Action: ActionListen}, StepSummary
}

// completeCall is the normal terminal transition: generate the lead
// summary, dispatch the notification, finalize metrics, and hang up.
func (s *Service) completeCall(ctx context.Context, sess *Session) Reply {
	say := fmt.Sprintf("Perfect. %s has all your information and will be in touch shortly. Thank you for calling!", s.business.OwnerName)
	sess.appendTranscript(leads.SpeakerAI, say, s.clock())

	// Completion is recorded before the delivery outcome is known so a
	// later failure callback can downgrade it, never the reverse.
	if s.metrics != nil && sess.MetricID != "" {
		quality := metrics.QualityVague
		if sess.Collected.Problem != "" && sess.Collected.Location != "" {
			quality = metrics.QualityQualified
		}
		s.metrics.EndCall(sess.MetricID, metrics.OutcomeCompleted, metricsUrgency(sess.Collected.Urgency), quality)
	}

	lead := s.buildLeadSummary(sess)
	s.dispatchLead(ctx, sess, lead)

	sess.CompletedAt = s.clock()
	logger.From(ctx).Info("call completed", "call_sid", sess.CallID, "urgency", string(sess.Collected.Urgency))
	return Reply{Say: say, Action: ActionHangup}
}

// handleTransfer is the interrupt path: acknowledge, deliver the lead as-is,
// and hand the call to the operator.
func (s *Service) handleTransfer(ctx context.Context, sess *Session) Reply {
	sess.Collected.TransferRequested = true

	say := fmt.Sprintf("I understand you'd like to speak with someone directly. Let me connect you with %s right away. Please hold on.", s.business.OwnerName)
	sess.appendTranscript(leads.SpeakerAI, say, s.clock())

	if s.metrics != nil && sess.MetricID != "" {
		s.metrics.EndCall(sess.MetricID, metrics.OutcomeTransferred, metrics.UrgencyLevelMedium, metrics.QualityUnqualified)
	}

	lead := s.buildLeadSummary(sess)
	s.dispatchLead(ctx, sess, lead)

	sess.CurrentStep = StepTransfer
	sess.CompletedAt = s.clock()
	logger.From(ctx).Info("call transferred", "call_sid", sess.CallID)
	return Reply{Say: say, Action: ActionTransfer}
}

func (s *Service) reprompt(sess *Session) Reply {
	say := "I'm sorry, I didn't quite understand that. Could you please repeat what you need help with?"
	sess.appendTranscript(leads.SpeakerAI, say, s.clock())
	return Reply{Say: say, Action: ActionListen}
}

// buildLeadSummary snapshots the session into the immutable lead record,
// filling placeholder defaults for anything never collected.
func (s *Service) buildLeadSummary(sess *Session) leads.Summary {
	now := s.clock()

	name := sess.Collected.CallerName
	if name == "" {
		name = leads.UnknownCallerName
	}
	address := sess.Collected.Location
	if address == "" {
		address = leads.AddressNotProvided
	}
	problem := sess.Collected.Problem
	if problem == "" {
		problem = leads.ProblemNotSpecified
	}
	urgency := sess.Collected.Urgency
	if urgency == "" {
		urgency = classify.UrgencyMedium
	}

	transcript := make([]leads.TranscriptEntry, len(sess.Transcript))
	copy(transcript, sess.Transcript)

	recordingURL := ""
	if s.business.RecordingBaseURL != "" {
		recordingURL = strings.TrimRight(s.business.RecordingBaseURL, "/") + "/" + sess.CallID
	}

	return leads.Summary{
		CallID:       sess.CallID,
		CallerName:   name,
		CallerNumber: sess.From,
		Address:      address,
		Problem:      problem,
		Urgency:      urgency,
		Flags: classify.BuildFlags(classify.FlagInput{
			Urgency:           sess.Collected.Urgency,
			TransferRequested: sess.Collected.TransferRequested,
			Problem:           sess.Collected.Problem,
			EmergencyKeywords: sess.Collected.EmergencyKeywords,
		}),
		Transcript:     transcript,
		DurationMillis: now.Sub(sess.StartTime).Milliseconds(),
		RecordingURL:   recordingURL,
		GeneratedAt:    now.UTC(),
	}
}

// dispatchLead archives the summary and hands it to the notifier. Archive
// failures are logged and swallowed; notification failures come back
// asynchronously and downgrade the call outcome to failed.
func (s *Service) dispatchLead(ctx context.Context, sess *Session, lead leads.Summary) {
	log := logger.From(ctx)

	if s.archive != nil {
		if err := s.archive.Append(ctx, lead); err != nil {
			log.Error("lead archive append failed", "call_sid", lead.CallID, "err", err)
		}
	}

	if s.notifier == nil {
		return
	}

	metricID := sess.MetricID
	failureUrgency := metrics.UrgencyLevelMedium
	if sess.Collected.Urgency == classify.UrgencyHigh {
		failureUrgency = metrics.UrgencyLevelEmergency
	}
	s.notifier.Deliver(lead, func(res notify.DeliveryResult) {
		if res.Success || s.metrics == nil || metricID == "" {
			return
		}
		s.metrics.EndCall(metricID, metrics.OutcomeFailed, failureUrgency, metrics.QualityQualified)
	})
}

func (s *Service) recordPhase(sess *Session, phase metrics.Phase, d time.Duration) {
	if s.metrics == nil || sess.MetricID == "" {
		return
	}
	s.metrics.RecordPhaseLatency(sess.MetricID, phase, d)
}

// metricsUrgency relabels call-level urgency onto the metrics scale:
// completed calls shift one notch up so reporting separates true
// emergencies from merely-high calls.
func metricsUrgency(u classify.Urgency) metrics.UrgencyLevel {
	switch u {
	case classify.UrgencyHigh:
		return metrics.UrgencyLevelEmergency
	case classify.UrgencyMedium:
		return metrics.UrgencyLevelHigh
	default:
		return metrics.UrgencyLevelMedium
	}
}

// userIDFromNumber derives the stable business-user id the metrics recorder
// keys on from the dialed number.
func userIDFromNumber(number string) string {
	var digits strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return "user-" + digits.String()
}
