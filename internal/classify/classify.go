package classify

import "strings"

// Lead classification heuristics.
//
// Everything in this package is a pure function over recognized speech text:
// no clock, no I/O, no stored state. The conversation state machine calls
// these once per utterance and stores the results on the session, so
// "evaluated once per call" semantics live there, not here.

type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// emergencyVocabulary is ordered: DetectEmergencyKeywords returns hits in
// this order regardless of where they appear in the utterance.
var emergencyVocabulary = []string{
	"emergency",
	"urgent",
	"flooding",
	"flood",
	"burst",
	"leak",
	"water everywhere",
	"no water",
	"sewage",
	"backup",
	"overflow",
	"gas smell",
	"electrical",
	"shock",
	"fire",
	"smoke",
	"burning",
	"sparks",
	"no power",
	"carbon monoxide",
}

var transferPhrases = []string{
	"human",
	"person",
	"agent",
	"operator",
	"real person",
	"speak to someone",
	"transfer",
	"connect me",
}

var urgentTerms = []string{"emergency", "urgent", "immediate", "flooding", "danger"}

var nearTermTerms = []string{"today", "soon", "asap"}

// DetectEmergencyKeywords returns every vocabulary entry contained in text,
// case-insensitive, in vocabulary order. Empty slice if none match.
func DetectEmergencyKeywords(text string) []string {
	lower := strings.ToLower(text)
	matched := make([]string, 0)
	for _, kw := range emergencyVocabulary {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// DetectTransferIntent reports whether the caller asked for a human.
func DetectTransferIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range transferPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ClassifyUrgency scores an urgency-question answer. emergencyKeywords are
// the keywords already detected in the problem description; any hit there
// forces high regardless of the answer text.
func ClassifyUrgency(text string, emergencyKeywords []string) Urgency {
	lower := strings.ToLower(text)
	if len(emergencyKeywords) > 0 {
		return UrgencyHigh
	}
	for _, term := range urgentTerms {
		if strings.Contains(lower, term) {
			return UrgencyHigh
		}
	}
	for _, term := range nearTermTerms {
		if strings.Contains(lower, term) {
			return UrgencyMedium
		}
	}
	return UrgencyLow
}

// vagueProblemThreshold is the minimum problem-description length that
// avoids the vagueness flag.
const vagueProblemThreshold = 10

// FlagInput carries the session signals BuildFlags reads.
type FlagInput struct {
	Urgency           Urgency
	TransferRequested bool
	Problem           string
	EmergencyKeywords []string
}

// BuildFlags produces operator-facing lead annotations in a fixed order:
// urgency, transfer, vagueness. Only applicable flags are included.
func BuildFlags(in FlagInput) []string {
	flags := make([]string, 0, 3)

	if in.Urgency == UrgencyHigh {
		kw := "HIGH PRIORITY"
		if len(in.EmergencyKeywords) > 0 {
			kw = strings.ToUpper(in.EmergencyKeywords[0])
		}
		flags = append(flags, "!! URGENT: "+kw)
	}
	if in.TransferRequested {
		flags = append(flags, "➡ TRANSFER REQUEST")
	}
	if len(in.Problem) < vagueProblemThreshold {
		flags = append(flags, "⚠ VAGUE DESCRIPTION")
	}
	return flags
}

// CallbackSLA is the callback window promised to the caller and printed in
// the operator notification. High urgency gets the short window.
func CallbackSLA(u Urgency) string {
	if u == UrgencyHigh {
		return "5 minutes"
	}
	return "15 minutes"
}
