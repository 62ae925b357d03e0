package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// Twilio webhook form parsing. Twilio posts
// application/x-www-form-urlencoded by default; only the fields the
// conversation layer consumes are pulled out.
//
// Keep it minimal and provider-adapter-only. Conversation logic is not made
// here.

type VoiceInboundForm struct {
	CallSid    string
	AccountSid string
	From       string
	To         string
	CallStatus string
}

func ParseVoiceInbound(r *http.Request) (VoiceInboundForm, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceInboundForm{}, err
	}
	return VoiceInboundForm{
		CallSid:    r.PostFormValue("CallSid"),
		AccountSid: r.PostFormValue("AccountSid"),
		From:       normalizePhone(r.PostFormValue("From")),
		To:         normalizePhone(r.PostFormValue("To")),
		CallStatus: r.PostFormValue("CallStatus"),
	}, nil
}

type SpeechResultForm struct {
	CallSid      string
	SpeechResult string
	// Confidence is best-effort: absent or malformed parses as zero.
	Confidence float64
}

func ParseSpeechResult(r *http.Request) (SpeechResultForm, error) {
	if err := r.ParseForm(); err != nil {
		return SpeechResultForm{}, err
	}
	confidence, _ := strconv.ParseFloat(r.PostFormValue("Confidence"), 64)
	return SpeechResultForm{
		CallSid:      r.PostFormValue("CallSid"),
		SpeechResult: strings.TrimSpace(r.PostFormValue("SpeechResult")),
		Confidence:   confidence,
	}, nil
}

type SMSInboundForm struct {
	MessageSid string
	From       string
	Body       string
}

func ParseSMSInbound(r *http.Request) (SMSInboundForm, error) {
	if err := r.ParseForm(); err != nil {
		return SMSInboundForm{}, err
	}
	return SMSInboundForm{
		MessageSid: r.PostFormValue("MessageSid"),
		From:       normalizePhone(r.PostFormValue("From")),
		Body:       r.PostFormValue("Body"),
	}, nil
}

func normalizePhone(s string) string {
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return strings.TrimSpace(s)
}

// IsFinalCallStatus reports whether a status callback marks the end of the
// call's lifecycle, after which the session can be dropped.
func IsFinalCallStatus(status string) bool {
	switch strings.ToLower(status) {
	case "completed", "failed", "busy", "no-answer", "canceled":
		return true
	}
	return false
}
