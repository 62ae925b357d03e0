package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"

	"leadline-platform/internal/conversation"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives we need at the adapter boundary.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr"`
	SpeechModel   string   `xml:"speechModel,attr,omitempty"`
	Say           *twimlSay
}

type twimlDial struct {
	XMLName xml.Name `xml:"Dial"`
	Timeout int      `xml:"timeout,attr,omitempty"`
	Number  string   `xml:"Number,omitempty"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlMessage struct {
	XMLName xml.Name `xml:"Message"`
	Body    string   `xml:",chardata"`
}

const (
	sayVoice           = "alice"
	defaultDialTimeout = 30

	noInputFallback  = "I didn't catch that. Let me transfer you to our operator."
	transferFallback = "Sorry, we couldn't reach anyone right now. Your details have been passed along and you'll get a call back shortly. Goodbye."
	technicalFailure = "I'm sorry, there's a technical issue. Let me transfer you to our operator."
)

// RenderConfig carries the deployment facts the voice markup needs.
type RenderConfig struct {
	// SpeechActionURL is where Gather posts the recognized utterance.
	SpeechActionURL string

	OperatorNumber string

	// OperatorAvailable gates Dial verbs: when the operator has texted
	// BUSY, transfers speak the fallback instead of ringing them.
	OperatorAvailable bool

	DialTimeoutSeconds int
}

func (c RenderConfig) dialTimeout() int {
	if c.DialTimeoutSeconds > 0 {
		return c.DialTimeoutSeconds
	}
	return defaultDialTimeout
}

func say(text string) twimlSay {
	return twimlSay{Voice: sayVoice, Text: text}
}

// RenderReply maps a conversation reply to voice TwiML.
func RenderReply(reply conversation.Reply, cfg RenderConfig) (string, error) {
	var r twimlResponse

	switch reply.Action {
	case conversation.ActionListen:
		if strings.TrimSpace(cfg.SpeechActionURL) == "" {
			return "", errors.New("telephony: speech action url required for listen")
		}
		prompt := say(reply.Say)
		r.Verbs = append(r.Verbs, twimlGather{
			Input:         "speech",
			Action:        cfg.SpeechActionURL,
			Method:        "POST",
			SpeechTimeout: "3",
			SpeechModel:   "experimental_conversations",
			Say:           &prompt,
		})
		// Gather falls through here when the caller says nothing.
		r.Verbs = append(r.Verbs, say(noInputFallback))
		appendOperatorDial(&r, cfg)

	case conversation.ActionTransfer:
		r.Verbs = append(r.Verbs, say(reply.Say))
		appendOperatorDial(&r, cfg)

	case conversation.ActionHangup:
		r.Verbs = append(r.Verbs, say(reply.Say), twimlHangup{})

	default:
		return "", errors.New("telephony: unknown reply action")
	}

	return encodeTwiML(r)
}

// appendOperatorDial rings the operator when they are available, and in
// every case ends with the fallback announcement and a hangup. Dial falls
// through to the next verb when unanswered.
func appendOperatorDial(r *twimlResponse, cfg RenderConfig) {
	if cfg.OperatorAvailable && strings.TrimSpace(cfg.OperatorNumber) != "" {
		r.Verbs = append(r.Verbs, twimlDial{
			Timeout: cfg.dialTimeout(),
			Number:  cfg.OperatorNumber,
		})
	}
	r.Verbs = append(r.Verbs, say(transferFallback), twimlHangup{})
}

// RenderMessage wraps an SMS reply body.
func RenderMessage(body string) (string, error) {
	return encodeTwiML(twimlResponse{Verbs: []any{twimlMessage{Body: body}}})
}

// RenderTechnicalFailure is the last-resort response when the conversation
// layer errors out mid-call.
func RenderTechnicalFailure(cfg RenderConfig) string {
	var r twimlResponse
	r.Verbs = append(r.Verbs, say(technicalFailure))
	appendOperatorDial(&r, cfg)

	out, err := encodeTwiML(r)
	if err != nil {
		// Static verbs cannot fail to encode; keep the signature simple.
		return xml.Header + "<Response><Hangup/></Response>"
	}
	return out
}

func encodeTwiML(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
