package telephony

import (
	"strings"
	"testing"

	"leadline-platform/internal/conversation"
)

func testRenderConfig() RenderConfig {
	return RenderConfig{
		SpeechActionURL:   "/webhooks/voice/speech",
		OperatorNumber:    "+15551234567",
		OperatorAvailable: true,
	}
}

func TestRenderReplyListen(t *testing.T) {
	xml, err := RenderReply(conversation.Reply{
		Say:    "How can I help you today?",
		Action: conversation.ActionListen,
	}, testRenderConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, want := range []string{
		`input="speech"`,
		`action="/webhooks/voice/speech"`,
		`method="POST"`,
		`speechTimeout="3"`,
		`speechModel="experimental_conversations"`,
		"How can I help you today?",
		"I didn&#39;t catch that",
	} {
		if !strings.Contains(xml, want) {
			t.Fatalf("expected %q in twiml:\n%s", want, xml)
		}
	}
	if !strings.Contains(xml, "<Dial") {
		t.Fatalf("no-input fallback should dial the operator:\n%s", xml)
	}
}

func TestRenderReplyListenRequiresActionURL(t *testing.T) {
	_, err := RenderReply(conversation.Reply{Say: "hi", Action: conversation.ActionListen}, RenderConfig{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestRenderReplyTransferDialsOperator(t *testing.T) {
	xml, err := RenderReply(conversation.Reply{
		Say:    "Let me connect you.",
		Action: conversation.ActionTransfer,
	}, testRenderConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, `timeout="30"`) || !strings.Contains(xml, "+15551234567") {
		t.Fatalf("expected operator dial with default timeout:\n%s", xml)
	}
	// Unanswered dials fall through to the announcement, then hang up.
	if !strings.Contains(xml, "passed along") || !strings.Contains(xml, "<Hangup") {
		t.Fatalf("expected unanswered fallback and hangup:\n%s", xml)
	}
}

func TestRenderReplyTransferSkipsDialWhenOperatorBusy(t *testing.T) {
	cfg := testRenderConfig()
	cfg.OperatorAvailable = false

	xml, err := RenderReply(conversation.Reply{
		Say:    "Let me connect you.",
		Action: conversation.ActionTransfer,
	}, cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(xml, "<Dial") {
		t.Fatalf("busy operator must not be dialed:\n%s", xml)
	}
	if !strings.Contains(xml, "passed along") {
		t.Fatalf("busy transfer should speak the fallback:\n%s", xml)
	}
}

func TestRenderReplyHangup(t *testing.T) {
	xml, err := RenderReply(conversation.Reply{
		Say:    "Thank you for calling!",
		Action: conversation.ActionHangup,
	}, testRenderConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, "Thank you for calling!") || !strings.Contains(xml, "<Hangup") {
		t.Fatalf("expected closing say and hangup:\n%s", xml)
	}
	if strings.Contains(xml, "<Dial") {
		t.Fatalf("hangup must not dial:\n%s", xml)
	}
}

func TestRenderMessage(t *testing.T) {
	xml, err := RenderMessage("Status updated to BUSY.")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, "<Message>Status updated to BUSY.</Message>") {
		t.Fatalf("unexpected message twiml:\n%s", xml)
	}
}

func TestRenderTechnicalFailure(t *testing.T) {
	xml := RenderTechnicalFailure(testRenderConfig())
	if !strings.Contains(xml, "technical issue") || !strings.Contains(xml, "<Dial") {
		t.Fatalf("failure response should apologize and transfer:\n%s", xml)
	}
}
