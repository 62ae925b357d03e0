package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"leadline-platform/internal/classify"
	"leadline-platform/internal/leads"
)

type fakeSMS struct {
	calls       int
	failUntil   int // attempts <= failUntil fail
	lastTo      string
	lastBody    string
	returnedIDs []string
}

func (f *fakeSMS) Send(ctx context.Context, to, body string) (string, error) {
	f.calls++
	f.lastTo = to
	f.lastBody = body
	if f.calls <= f.failUntil {
		return "", errors.New("carrier unavailable")
	}
	id := "SM-test"
	f.returnedIDs = append(f.returnedIDs, id)
	return id, nil
}

type fakeEmail struct {
	calls       int
	lastTo      string
	lastSubject string
	lastBody    string
	err         error
}

func (f *fakeEmail) Send(ctx context.Context, to, subject, htmlBody string) error {
	f.calls++
	f.lastTo = to
	f.lastSubject = subject
	f.lastBody = htmlBody
	return f.err
}

func testLead() leads.Summary {
	return leads.Summary{
		CallID:       "CA123",
		CallerName:   "Sarah Johnson",
		CallerNumber: "+15559876543",
		Address:      "123 Oak Street",
		Problem:      "kitchen is flooding",
		Urgency:      classify.UrgencyHigh,
		Flags:        []string{"!! URGENT: FLOODING"},
		RecordingURL: "https://recordings.example.com/CA123",
		GeneratedAt:  time.Unix(1700000000, 0).UTC(),
	}
}

func newTestService(sms SMSChannel, email EmailChannel) (*Service, *[]time.Duration) {
	svc := NewService(sms, email, Config{
		OperatorNumber: "+15551234567",
		OperatorEmail:  "operator@example.com",
	})
	var delays []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return svc, &delays
}

func TestSendLeadNotification_AllAttemptsFailThenFallback(t *testing.T) {
	sms := &fakeSMS{failUntil: 99}
	email := &fakeEmail{}
	svc, delays := newTestService(sms, email)

	res := svc.SendLeadNotification(context.Background(), testLead())

	if res.Success {
		t.Fatalf("expected failure result")
	}
	if res.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", res.Attempts)
	}
	if sms.calls != 3 {
		t.Fatalf("expected exactly 3 sms sends, got %d", sms.calls)
	}
	if email.calls != 1 {
		t.Fatalf("expected exactly 1 email fallback, got %d", email.calls)
	}
	// Two waits between three attempts: 1s then 2s.
	if len(*delays) != 2 || (*delays)[0] != time.Second || (*delays)[1] != 2*time.Second {
		t.Fatalf("unexpected backoff schedule: %v", *delays)
	}
	if !strings.Contains(res.Error, "email fallback") {
		t.Fatalf("error should mention the fallback, got %q", res.Error)
	}
}

func TestSendLeadNotification_SucceedsOnSecondAttempt(t *testing.T) {
	sms := &fakeSMS{failUntil: 1}
	email := &fakeEmail{}
	svc, delays := newTestService(sms, email)

	res := svc.SendLeadNotification(context.Background(), testLead())

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", res.Attempts)
	}
	if res.MessageID == "" {
		t.Fatalf("expected message id")
	}
	if email.calls != 0 {
		t.Fatalf("fallback must not fire on success, got %d calls", email.calls)
	}
	if len(*delays) != 1 || (*delays)[0] != time.Second {
		t.Fatalf("expected a single 1s wait, got %v", *delays)
	}
}

func TestSendLeadNotification_FallbackFailureNotRetried(t *testing.T) {
	sms := &fakeSMS{failUntil: 99}
	email := &fakeEmail{err: errors.New("smtp down")}
	svc, _ := newTestService(sms, email)

	res := svc.SendLeadNotification(context.Background(), testLead())
	if res.Success {
		t.Fatalf("expected failure result")
	}
	if email.calls != 1 {
		t.Fatalf("fallback must be attempted exactly once, got %d", email.calls)
	}
}

func TestSendLeadNotification_BackoffGrowthWithCustomBase(t *testing.T) {
	sms := &fakeSMS{failUntil: 99}
	svc := NewService(sms, &fakeEmail{}, Config{
		OperatorNumber: "+15551234567",
		OperatorEmail:  "operator@example.com",
		MaxAttempts:    4,
		BackoffBase:    100 * time.Millisecond,
	})
	var delays []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_ = svc.SendLeadNotification(context.Background(), testLead())

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if len(delays) != 3 {
		t.Fatalf("expected 3 waits for 4 attempts, got %v", delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("expected exponential growth %v, got %v", want, delays)
		}
	}
}

func TestFormatSMS_ContainsFlagsContactAndSLA(t *testing.T) {
	body := FormatSMS(testLead())

	for _, want := range []string{
		"🚨 NEW LEAD",
		"!! URGENT: FLOODING",
		"👤 Sarah Johnson",
		"📱 +15559876543",
		"📍 123 Oak Street",
		"🔧 PROBLEM:\nkitchen is flooding",
		"⏰ Callback within 5 minutes",
		"tel:+15559876543",
		"📋 Call ID: CA123",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("sms body missing %q:\n%s", want, body)
		}
	}
}

func TestFormatSMS_LowUrgencyMarkerAndSLA(t *testing.T) {
	lead := testLead()
	lead.Urgency = classify.UrgencyLow
	lead.Flags = nil
	lead.RecordingURL = ""

	body := FormatSMS(lead)
	if !strings.HasPrefix(body, "📞 NEW LEAD") {
		t.Fatalf("expected low-urgency marker, got:\n%s", body)
	}
	if !strings.Contains(body, "Callback within 15 minutes") {
		t.Fatalf("expected 15 minute SLA:\n%s", body)
	}
	if strings.Contains(body, "Recording:") {
		t.Fatalf("recording line must be omitted when no URL is set")
	}
}

func TestFormatEmailHTML_StatesSMSExhaustion(t *testing.T) {
	html := FormatEmailHTML(testLead())
	if !strings.Contains(html, "SMS DELIVERY FAILED") {
		t.Fatalf("email must state sms exhaustion")
	}
	if !strings.Contains(html, "Sarah Johnson") || !strings.Contains(html, "CA123") {
		t.Fatalf("email must include contact block and call id")
	}
}
