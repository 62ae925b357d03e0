package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Channel implementations.
//
// The Twilio channel calls the Messages REST endpoint directly with
// net/http. No provider SDK dependency at this boundary; the request is a
// single form POST with basic auth.

const twilioDefaultBaseURL = "https://api.twilio.com"

type TwilioSMS struct {
	AccountSID string
	AuthToken  string
	From       string

	// BaseURL overrides the API host in tests.
	BaseURL string
	Client  *http.Client
}

func (t *TwilioSMS) Send(ctx context.Context, to, body string) (string, error) {
	base := t.BaseURL
	if base == "" {
		base = twilioDefaultBaseURL
	}
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.From)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(base, "/"), t.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("notify: build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.AccountSID, t.AuthToken)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("notify: sms request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("notify: sms rejected: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out struct {
		Sid string `json:"sid"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("notify: decode sms response: %w", err)
	}
	return out.Sid, nil
}

// SMTPEmail sends the HTML fallback through a plain SMTP relay.
//
// net/smtp has no context support; the dispatcher's delivery timeout is the
// effective bound here.
type SMTPEmail struct {
	Addr string // host:port
	From string
	Auth smtp.Auth
}

func (m *SMTPEmail) Send(ctx context.Context, to, subject, htmlBody string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	if err := smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	return nil
}

// LogSMS and LogEmail are local-development channels: they log the message
// and report success, so the full flow is exercisable without carrier
// credentials.

type LogSMS struct {
	Log *slog.Logger
}

func (l *LogSMS) Send(ctx context.Context, to, body string) (string, error) {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	id := "SM" + uuid.NewString()
	log.Info("sms (log channel)", "to", to, "message_id", id, "body", body)
	return id, nil
}

type LogEmail struct {
	Log *slog.Logger
}

func (l *LogEmail) Send(ctx context.Context, to, subject, htmlBody string) error {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("email (log channel)", "to", to, "subject", subject, "bytes", len(htmlBody))
	return nil
}
