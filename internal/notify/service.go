package notify

import (
	"context"
	"fmt"
	"time"

	"leadline-platform/internal/leads"
	"leadline-platform/pkg/logger"
)

// SMSChannel is the primary delivery channel. Send returns the provider
// message id on success. Any error counts as a failed attempt; the service
// never distinguishes provider rejections from infrastructure faults.
type SMSChannel interface {
	Send(ctx context.Context, to, body string) (messageID string, err error)
}

// EmailChannel is the fallback delivery channel.
type EmailChannel interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// DeliveryResult is the outcome of one SendLeadNotification call.
type DeliveryResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Attempts  int    `json:"attempts"`
}

// Config controls delivery targets and the retry schedule. MaxAttempts and
// BackoffBase are configurable but growth stays exponential and the attempt
// count stays bounded.
type Config struct {
	OperatorNumber string
	OperatorEmail  string

	MaxAttempts int           // default 3
	BackoffBase time.Duration // default 1s; delay = base << (attempt-1)
}

func (c Config) withDefaults() Config {
	out := c
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 3
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = time.Second
	}
	return out
}

// Service delivers lead notifications: SMS with bounded retries and
// exponential backoff, then a single email fallback on exhaustion.
//
// SendLeadNotification is synchronous and blocks through the backoff waits;
// callers that must not stall (the conversation turn loop) go through
// Dispatcher instead.
type Service struct {
	sms   SMSChannel
	email EmailChannel
	cfg   Config

	// sleep is injectable so tests can observe the backoff schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(sms SMSChannel, email EmailChannel, cfg Config) *Service {
	return &Service{
		sms:   sms,
		email: email,
		cfg:   cfg.withDefaults(),
		sleep: sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SendLeadNotification formats and delivers one lead. Exactly one SMS send
// per attempt, at most one email fallback. Delivery failure is reported in
// the result, never as an error: the caller-facing call flow completes
// normally regardless of the outcome here.
func (s *Service) SendLeadNotification(ctx context.Context, lead leads.Summary) DeliveryResult {
	log := logger.From(ctx).With("call_sid", lead.CallID)

	body := FormatSMS(lead)

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		messageID, err := s.sms.Send(ctx, s.cfg.OperatorNumber, body)
		if err == nil {
			log.Info("lead sms delivered", "attempt", attempt, "message_id", messageID)
			return DeliveryResult{Success: true, MessageID: messageID, Attempts: attempt}
		}
		log.Warn("lead sms attempt failed", "attempt", attempt, "err", err)

		if attempt < s.cfg.MaxAttempts {
			if err := s.sleep(ctx, s.cfg.BackoffBase<<(attempt-1)); err != nil {
				// Shutdown or caller cancellation: stop retrying and skip
				// the fallback rather than racing a dying process.
				return DeliveryResult{
					Success:  false,
					Error:    fmt.Sprintf("delivery canceled after %d attempts: %v", attempt, err),
					Attempts: attempt,
				}
			}
		}
	}

	log.Warn("sms delivery exhausted, sending email fallback", "attempts", s.cfg.MaxAttempts)
	if err := s.email.Send(ctx, s.cfg.OperatorEmail, FormatEmailSubject(lead), FormatEmailHTML(lead)); err != nil {
		// Fallback failures are not retried further.
		log.Error("email fallback failed", "err", err)
	}

	return DeliveryResult{
		Success:  false,
		Error:    fmt.Sprintf("sms delivery failed after %d attempts, email fallback sent", s.cfg.MaxAttempts),
		Attempts: s.cfg.MaxAttempts,
	}
}
