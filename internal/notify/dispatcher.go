package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"leadline-platform/internal/leads"
	"leadline-platform/pkg/logger"
)

// Dispatcher runs each delivery on its own goroutine so one lead's backoff
// waits can never stall another call's conversation turn.

type Dispatcher struct {
	svc     *Service
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher wraps a Service. timeout bounds one whole delivery
// (attempts + backoff + fallback); zero means a 2 minute default.
func NewDispatcher(svc *Service, log *slog.Logger, timeout time.Duration) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Dispatcher{svc: svc, log: log, timeout: timeout}
}

// Deliver starts an asynchronous delivery. onResult, if non-nil, is invoked
// from the delivery goroutine once the outcome is known.
func (d *Dispatcher) Deliver(lead leads.Summary, onResult func(DeliveryResult)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		ctx = logger.With(ctx, d.log)

		res := d.svc.SendLeadNotification(ctx, lead)
		if !res.Success {
			d.log.Error("lead notification failed", "call_sid", lead.CallID, "attempts", res.Attempts, "err", res.Error)
		}
		if onResult != nil {
			onResult(res)
		}
	}()
}

// Wait blocks until all in-flight deliveries finish. Called on shutdown so
// pending notifications drain before the process exits.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
