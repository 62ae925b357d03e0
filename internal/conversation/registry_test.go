package conversation

import (
	"testing"
	"time"
)

func TestRegistryCreateIsIdempotent(t *testing.T) {
	r := NewRegistry(10*time.Minute, 2*time.Minute)

	a := r.Create("CA1", "+15550001111", "+15551230000")
	a.CurrentStep = StepLocationGathering

	b := r.Create("CA1", "+15550001111", "+15551230000")
	if a != b {
		t.Fatalf("duplicate create must return the existing session")
	}
	if b.CurrentStep != StepLocationGathering {
		t.Fatalf("duplicate create must not reset state, got %q", b.CurrentStep)
	}
	if r.Len() != 1 {
		t.Fatalf("expected a single session, got %d", r.Len())
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(10*time.Minute, 2*time.Minute)
	if _, err := r.Get("CA-missing"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistrySweepEvictsIdleAndTerminal(t *testing.T) {
	base := time.Unix(1700000000, 0)
	r := NewRegistry(10*time.Minute, 2*time.Minute)
	r.clock = func() time.Time { return base }

	idle := r.Create("CA-idle", "+1555", "+1556")
	_ = idle

	active := r.Create("CA-active", "+1555", "+1556")
	done := r.Create("CA-done", "+1555", "+1556")
	done.CompletedAt = base

	// One minute in: the terminal grace has not elapsed and nothing idles
	// out yet.
	if n := r.Sweep(base.Add(time.Minute)); n != 0 {
		t.Fatalf("nothing should be evicted after one minute, got %d", n)
	}

	active.mu.Lock()
	active.LastEventAt = base.Add(5 * time.Minute)
	active.mu.Unlock()

	// Eleven minutes in: the untouched session idles out and the completed
	// session is past its grace period. The recently active one stays.
	if n := r.Sweep(base.Add(11 * time.Minute)); n != 2 {
		t.Fatalf("expected 2 evictions, got %d", n)
	}
	if _, err := r.Get("CA-active"); err != nil {
		t.Fatalf("active session must survive: %v", err)
	}
	if _, err := r.Get("CA-idle"); err != ErrSessionNotFound {
		t.Fatalf("idle session should be gone")
	}
	if _, err := r.Get("CA-done"); err != ErrSessionNotFound {
		t.Fatalf("terminal session should be gone after the grace period")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(10*time.Minute, 2*time.Minute)
	r.Create("CA1", "+1555", "+1556")

	r.Remove("CA1")
	r.Remove("CA1") // unknown id is a no-op

	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}
