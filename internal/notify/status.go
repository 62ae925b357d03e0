package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"leadline-platform/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Operator availability, toggled out of band by SMS keywords.
//
// The flag itself lives in a store (Redis in deployment, memory in tests);
// the conversation transfer path reads it to decide whether dialing the
// operator is worth attempting.

type AvailabilityStore interface {
	SetAvailable(ctx context.Context, available bool) error
	Available(ctx context.Context) (bool, error)
}

const availabilityKey = "operator:available"

// RedisAvailabilityStore persists the flag in Redis. A missing key means
// available: the operator is reachable until they say otherwise.
type RedisAvailabilityStore struct {
	rdb *redis.Client
	key string
}

func NewRedisAvailabilityStore(rdb *redis.Client) *RedisAvailabilityStore {
	return &RedisAvailabilityStore{rdb: rdb, key: availabilityKey}
}

func (s *RedisAvailabilityStore) SetAvailable(ctx context.Context, available bool) error {
	val := "1"
	if !available {
		val = "0"
	}
	return s.rdb.Set(ctx, s.key, val, 0).Err()
}

func (s *RedisAvailabilityStore) Available(ctx context.Context) (bool, error) {
	val, err := s.rdb.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return val != "0", nil
}

// MemoryAvailabilityStore is the in-process store for tests and local runs.
type MemoryAvailabilityStore struct {
	mu          sync.Mutex
	unavailable bool
}

func NewMemoryAvailabilityStore() *MemoryAvailabilityStore { return &MemoryAvailabilityStore{} }

func (s *MemoryAvailabilityStore) SetAvailable(ctx context.Context, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = !available
	return nil
}

func (s *MemoryAvailabilityStore) Available(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unavailable, nil
}

const (
	replyBusy      = "Status updated to BUSY. You will not receive new calls until you text AVAILABLE."
	replyAvailable = "Status updated to AVAILABLE. You will now receive new calls."
	replyHelp      = "Commands: BUSY (stop calls), AVAILABLE (resume calls), STATUS (check status)"
	replyError     = "Sorry, there was an error processing your request. Please try again."
)

// HandleStatusCommand maps an inbound free-text command to a reply string,
// updating the availability flag as a side effect. Commands are
// case-insensitive and whitespace-tolerant; anything unrecognized returns
// the help reply.
func HandleStatusCommand(ctx context.Context, store AvailabilityStore, from, body string) string {
	log := logger.From(ctx).With("from", from)

	switch strings.ToUpper(strings.TrimSpace(body)) {
	case "BUSY":
		if err := store.SetAvailable(ctx, false); err != nil {
			log.Error("availability update failed", "err", err)
			return replyError
		}
		log.Info("operator status set to busy")
		return replyBusy

	case "AVAILABLE":
		if err := store.SetAvailable(ctx, true); err != nil {
			log.Error("availability update failed", "err", err)
			return replyError
		}
		log.Info("operator status set to available")
		return replyAvailable

	case "STATUS":
		available, err := store.Available(ctx)
		if err != nil {
			log.Error("availability read failed", "err", err)
			return replyError
		}
		status := "AVAILABLE"
		if !available {
			status = "BUSY"
		}
		return fmt.Sprintf("Your current status is %s. Text BUSY to stop receiving calls or AVAILABLE to resume.", status)

	default:
		return replyHelp
	}
}
