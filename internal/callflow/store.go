package callflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"results-hotline/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// SessionStore holds call sessions keyed by call identifier.
//
// Save is a compare-and-set: it succeeds only when the stored version is
// exactly session.Version-1 (or the key is absent and Version is 1).
// A rejected write surfaces ErrConflict, which the machine treats as a
// duplicate or replayed turn.
type SessionStore interface {
	Find(ctx context.Context, callID string) (CallSession, bool, error)
	Save(ctx context.Context, s CallSession) error
}

var ErrConflict = errors.New("callflow: session version conflict")

const sessionKeyPrefix = "call_session:"

// RedisStore persists sessions in Redis with a TTL refreshed on every
// write; an abandoned call expires on its own.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration

	clock func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, clock: time.Now}
}

func (s *RedisStore) Find(ctx context.Context, callID string) (CallSession, bool, error) {
	raw, err := s.rdb.Get(ctx, sessionKeyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return CallSession{}, false, nil
	}
	if err != nil {
		return CallSession{}, false, fmt.Errorf("callflow: session read: %w", err)
	}
	var out CallSession
	if err := json.Unmarshal(raw, &out); err != nil {
		return CallSession{}, false, fmt.Errorf("callflow: session decode: %w", err)
	}
	return out, true, nil
}

func (s *RedisStore) Save(ctx context.Context, sess CallSession) error {
	if sess.CallID == "" {
		return errors.New("callflow: call id required")
	}
	sess.UpdatedAt = s.clock().UTC()
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("callflow: session encode: %w", err)
	}
	ok, err := utils.VersionedSet(ctx, s.rdb, sessionKeyPrefix+sess.CallID, payload, sess.Version, s.ttl)
	if err != nil {
		return fmt.Errorf("callflow: session write: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// MemoryStore is a simple in-memory session store useful for tests.
// It applies the same compare-and-set discipline as the Redis store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]CallSession

	// FindErr and SaveErr simulate transient store failures.
	FindErr error
	SaveErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]CallSession)}
}

func (s *MemoryStore) Find(ctx context.Context, callID string) (CallSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return CallSession{}, false, s.FindErr
	}
	sess, ok := s.sessions[callID]
	return sess, ok, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess CallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	cur, ok := s.sessions[sess.CallID]
	if !ok {
		if sess.Version != 1 {
			return ErrConflict
		}
	} else if cur.Version+1 != sess.Version {
		return ErrConflict
	}
	sess.UpdatedAt = time.Now().UTC()
	s.sessions[sess.CallID] = sess
	return nil
}
