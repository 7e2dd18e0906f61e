package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/moodle-engagement-api/internal/models"
	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
)

// SessionStore persists upload sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

var (
	_ SessionStore = (*MemorySessionStore)(nil)
	_ SessionStore = (*RedisSessionStore)(nil)
)

type memoryEntry struct {
	session   models.Session
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory with a sliding TTL.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySessionStore builds an in-memory store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &MemorySessionStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// Save stores a copy of session and renews its expiry.
func (s *MemorySessionStore) Save(_ context.Context, session *models.Session) error {
	if session == nil || session.ID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	copied := *session
	copied.NotificationLog = append([]models.NotificationEntry(nil), session.NotificationLog...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	s.entries[session.ID] = memoryEntry{session: copied, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Get returns a copy of the session or ErrNotFound once it has expired.
func (s *MemorySessionStore) Get(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, sessionNotFound(id)
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		return nil, sessionNotFound(id)
	}
	entry.expiresAt = s.now().Add(s.ttl)
	s.entries[id] = entry

	session := entry.session
	session.NotificationLog = append([]models.NotificationEntry(nil), entry.session.NotificationLog...)
	return &session, nil
}

// Delete removes a session; deleting an unknown id is not an error.
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Len reports the number of live sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	return len(s.entries)
}

// Ping always succeeds; the store lives in process memory.
func (s *MemorySessionStore) Ping(context.Context) error {
	return nil
}

func (s *MemorySessionStore) evictExpiredLocked() {
	now := s.now()
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// RedisSessionStore serialises sessions as JSON under a key prefix.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSessionStore constructs a Redis-backed store.
func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisSessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "engagement:session:"
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisSessionStore{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (r *RedisSessionStore) key(id string) string {
	return r.prefix + id
}

// Save marshals the session and stores it with the configured TTL.
func (r *RedisSessionStore) Save(ctx context.Context, session *models.Session) error {
	if session == nil || session.ID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	if r.client == nil {
		return errors.New("redis session store has no client")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	if err := r.client.Set(ctx, r.key(session.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key(session.ID), err)
	}
	return nil
}

// Get loads a session and refreshes its TTL.
func (r *RedisSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	if r.client == nil {
		return nil, sessionNotFound(id)
	}
	raw, err := r.client.GetEx(ctx, r.key(id), r.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sessionNotFound(id)
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key(id), err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		r.logger.Warn("discarding unreadable session", zap.String("session_id", id), zap.Error(err))
		_ = r.client.Del(ctx, r.key(id)).Err()
		return nil, sessionNotFound(id)
	}
	return &session, nil
}

// Delete removes the session key.
func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", r.key(id), err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisSessionStore) Ping(ctx context.Context) error {
	if r.client == nil {
		return errors.New("redis session store has no client")
	}
	return r.client.Ping(ctx).Err()
}

func sessionNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s not found or expired", id))
}
