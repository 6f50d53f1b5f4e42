package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/regscout/regscout/internal/infrastructure/redis"
	"github.com/regscout/regscout/pkg/logger"
)

const keyPrefix = "regscout:session:"

type Store interface {
	Set(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// NewStore returns a Redis backed store, or an in-memory one when Redis is
// not available.
func NewStore(redisService *redis.Service, ttl time.Duration) Store {
	log := logger.For(logger.SESSION)

	if redisService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := redisService.Ping(ctx); err == nil {
			log.Info().Dur("ttl", ttl).Msg("Using Redis session store")
			return NewRedisStore(redisService, ttl)
		}
		log.Warn().Msg("Redis not reachable - falling back to in-memory session store")
	}

	log.Info().Dur("ttl", ttl).Msg("Using in-memory session store")
	return NewMemoryStore(ttl)
}

type RedisStore struct {
	redisService *redis.Service
	ttl          time.Duration
}

func NewRedisStore(redisService *redis.Service, ttl time.Duration) *RedisStore {
	return &RedisStore{redisService: redisService, ttl: ttl}
}

func (rs *RedisStore) Set(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	return rs.redisService.Set(ctx, keyPrefix+session.ID, string(data), rs.ttl)
}

func (rs *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := rs.redisService.Get(ctx, keyPrefix+sessionID)
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	return &session, nil
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, keyPrefix+sessionID)
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps encoded sessions so callers never share slices with it.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (ms *MemoryStore) Set(_ context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[session.ID] = memoryEntry{data: data, expiresAt: ms.now().Add(ms.ttl)}
	return nil
}

func (ms *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	ms.mu.RLock()
	entry, exists := ms.sessions[sessionID]
	ms.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}
	if ms.ttl > 0 && ms.now().After(entry.expiresAt) {
		ms.mu.Lock()
		delete(ms.sessions, sessionID)
		ms.mu.Unlock()
		return nil, ErrNotFound
	}

	var session Session
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func (ms *MemoryStore) Delete(_ context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, sessionID)
	return nil
}
