package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
)

// FormState is what the browser session remembers between issuing a
// confirmation and entering the code.
type FormState struct {
	RecordID     string                  `json:"record_id"`
	MatchID      string                  `json:"match_id"`
	AnalystName  string                  `json:"analyst_name"`
	AnalystEmail string                  `json:"analyst_email"`
	Mode         domain.ConfirmationMode `json:"mode"`
	IssuedAt     time.Time               `json:"issued_at"`
}

// SessionStore keeps FormState per browser session.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, state FormState, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (FormState, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

type sessionEntry struct {
	state     FormState
	expiresAt time.Time
}

// InMemorySessionStore is a process-local SessionStore for single instances.
type InMemorySessionStore struct {
	mu      sync.RWMutex
	entries map[string]sessionEntry
	now     func() time.Time
}

// NewInMemorySessionStore returns an empty store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{entries: map[string]sessionEntry{}, now: time.Now}
}

// Save stores state until ttl elapses. A non-positive ttl stores nothing.
func (s *InMemorySessionStore) Save(_ context.Context, sessionID string, state FormState, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	s.entries[sessionID] = sessionEntry{state: state, expiresAt: s.now().UTC().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Load returns the state for sessionID, or false if it is missing or expired.
func (s *InMemorySessionStore) Load(_ context.Context, sessionID string) (FormState, bool, error) {
	now := s.now().UTC()
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return FormState{}, false, nil
	}
	if now.After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return FormState{}, false, nil
	}
	return entry.state, true, nil
}

// Delete forgets sessionID.
func (s *InMemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}

// RedisSessionStore keeps sessions in Redis as JSON under a key prefix.
type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisSessionStore returns a store writing keys under prefix.
func NewRedisSessionStore(client redis.UniversalClient, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = "entrega_session"
	}
	return &RedisSessionStore{client: client, prefix: prefix}
}

// Save writes state with ttl as the key expiry.
func (s *RedisSessionStore) Save(ctx context.Context, sessionID string, state FormState, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	return s.client.Set(ctx, s.key(sessionID), payload, ttl).Err()
}

// Load reads the state for sessionID. A missing key is not an error.
func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) (FormState, bool, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return FormState{}, false, nil
	}
	if err != nil {
		return FormState{}, false, err
	}
	var state FormState
	if err := json.Unmarshal(raw, &state); err != nil {
		return FormState{}, false, fmt.Errorf("decode session state: %w", err)
	}
	return state, true, nil
}

// Delete removes the key for sessionID.
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *RedisSessionStore) key(sessionID string) string {
	return fmt.Sprintf("%s:form:%s", s.prefix, sessionID)
}
