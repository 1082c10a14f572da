package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maspithik/angkringan/internal/core/domain"
)

// SessionStore keeps one session token per device and broadcasts session
// transitions to every tab of that device.
type SessionStore interface {
	Load(ctx context.Context, deviceID string) (token string, ok bool, err error)
	Save(ctx context.Context, deviceID, token string, ttl time.Duration) error
	Delete(ctx context.Context, deviceID string) error
	Announce(ctx context.Context, deviceID string, ev domain.AuthEvent) error
	Follow(ctx context.Context, deviceID string, fn func(domain.AuthEvent)) (stop func(), err error)
}

const (
	sessionKeyPrefix     = "session:"
	sessionChannelPrefix = "session-events:"
)

type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Load(ctx context.Context, deviceID string) (string, bool, error) {
	token, err := s.client.Get(ctx, sessionKeyPrefix+deviceID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, deviceID, token string, ttl time.Duration) error {
	return s.client.Set(ctx, sessionKeyPrefix+deviceID, token, ttl).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, deviceID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+deviceID).Err()
}

func (s *RedisSessionStore) Announce(ctx context.Context, deviceID string, ev domain.AuthEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, sessionChannelPrefix+deviceID, payload).Err()
}

func (s *RedisSessionStore) Follow(ctx context.Context, deviceID string, fn func(domain.AuthEvent)) (func(), error) {
	channel := sessionChannelPrefix + deviceID
	pubsub := s.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			var ev domain.AuthEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("auth %s: drop malformed session event: %v", deviceID, err)
				continue
			}
			fn(ev)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			pubsub.Close()
			<-done
		})
	}, nil
}

// MemorySessionStore is the single-process SessionStore. Announce delivers
// synchronously.
type MemorySessionStore struct {
	mu        sync.Mutex
	tokens    map[string]memoryToken
	followers map[string]map[int]func(domain.AuthEvent)
	nextID    int
	now       func() time.Time
}

type memoryToken struct {
	token   string
	expires time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		tokens:    make(map[string]memoryToken),
		followers: make(map[string]map[int]func(domain.AuthEvent)),
		now:       time.Now,
	}
}

func (s *MemorySessionStore) Load(ctx context.Context, deviceID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[deviceID]
	if !ok || !s.now().Before(t.expires) {
		delete(s.tokens, deviceID)
		return "", false, nil
	}
	return t.token, true, nil
}

func (s *MemorySessionStore) Save(ctx context.Context, deviceID, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[deviceID] = memoryToken{token: token, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, deviceID)
	return nil
}

func (s *MemorySessionStore) Announce(ctx context.Context, deviceID string, ev domain.AuthEvent) error {
	s.mu.Lock()
	fns := make([]func(domain.AuthEvent), 0, len(s.followers[deviceID]))
	for _, fn := range s.followers[deviceID] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
	return nil
}

func (s *MemorySessionStore) Follow(ctx context.Context, deviceID string, fn func(domain.AuthEvent)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.followers[deviceID] == nil {
		s.followers[deviceID] = make(map[int]func(domain.AuthEvent))
	}
	id := s.nextID
	s.nextID++
	s.followers[deviceID][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.followers[deviceID], id)
	}, nil
}
