package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/port"
)

const realtimeChannelPrefix = "realtime:"

// RedisRealtime carries row change events over Redis pub/sub, one channel
// per table.
type RedisRealtime struct {
	client *redis.Client
}

func NewRedisRealtime(client *redis.Client) *RedisRealtime {
	return &RedisRealtime{client: client}
}

func (r *RedisRealtime) Publish(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, realtimeChannelPrefix+event.Table, payload).Err()
}

func (r *RedisRealtime) Subscribe(ctx context.Context, table string, fn func(domain.ChangeEvent)) (port.Subscription, error) {
	channel := realtimeChannelPrefix + table
	pubsub := r.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	sub := &redisSubscription{pubsub: pubsub, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range pubsub.Channel() {
			var ev domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("realtime %s: drop malformed event: %v", table, err)
				continue
			}
			fn(ev)
		}
	}()
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
	err    error
}

// Unsubscribe closes the channel and waits for in-flight delivery to end.
func (s *redisSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.pubsub.Close()
		<-s.done
	})
	return s.err
}
