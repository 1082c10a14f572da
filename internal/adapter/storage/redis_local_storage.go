package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/maspithik/angkringan/internal/core/domain"
)

const (
	localKeyPrefix     = "ls:"
	localChannelPrefix = "ls-events:"
)

// setAndPublishScript writes the slot and announces it in one round trip so
// watchers never see an event before the value is readable.
var setAndPublishScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1])
redis.call('PUBLISH', ARGV[2], ARGV[3])
return 1
`)

var removeAndPublishScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
redis.call('PUBLISH', ARGV[1], ARGV[2])
return 1
`)

// RedisLocalStorage is one tab's view of a device's storage kept in Redis.
// Every tab of the device shares the keys ls:<device>:<key> and the event
// channel ls-events:<device>; a tab never receives its own events.
type RedisLocalStorage struct {
	client   *redis.Client
	deviceID string
	tabID    string
}

func NewRedisLocalStorage(client *redis.Client, deviceID, tabID string) *RedisLocalStorage {
	return &RedisLocalStorage{client: client, deviceID: deviceID, tabID: tabID}
}

func (r *RedisLocalStorage) key(k string) string {
	return localKeyPrefix + r.deviceID + ":" + k
}

func (r *RedisLocalStorage) channel() string {
	return localChannelPrefix + r.deviceID
}

func (r *RedisLocalStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisLocalStorage) SetItem(ctx context.Context, key, value string) error {
	event, err := json.Marshal(domain.StorageEvent{Key: key, NewValue: &value, Origin: r.tabID})
	if err != nil {
		return err
	}
	return setAndPublishScript.Run(ctx, r.client, []string{r.key(key)}, value, r.channel(), event).Err()
}

func (r *RedisLocalStorage) RemoveItem(ctx context.Context, key string) error {
	event, err := json.Marshal(domain.StorageEvent{Key: key, Origin: r.tabID})
	if err != nil {
		return err
	}
	return removeAndPublishScript.Run(ctx, r.client, []string{r.key(key)}, r.channel(), event).Err()
}

// Watch subscribes to the device channel. It returns once the subscription
// is confirmed, so writes made afterwards are never missed.
func (r *RedisLocalStorage) Watch(ctx context.Context, fn func(domain.StorageEvent)) (func(), error) {
	pubsub := r.client.Subscribe(ctx, r.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel(), err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			var ev domain.StorageEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("local storage %s: drop malformed event: %v", r.deviceID, err)
				continue
			}
			if ev.Origin == r.tabID {
				continue
			}
			fn(ev)
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			pubsub.Close()
			<-done
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return stop, nil
}
