package store

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production Store backing, grounded on the go-redis/v9
// command surface. It implements the full Store contract with no leakage
// of redis.Client or redis.Z types past this file.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials Redis eagerly so configuration mistakes surface at
// startup rather than on the first game action.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) SAdd(ctx context.Context, setKey, member string) error {
	return s.client.SAdd(ctx, setKey, member).Err()
}

func (s *RedisStore) SRem(ctx context.Context, setKey, member string) error {
	return s.client.SRem(ctx, setKey, member).Err()
}

func (s *RedisStore) SMembers(ctx context.Context, setKey string) ([]string, error) {
	return s.client.SMembers(ctx, setKey).Result()
}

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}
	return s.client.HSet(ctx, key, values...).Err()
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

func (s *RedisStore) Publish(ctx context.Context, channel, payload string) error {
	return s.client.Publish(ctx, channel, payload).Err()
}

// Subscribe uses PSubscribe so a single call can cover a wildcard pattern
// like "game_state_update:*"; the gateway relies on exactly this to bind
// once at startup to all four fan-out topics.
func (s *RedisStore) Subscribe(ctx context.Context, pattern string, handler func(Message)) error {
	pubsub := s.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("[store] pubsub handler panicked on channel %s: %v", msg.Channel, r)
					}
				}()
				handler(Message{Channel: msg.Channel, Payload: msg.Payload})
			}()
		}
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
