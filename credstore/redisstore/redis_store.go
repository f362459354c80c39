package redisstore

import (
	"context"

	"github.com/jrsteele09/secure-health/credstore"
	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKey is the hash holding the credential entry
	DefaultKey = "secure-health:credentials"

	fieldService = "service"
	fieldPayload = "payload"
)

var _ credstore.Store = (*RedisStore)(nil)

// RedisStore keeps the credential entry in a single Redis hash.
// Encryption at rest is delegated to the Redis deployment (TLS + encrypted volumes).
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// New wraps an existing client. An empty key uses DefaultKey.
func New(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: key}
}

// Dial parses a redis:// URL, connects and pings the server.
func Dial(ctx context.Context, url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrapf(err, "parse redis URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "redis ping failed")
	}
	return New(client, key), nil
}

func (s *RedisStore) Save(ctx context.Context, service string, payload []byte) error {
	// Replace the whole hash atomically so a partial entry is never visible
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key, fieldService, service, fieldPayload, payload)
		return nil
	})
	if err != nil {
		return errors.Wrapf(errors.ErrPersistence, "redis save: %v", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*credstore.Entry, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStoreLoad, "redis load: %v", err)
	}
	payload, ok := values[fieldPayload]
	if !ok {
		return nil, nil
	}
	return &credstore.Entry{Service: values[fieldService], Payload: []byte(payload)}, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return errors.Wrapf(errors.ErrStoreClear, "redis clear: %v", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
