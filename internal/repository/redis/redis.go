// Package redis stores session records in Redis so several app instances can
// share sessions. Keys are "<prefix><session id>" and carry a TTL, so Redis
// does the expiry itself.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/wellness-tracker/internal/apperror"
	"github.com/sakif/wellness-tracker/internal/model"
	"github.com/sakif/wellness-tracker/internal/repository"
)

var _ repository.SessionRepository = (*Store)(nil)

// Client is the subset of *goredis.Client the store needs.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Ping(ctx context.Context) *goredis.StatusCmd
	Close() error
}

// Options configures a connection made by Dial.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// Store implements repository.SessionRepository on Redis.
type Store struct {
	client Client
	prefix string
	ttl    time.Duration
}

// Dial connects to Redis and verifies the connection with a PING.
func Dial(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: connecting to %s: %w", opts.Addr, err)
	}
	return New(client, opts.KeyPrefix, opts.TTL), nil
}

// New wraps an existing client.
func New(client Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) Load(ctx context.Context, id string) (*model.UserRecord, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("redis: loading session %s: %w", id, err)
	}

	var rec model.UserRecord
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("redis: decoding session %s: %w", id, err)
	}
	rec.Normalize()
	return &rec, nil
}

func (s *Store) Save(ctx context.Context, id string, rec *model.UserRecord) error {
	if rec == nil {
		return fmt.Errorf("redis: saving session %s: nil record", id)
	}
	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: encoding session %s: %w", id, err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: saving session %s: %w", id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis: deleting session %s: %w", id, err)
	}
	return nil
}

// DeleteExpired is a no-op: keys carry their own TTL.
func (s *Store) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
