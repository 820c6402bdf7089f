package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store and the locker.
const DefaultPrefix = "arbor:"

// Store implements ports.TreeStore using Redis.
// Trees are stored as JSON documents. A sorted set indexes the keys, scored by
// expiration time, and every change is published on a channel for Watch.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for trees.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying connection, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(key string) string {
	return s.prefix + "tree:" + key
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) channel() string {
	return s.prefix + "changes"
}

// Save persists the tree and announces the change.
func (s *Store) Save(ctx context.Context, key string, root *domain.Node) error {
	if key == "" {
		return domain.ErrInvalidKey
	}
	data, err := codec.Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to marshal tree: %w", err)
	}

	pipe := s.client.Pipeline()

	// 0 means no expiration.
	pipe.Set(ctx, s.key(key), data, s.ttl)

	// Score = expiration time. Trees without TTL get a far future score.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: key,
	})
	pipe.Publish(ctx, s.channel(), key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the tree from Redis.
func (s *Store) Load(ctx context.Context, key string) (*domain.Node, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrTreeNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	root, err := codec.Unmarshal(val)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tree %q: %w", key, err)
	}
	return root, nil
}

// Delete removes the tree and announces the change.
func (s *Store) Delete(ctx context.Context, key string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(key))
	pipe.ZRem(ctx, s.indexKey(), key)
	pipe.Publish(ctx, s.channel(), key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns the live keys, pruning expired entries from the index first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	// ZREMRANGEBYSCORE key -inf (now)
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired trees: %w", err)
	}

	keys, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}
	slices.Sort(keys)
	return keys, nil
}

// Watch reports the key of every tree saved or deleted through any Store sharing
// this prefix, until ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	sub := s.client.Subscribe(ctx, s.channel())
	// Wait for the subscription to be confirmed so no change is missed after return.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
