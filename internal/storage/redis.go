package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
)

// maxTxAttempts bounds optimistic-lock retries when another writer touches
// the collection key between our read and write.
const maxTxAttempts = 5

// Redis keeps the whole collection as one JSON array under a single key.
// Every operation reads the key; every mutation rewrites it inside a
// WATCH/MULTI transaction so concurrent server instances do not clobber
// each other's writes.
type Redis struct {
	client *redis.Client
	key    string
}

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// OpenRedis connects to Redis and verifies the connection with PING.
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: connect redis: %w", err)
	}
	return NewRedis(client, opts.Key), nil
}

// NewRedis wraps an existing client. An empty key means DefaultNamespace.
func NewRedis(client *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultNamespace
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) Insert(ctx context.Context, n models.Note) error {
	return r.mutate(ctx, func(c *collection) error {
		return c.insert(n)
	})
}

func (r *Redis) Get(ctx context.Context, id string) (models.Note, error) {
	c, err := r.load(ctx, r.client)
	if err != nil {
		return models.Note{}, err
	}
	n, ok := c.get(id)
	if !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	return n, nil
}

func (r *Redis) Replace(ctx context.Context, n models.Note) error {
	return r.mutate(ctx, func(c *collection) error {
		if !c.replace(n) {
			return apperr.ErrNotFound
		}
		return nil
	})
}

func (r *Redis) Remove(ctx context.Context, id string) error {
	err := r.mutate(ctx, func(c *collection) error {
		if !c.remove(id) {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil
	}
	return err
}

func (r *Redis) ListByOwner(ctx context.Context, ownerID string) ([]models.Note, error) {
	c, err := r.load(ctx, r.client)
	if err != nil {
		return nil, err
	}
	return c.byOwner(ownerID), nil
}

// MarkSeeded adds ownerID to the set stored at <key>:seeded.
func (r *Redis) MarkSeeded(ctx context.Context, ownerID string) (bool, error) {
	added, err := r.client.SAdd(ctx, r.key+":seeded", ownerID).Result()
	if err != nil {
		return false, fmt.Errorf("storage: redis sadd: %w", err)
	}
	return added == 1, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("storage: close redis: %w", err)
	}
	return nil
}

// errNoChange aborts a mutation that would not alter the collection.
var errNoChange = errors.New("no change")

// getter is the slice of redis.Client and redis.Tx that load needs.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *Redis) load(ctx context.Context, cmd getter) (*collection, error) {
	data, err := cmd.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return newCollection(nil)
		}
		return nil, fmt.Errorf("storage: redis get: %w", err)
	}
	return decodeCollection(data)
}

func (r *Redis) mutate(ctx context.Context, fn func(c *collection) error) error {
	txf := func(tx *redis.Tx) error {
		c, err := r.load(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		data, err := c.marshal()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, data, 0)
			return nil
		})
		return err
	}

	for range maxTxAttempts {
		err := r.client.Watch(ctx, txf, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, errNoChange) {
			return fmt.Errorf("storage: redis write: %w", err)
		}
		return err
	}
	return fmt.Errorf("storage: redis write: %w", redis.TxFailedErr)
}
