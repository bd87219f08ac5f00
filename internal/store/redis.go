package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis document backend.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// RedisDocumentStore keeps each learner document as a JSON string under
// <prefix><userID>.
type RedisDocumentStore struct {
	rdb    *goredis.Client
	prefix string
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisDocumentStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisDocumentStore(rdb, cfg.KeyPrefix), nil
}

// NewRedisDocumentStore wraps an existing client.
func NewRedisDocumentStore(rdb *goredis.Client, prefix string) *RedisDocumentStore {
	if prefix == "" {
		prefix = "supertutor:learner:"
	}
	return &RedisDocumentStore{rdb: rdb, prefix: prefix}
}

// Close closes the Redis client.
func (r *RedisDocumentStore) Close() error {
	return r.rdb.Close()
}

func (r *RedisDocumentStore) key(userID string) string {
	return r.prefix + userID
}

func (r *RedisDocumentStore) Read(ctx context.Context, userID string) (*LearnerDocument, error) {
	raw, err := r.rdb.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read learner document: %w", err)
	}
	var doc LearnerDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode learner document: %w", err)
	}
	return &doc, nil
}

// Write applies patch under WATCH so concurrent writers for the same user
// do not lose each other's fields.
func (r *RedisDocumentStore) Write(ctx context.Context, userID string, patch Patch) error {
	key := r.key(userID)
	txf := func(tx *goredis.Tx) error {
		doc := LearnerDocument{UserID: userID}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("decode learner document: %w", err)
			}
		}

		patch.Apply(&doc)
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = time.Now().UTC()
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode learner document: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	const maxRetries = 3
	for range maxRetries {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("write learner document: %w", err)
		}
		return nil
	}
	return fmt.Errorf("write learner document: too much contention on %s", key)
}
