package idempotent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "creditgateway:idempotent:"

type Config struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Guard remembers keys that were already processed successfully.
type Guard interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

func NewGuard(cfg Config) Guard {
	if !cfg.Enabled {
		return Noop{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return NewRedisGuard(client, cfg.TTL)
}

type RedisGuard struct {
	cmd redis.Cmdable
	ttl time.Duration
}

func NewRedisGuard(cmd redis.Cmdable, ttl time.Duration) *RedisGuard {
	return &RedisGuard{cmd: cmd, ttl: ttl}
}

func (g *RedisGuard) Seen(ctx context.Context, key string) (bool, error) {
	_, err := g.cmd.Get(ctx, keyPrefix+key).Result()
	if err == nil {
		return true, nil
	}

	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	return false, err
}

func (g *RedisGuard) Mark(ctx context.Context, key string) error {
	return g.cmd.SetNX(ctx, keyPrefix+key, time.Now().Unix(), g.ttl).Err()
}

// Noop never reports a key as seen.
type Noop struct{}

func (Noop) Seen(context.Context, string) (bool, error) { return false, nil }

func (Noop) Mark(context.Context, string) error { return nil }

// Digest derives a key from the namespace and the exact payload bytes.
func Digest(namespace string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return namespace + ":" + hex.EncodeToString(sum[:])
}
