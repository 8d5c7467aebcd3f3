package realtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// FingerprintCache remembers the last processed feed fingerprint per
// contributor so identical redelivery is recognizable. It is best-effort
// shared state: a duplicate slipping through is corrected by the NO_CHANGE
// outcome, not by cache exclusivity.
type FingerprintCache interface {
	Remember(ctx context.Context, contributorID, fingerprint string) error
	Forget(ctx context.Context, contributorID string) error
	Current(ctx context.Context, contributorID string) (string, error)
}

// Fingerprint derives the dedup key content for a raw feed payload.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

type RedisFingerprintCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFingerprintCache(client *redis.Client, ttl time.Duration) *RedisFingerprintCache {
	return &RedisFingerprintCache{client: client, ttl: ttl}
}

func fingerprintKey(contributorID string) string {
	return "tripflow:feed-fingerprint:" + contributorID
}

func (c *RedisFingerprintCache) Remember(ctx context.Context, contributorID, fingerprint string) error {
	return c.client.Set(ctx, fingerprintKey(contributorID), fingerprint, c.ttl).Err()
}

func (c *RedisFingerprintCache) Forget(ctx context.Context, contributorID string) error {
	return c.client.Del(ctx, fingerprintKey(contributorID)).Err()
}

func (c *RedisFingerprintCache) Current(ctx context.Context, contributorID string) (string, error) {
	value, err := c.client.Get(ctx, fingerprintKey(contributorID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}
