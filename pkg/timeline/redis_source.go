package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisFetcher reads payloads stored as plain string values in Redis.
// Locations are keys, optionally written as "redis://<key>"; the configured
// prefix is prepended before lookup.
// The fetcher is safe for concurrent use.
type RedisFetcher struct {
	rdb       *redis.Client
	keyPrefix string
}

// NewRedisFetcher connects a fetcher with the given options and key prefix.
func NewRedisFetcher(opts *redis.Options, keyPrefix string) *RedisFetcher {
	return &RedisFetcher{
		rdb:       redis.NewClient(opts),
		keyPrefix: keyPrefix,
	}
}

// Close closes the Redis connection. Implements io.Closer.
func (f *RedisFetcher) Close() error {
	return f.rdb.Close()
}

// Key returns the Redis key a location resolves to.
func (f *RedisFetcher) Key(location string) string {
	key := location
	for _, scheme := range []string{"redis://", "rediss://"} {
		if strings.HasPrefix(strings.ToLower(key), scheme) {
			key = key[len(scheme):]
			break
		}
	}
	return f.keyPrefix + key
}

// Fetch returns the value stored under the location's key.
// A missing key is an AssetFetchError with status "not found".
func (f *RedisFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	key := f.Key(req.Location)

	data, err := f.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &AssetFetchError{Location: req.Location, Status: "not found", Err: fmt.Errorf("key '%s' does not exist", key)}
		}
		return nil, &AssetFetchError{Location: req.Location, Err: fmt.Errorf("failed to read key '%s' from Redis: %w", key, err)}
	}

	return data, nil
}
