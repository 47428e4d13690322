package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uniseek/uniseek/pkg/log"
)

// Remote is the Redis-backed cache. Expiry is delegated to Redis' native
// TTL mechanism; hit and miss counters are tracked in-process so Stats stays
// consistent with the local backend's semantics.
type Remote struct {
	client *redis.Client
	logger *log.Logger
	hits   atomic.Uint64
	misses atomic.Uint64
}

// dialRemote connects with an increasing backoff (500ms, 1s, 1.5s, ...)
// between attempts. A nil error means the endpoint answered a ping.
func dialRemote(ctx context.Context, url string, attempts int, logger *log.Logger) (*Remote, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return &Remote{client: client, logger: logger}, nil
		}
		logger.Debugf("remote cache ping attempt %d/%d failed: %v", attempt, attempts, lastErr)
		if attempt < attempts {
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("pinging %s: %w", url, lastErr)
}

func (r *Remote) Get(ctx context.Context, key string) ([]byte, bool) {
	stored, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !isRemoteMiss(err) {
			r.logger.Warnf("remote get %s: %v", key, err)
		}
		r.misses.Add(1)
		return nil, false
	}

	value, ok := decodeValue(stored)
	if !ok {
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return value, true
}

// isRemoteMiss distinguishes an absent key from a backend failure, unwrapping
// in case the client ever returns redis.Nil wrapped.
func isRemoteMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (r *Remote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, key, encodeValue(value), ttl).Err(); err != nil {
		r.logger.Warnf("remote set %s: %v", key, err)
	}
}

func (r *Remote) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warnf("remote delete %s: %v", key, err)
	}
}

// DeletePattern scans for keys matching the trailing-wildcard glob and
// deletes them in batches. SCAN's MATCH glob is a superset of ours, so the
// pattern passes through unchanged.
func (r *Remote) DeletePattern(ctx context.Context, pattern string) {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			r.logger.Warnf("remote scan %s: %v", pattern, err)
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				r.logger.Warnf("remote delete batch: %v", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func (r *Remote) Clear(ctx context.Context) {
	r.DeletePattern(ctx, Key()+":*")
	r.hits.Store(0)
	r.misses.Store(0)
}

func (r *Remote) Stats(ctx context.Context) Stats {
	size := 0
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, Key()+":*", 1000).Result()
		if err != nil {
			r.logger.Warnf("remote stats scan: %v", err)
			break
		}
		size += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return Stats{
		Hits:    r.hits.Load(),
		Misses:  r.misses.Load(),
		Size:    size,
		Backend: BackendRemote,
	}
}
