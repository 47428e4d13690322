// Package cache provides the response cache sitting in front of the data
// source. Callers see one interface; the backend is chosen once at
// construction time: a shared Redis instance when configured and reachable,
// otherwise an in-process map for the life of the process. Backend I/O
// failures degrade to miss/no-op semantics and never surface to callers.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/uniseek/uniseek/pkg/log"
)

// Backend identifies which implementation serves the cache.
type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
)

// Stats is a point-in-time snapshot of cache effectiveness. Hit and miss
// counters cover the process lifetime and reset only on Clear.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Size    int     `json:"size"`
	Backend Backend `json:"backend"`
}

// Cache is the backend-agnostic response cache. Implementations are safe for
// concurrent use. Lookups that fail for any backend reason report a miss;
// writes and deletes that fail are silently dropped after logging.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	// DeletePattern removes every key matching a trailing-wildcard glob
	// such as "search:california*".
	DeletePattern(ctx context.Context, pattern string)
	Clear(ctx context.Context)
	Stats(ctx context.Context) Stats
}

// Options configure cache construction.
type Options struct {
	// RedisURL selects the remote backend when non-empty.
	RedisURL string
	// ConnectAttempts caps startup connection tries before the permanent
	// local fallback. Defaults to 3.
	ConnectAttempts int
}

// New picks the backend once. With no Redis URL the in-process cache is used
// directly. With one, the endpoint is pinged with an increasing backoff up
// to the attempt budget; when it never answers, the in-process cache takes
// over for the remainder of the process lifetime and no reconnection is
// attempted.
func New(ctx context.Context, opts Options) Cache {
	logger := log.ForComponent("cache")

	if opts.RedisURL == "" {
		logger.Infof("no remote cache configured, using in-process cache")
		return NewMemory()
	}

	attempts := opts.ConnectAttempts
	if attempts <= 0 {
		attempts = 3
	}

	remote, err := dialRemote(ctx, opts.RedisURL, attempts, logger)
	if err != nil {
		logger.Warnf("remote cache unreachable after %d attempts, falling back to in-process cache: %v", attempts, err)
		return NewMemory()
	}

	logger.Infof("using remote cache at %s", opts.RedisURL)
	return remote
}

// Key builds a cache key from the fixed category prefix and the supplied
// parts, colon-joined. Identical effective request parameters collide on the
// same key; any differing part yields a different key.
func Key(parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	all = append(all, "search")
	for _, p := range parts {
		if p == "" {
			p = "-"
		}
		all = append(all, strings.ReplaceAll(p, ":", "_"))
	}
	return strings.Join(all, ":")
}

// Large cached payloads are stored zstd-compressed, transparently to
// callers. A one-byte marker distinguishes compressed from raw values.
const (
	rawMarker        = 0x00
	compressedMarker = 0x01
	compressMinSize  = 4096
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

func encodeValue(value []byte) []byte {
	if len(value) < compressMinSize {
		return append([]byte{rawMarker}, value...)
	}
	compressed := zstdEncoder.EncodeAll(value, []byte{compressedMarker})
	if len(compressed) >= len(value)+1 {
		return append([]byte{rawMarker}, value...)
	}
	return compressed
}

func decodeValue(stored []byte) ([]byte, bool) {
	if len(stored) == 0 {
		return nil, false
	}
	switch stored[0] {
	case rawMarker:
		return stored[1:], true
	case compressedMarker:
		value, err := zstdDecoder.DecodeAll(stored[1:], nil)
		if err != nil {
			return nil, false
		}
		return value, true
	}
	return nil, false
}

// matchPattern implements the trailing-wildcard glob shared by both
// backends' local matching paths. A pattern without "*" is an exact match.
func matchPattern(pattern, key string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}
	return pattern == key
}
